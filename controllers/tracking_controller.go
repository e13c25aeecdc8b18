package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ismailsoloyt12-stack/zetsuserv/config"
	"github.com/ismailsoloyt12-stack/zetsuserv/logger"
	"github.com/ismailsoloyt12-stack/zetsuserv/middleware"
	"github.com/ismailsoloyt12-stack/zetsuserv/models"
	"github.com/ismailsoloyt12-stack/zetsuserv/services"
)

// TrackingAuthBody represents the request body for tracking authentication
type TrackingAuthBody struct {
	TrackingCode string `json:"tracking_code" binding:"required"`
	AccessKey    string `json:"access_key" binding:"required"`
}

// TrackingAuth handles POST /api/v1/track/auth - exchanges a tracking code
// and access key pair for a short-lived tracking token. The rejection message
// never distinguishes a wrong code from a wrong key.
func TrackingAuth(c *gin.Context) {
	var req TrackingAuthBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Please provide both tracking code and access key",
			},
		})
		return
	}

	tracking := services.NewTrackingService(config.GetDB())
	order, err := tracking.Authenticate(req.TrackingCode, req.AccessKey)
	if err != nil {
		if errors.Is(err, services.ErrOrderStillQueued) {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "ORDER_IN_QUEUE",
					"message": "This order is still in queue. You will receive tracking access when your turn arrives.",
				},
			})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_TRACKING_CREDENTIALS",
				"message": "Invalid tracking code or access key. Please check your email for the correct credentials.",
			},
		})
		return
	}

	token, err := middleware.IssueToken(middleware.PrincipalTracking, order.TrackingCode, order.ClientName, middleware.TrackingTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "TOKEN_ERROR",
				"message": "Failed to issue tracking token",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"token":      token,
			"expires_in": int(middleware.TrackingTokenTTL.Seconds()),
			"order_id":   order.ID,
		},
	})
}

// authorizeOrderAccess resolves the order for a track route and checks that
// the caller may see it: either a tracking token bound to this exact code,
// or a logged-in client who owns the order. Writes the error response itself
// and returns nil when access is denied.
func authorizeOrderAccess(c *gin.Context) *models.Order {
	code := c.Param("code")

	claims, err := middleware.GetPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Authentication required",
			},
		})
		return nil
	}

	tracking := services.NewTrackingService(config.GetDB())
	order, err := tracking.FindByCode(code)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ORDER_NOT_FOUND",
				"message": "Order not found",
			},
		})
		return nil
	}

	switch claims.Kind {
	case middleware.PrincipalTracking:
		if claims.Subject != code {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "FORBIDDEN",
					"message": "This token does not grant access to this order",
				},
			})
			return nil
		}
	case middleware.PrincipalClient:
		userID, convErr := strconv.ParseUint(claims.Subject, 10, 32)
		if convErr != nil || order.UserID == nil || *order.UserID != uint(userID) {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "FORBIDDEN",
					"message": "You do not have access to this order",
				},
			})
			return nil
		}
	default:
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "You do not have access to this order",
			},
		})
		return nil
	}

	// Orders still waiting cannot be tracked, regardless of credentials
	if !order.IsQueueActive() {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ORDER_IN_QUEUE",
				"message": "This order is still in queue. You will receive tracking access when your turn arrives.",
			},
		})
		return nil
	}

	return order
}

// TrackOrder handles GET /api/v1/track/order/:code - the full tracking view:
// order details, progress steps with the derived overall percentage, and the
// message thread. Unread notifications are marked read as a side effect.
func TrackOrder(c *gin.Context) {
	order := authorizeOrderAccess(c)
	if order == nil {
		return
	}

	db := config.GetDB()
	progress := services.NewProgressService(db)
	steps, err := progress.StepsForOrder(order.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load progress steps",
			},
		})
		return
	}

	var messages []models.Message
	if err := db.Where("order_id = ?", order.ID).Order("created_at ASC").Find(&messages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load messages",
			},
		})
		return
	}

	var notifications []models.Notification
	if err := db.Where("order_id = ?", order.ID).Order("created_at DESC").Find(&notifications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load notifications",
			},
		})
		return
	}

	// Viewing the tracking page acknowledges pending notifications
	if err := db.Model(&models.Notification{}).
		Where("order_id = ? AND is_read = ?", order.ID, false).
		Update("is_read", true).Error; err != nil {
		logger.Warnf("failed to mark notifications read for order %d: %v", order.ID, err)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"order":            order,
			"progress_steps":   steps,
			"overall_progress": services.OverallProgress(steps),
			"messages":         messages,
			"notifications":    notifications,
		},
	})
}

// ClientMessageBody represents the request body for a client message
type ClientMessageBody struct {
	Content string `json:"content" binding:"required"`
}

// SendClientMessage handles POST /api/v1/track/order/:code/messages - posts a
// message from the client on their order thread and notifies the admin.
func SendClientMessage(c *gin.Context) {
	order := authorizeOrderAccess(c)
	if order == nil {
		return
	}

	var req ClientMessageBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Message cannot be empty",
			},
		})
		return
	}

	db := config.GetDB()
	message := models.Message{
		OrderID:    order.ID,
		SenderType: models.SenderClient,
		SenderName: order.ClientName,
		Content:    req.Content,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&message).Error; err != nil {
			return err
		}
		notification := models.Notification{
			OrderID: order.ID,
			Type:    models.NotificationMessage,
			Title:   "New Message from Client",
			Content: truncate(req.Content, 100),
			Icon:    "info",
		}
		return tx.Create(&notification).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to send message",
			},
		})
		return
	}

	services.SendAdminMessageEmail(order, req.Content)

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    message,
	})
}

// OrderUpdates handles GET /api/v1/track/order/:code/updates - returns
// messages and notifications created after the optional ?since timestamp,
// for polling clients.
func OrderUpdates(c *gin.Context) {
	order := authorizeOrderAccess(c)
	if order == nil {
		return
	}

	since := time.Time{}
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "since must be an RFC3339 timestamp",
				},
			})
			return
		}
		since = parsed
	}

	db := config.GetDB()
	var messages []models.Message
	if err := db.Where("order_id = ? AND created_at > ?", order.ID, since).
		Order("created_at ASC").Find(&messages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load updates",
			},
		})
		return
	}

	var notifications []models.Notification
	if err := db.Where("order_id = ? AND created_at > ?", order.ID, since).
		Order("created_at ASC").Find(&notifications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load updates",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"messages":      messages,
			"notifications": notifications,
			"server_time":   time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// RequestAccessKey handles POST /api/v1/track/order/:code/access-key - emails
// a freshly issued access key to the address on file. The key is never
// returned in the response, and the endpoint answers the same way whether or
// not the email could be delivered.
func RequestAccessKey(c *gin.Context) {
	code := c.Param("code")

	tracking := services.NewTrackingService(config.GetDB())
	order, err := tracking.FindByCode(code)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ORDER_NOT_FOUND",
				"message": "Order not found",
			},
		})
		return
	}

	if !order.IsQueueActive() {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ORDER_IN_QUEUE",
				"message": "This order is still in queue. You will receive tracking access when your turn arrives.",
			},
		})
		return
	}

	accessKey, err := tracking.RegeneratePassword(order)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to issue access key",
			},
		})
		return
	}

	services.SendTrackingCodeEmail(order, order.TrackingCode, accessKey)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message": "A new access key has been sent to the email address on file.",
		},
	})
}

// truncate shortens s to at most n runes so multi-byte characters are
// never split mid-sequence
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
