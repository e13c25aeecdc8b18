package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ismailsoloyt12-stack/zetsuserv/config"
	"github.com/ismailsoloyt12-stack/zetsuserv/logger"
	"github.com/ismailsoloyt12-stack/zetsuserv/middleware"
	"github.com/ismailsoloyt12-stack/zetsuserv/models"
	"github.com/ismailsoloyt12-stack/zetsuserv/services"
)

// statusRank orders the lifecycle statuses so transitions can only move
// forward
var statusRank = map[string]int{
	models.StatusNew:        0,
	models.StatusInProgress: 1,
	models.StatusDelivered:  2,
	models.StatusClosed:     3,
}

// AdminLoginBody represents the request body for admin login
type AdminLoginBody struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AdminLogin handles POST /api/v1/admin/login
func AdminLogin(c *gin.Context) {
	var req AdminLoginBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
			},
		})
		return
	}

	db := config.GetDB()
	var admin models.AdminUser
	if err := db.Where("username = ?", req.Username).First(&admin).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_CREDENTIALS",
				"message": "Invalid username or password",
			},
		})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_CREDENTIALS",
				"message": "Invalid username or password",
			},
		})
		return
	}

	now := time.Now().UTC()
	admin.LastLogin = &now
	if err := db.Model(&admin).Update("last_login", now).Error; err != nil {
		logger.Warnf("failed to update last login for admin %d: %v", admin.ID, err)
	}

	token, err := middleware.IssueToken(middleware.PrincipalAdmin, strconv.FormatUint(uint64(admin.ID), 10), admin.Username, middleware.AccountTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "TOKEN_ERROR",
				"message": "Failed to issue token",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"admin": admin,
			"token": token,
		},
	})
}

// ListRequests handles GET /api/v1/admin/requests with an optional ?status=
// filter plus queue summary counts
func ListRequests(c *gin.Context) {
	db := config.GetDB()

	query := db.Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		if _, ok := statusRank[status]; !ok {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "Unknown status filter",
				},
			})
			return
		}
		query = query.Where("status = ?", status)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load requests",
			},
		})
		return
	}

	var total, waiting int64
	db.Model(&models.Order{}).Count(&total)
	db.Model(&models.Order{}).Where("queue_position IS NOT NULL AND queue_position > 0").Count(&waiting)
	var active int64
	db.Model(&models.Order{}).
		Where("(queue_position IS NULL OR queue_position = 0) AND status IN ?", []string{models.StatusNew, models.StatusInProgress}).
		Count(&active)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"requests": orders,
			"summary": gin.H{
				"total":   total,
				"active":  active,
				"waiting": waiting,
			},
		},
	})
}

// adminOrder resolves the :id route parameter to an order, writing the error
// response itself when the lookup fails
func adminOrder(c *gin.Context) (*models.Order, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request ID",
			},
		})
		return nil, false
	}

	var order models.Order
	if err := config.GetDB().First(&order, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ORDER_NOT_FOUND",
				"message": "Request not found",
			},
		})
		return nil, false
	}

	return &order, true
}

// GetRequest handles GET /api/v1/admin/requests/:id - full detail view
func GetRequest(c *gin.Context) {
	order, ok := adminOrder(c)
	if !ok {
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
	db.Where("order_id = ?", order.ID).Order("created_at ASC").Find(&messages)

	var notifications []models.Notification
	db.Where("order_id = ?", order.ID).Order("created_at DESC").Find(&notifications)

	queue := services.NewQueueService(db)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"order":            order,
			"queue_position":   queue.ComputePosition(order),
			"progress_steps":   steps,
			"overall_progress": services.OverallProgress(steps),
			"messages":         messages,
			"notifications":    notifications,
		},
	})
}

// SetRequestStatusBody represents the request body for status changes
type SetRequestStatusBody struct {
	Status string `json:"status" binding:"required,oneof=new in_progress delivered closed"`
}

// SetRequestStatus handles PUT /api/v1/admin/requests/:id/status. Statuses
// only move forward; finishing an order pulls the next one off the queue.
func SetRequestStatus(c *gin.Context) {
	order, ok := adminOrder(c)
	if !ok {
		return
	}

	var req SetRequestStatusBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid status value",
			},
		})
		return
	}

	if statusRank[req.Status] < statusRank[order.Status] {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_STATUS_TRANSITION",
				"message": "Status cannot move backwards",
			},
		})
		return
	}

	db := config.GetDB()
	previous := order.Status
	if err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(order).Update("status", req.Status).Error; err != nil {
			return err
		}
		if previous != req.Status {
			notification := models.Notification{
				OrderID: order.ID,
				Type:    models.NotificationStatusUpdate,
				Title:   "Status Updated",
				Content: "Your order status changed to " + order.StatusDisplay(),
				Icon:    "refresh",
			}
			if err := tx.Create(&notification).Error; err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to update status",
			},
		})
		return
	}
	order.Status = req.Status

	if req.Status == models.StatusDelivered || req.Status == models.StatusClosed {
		queue := services.NewQueueService(db)
		if next, err := queue.ActivateNext(); err != nil {
			logger.Errorf("failed to activate next queued order: %v", err)
		} else if next != nil {
			logger.Infof("order %d activated after order %d finished", next.ID, order.ID)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// ActivateRequest handles POST /api/v1/admin/requests/:id/activate - forces
// a waiting order to the active slot out of turn
func ActivateRequest(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request ID",
			},
		})
		return
	}

	queue := services.NewQueueService(config.GetDB())
	order, err := queue.ActivateOrder(uint(id))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "ORDER_NOT_FOUND",
					"message": "Request not found",
				},
			})
		case errors.Is(err, services.ErrOrderNotWaiting):
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "ORDER_NOT_WAITING",
					"message": "This request is not waiting in the queue",
				},
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_ERROR",
					"message": "Failed to activate request",
				},
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// RegenerateAccessKey handles POST /api/v1/admin/requests/:id/access-key.
// The new key goes to the admin and is re-emailed to the client.
func RegenerateAccessKey(c *gin.Context) {
	order, ok := adminOrder(c)
	if !ok {
		return
	}

	tracking := services.NewTrackingService(config.GetDB())
	accessKey, err := tracking.RegeneratePassword(order)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to regenerate access key",
			},
		})
		return
	}

	services.SendTrackingCodeEmail(order, order.TrackingCode, accessKey)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"tracking_code": order.TrackingCode,
			"access_key":    accessKey,
		},
	})
}

// DeleteRequest handles DELETE /api/v1/admin/requests/:id - removes the order
// with its messages, notifications and progress steps, then cleans up any
// uploaded files
func DeleteRequest(c *gin.Context) {
	order, ok := adminOrder(c)
	if !ok {
		return
	}

	db := config.GetDB()
	uploadedFiles := order.GetUploadedFiles()

	if err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.ProgressStep{}).Error; err != nil {
			return err
		}
		return tx.Delete(order).Error
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to delete request",
			},
		})
		return
	}

	if storage := services.GetStorage(); storage != nil {
		for _, key := range uploadedFiles {
			if err := storage.DeleteFile(key); err != nil {
				logger.Warnf("failed to delete attachment %s for order %d: %v", key, order.ID, err)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message": "Request deleted",
		},
	})
}

// AdminMessageBody represents the request body for admin replies
type AdminMessageBody struct {
	Content string `json:"content" binding:"required,max=5000"`
}

// SendAdminMessage handles POST /api/v1/admin/requests/:id/messages
func SendAdminMessage(c *gin.Context) {
	order, ok := adminOrder(c)
	if !ok {
		return
	}

	var req AdminMessageBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Message content is required",
			},
		})
		return
	}

	claims, _ := middleware.GetPrincipal(c)
	senderName := "Admin"
	if claims != nil && claims.Name != "" {
		senderName = claims.Name
	}

	db := config.GetDB()
	message := models.Message{
		OrderID:    order.ID,
		SenderType: models.SenderAdmin,
		SenderName: senderName,
		Content:    req.Content,
	}
	if err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&message).Error; err != nil {
			return err
		}
		notification := models.Notification{
			OrderID: order.ID,
			Type:    models.NotificationMessage,
			Title:   "New Message from Admin",
			Content: truncate(req.Content, 100),
			Icon:    "mail",
		}
		return tx.Create(&notification).Error
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to send message",
			},
		})
		return
	}

	services.SendClientMessageEmail(order, req.Content)

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    message,
	})
}

// UpdateProgressBody represents the request body for progress step changes
type UpdateProgressBody struct {
	StepID   uint   `json:"step_id" binding:"required"`
	Action   string `json:"action" binding:"required"`
	Progress int    `json:"progress" binding:"omitempty,min=0,max=100"`
	Notes    string `json:"notes" binding:"omitempty,max=1000"`
}

// UpdateProgress handles PUT /api/v1/admin/requests/:id/progress
func UpdateProgress(c *gin.Context) {
	order, ok := adminOrder(c)
	if !ok {
		return
	}

	var req UpdateProgressBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	db := config.GetDB()
	progress := services.NewProgressService(db)
	step, err := progress.UpdateStep(order.ID, req.StepID, req.Action, req.Progress, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrStepNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "STEP_NOT_FOUND",
					"message": "Progress step not found for this request",
				},
			})
		case errors.Is(err, services.ErrUnknownAction):
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "Unknown progress action",
				},
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_ERROR",
					"message": "Failed to update progress",
				},
			})
		}
		return
	}

	services.SendProgressUpdateEmail(order, step, req.Action)

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

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"step":             step,
			"progress_steps":   steps,
			"overall_progress": services.OverallProgress(steps),
		},
	})
}

// ListNotifications handles GET /api/v1/admin/notifications
func ListNotifications(c *gin.Context) {
	var notifications []models.Notification
	if err := config.GetDB().Order("created_at DESC").Limit(100).Find(&notifications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load notifications",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    notifications,
	})
}

// QueueOverview handles GET /api/v1/admin/queue - the active slot plus the
// waiting list in position order
func QueueOverview(c *gin.Context) {
	queue := services.NewQueueService(config.GetDB())
	active, waiting, err := queue.QueueSnapshot()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load queue",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"active":  active,
			"waiting": waiting,
		},
	})
}

// ListUsers handles GET /api/v1/admin/users
func ListUsers(c *gin.Context) {
	var users []models.User
	if err := config.GetDB().Order("created_at DESC").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load users",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    users,
	})
}

// DeleteUser handles DELETE /api/v1/admin/users/:id. Orders stay in the
// system but lose their account link.
func DeleteUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid user ID",
			},
		})
		return
	}

	db := config.GetDB()
	var user models.User
	if err := db.First(&user, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "USER_NOT_FOUND",
				"message": "User not found",
			},
		})
		return
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Order{}).Where("user_id = ?", user.ID).Update("user_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to delete user",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message": "User deleted",
		},
	})
}
