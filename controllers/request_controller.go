package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ismailsoloyt12-stack/zetsuserv/config"
	"github.com/ismailsoloyt12-stack/zetsuserv/middleware"
	"github.com/ismailsoloyt12-stack/zetsuserv/models"
	"github.com/ismailsoloyt12-stack/zetsuserv/services"
)

// SubmitRequestBody represents the request body for submitting a service request
type SubmitRequestBody struct {
	ClientName     string   `json:"client_name" binding:"required,max=100"`
	ClientEmail    string   `json:"client_email" binding:"required,email,max=120"`
	Phone          string   `json:"phone" binding:"required,max=20"`
	ProjectTitle   string   `json:"project_title" binding:"required,max=200"`
	ProjectType    string   `json:"project_type" binding:"required,oneof=landing business ecommerce"`
	PagesRequired  int      `json:"pages_required" binding:"required,gt=0"`
	Budget         string   `json:"budget" binding:"required,max=100"`
	Details        string   `json:"details" binding:"required"`
	AttachmentKeys []string `json:"attachment_keys" binding:"omitempty,max=10"`
}

// SubmitRequest handles POST /api/v1/requests - submits a new service request.
// The new order is activated immediately when no other order is active,
// otherwise it joins the end of the waiting queue. The access key is included
// in the response exactly once, as a fallback in case the email never arrives.
func SubmitRequest(c *gin.Context) {
	var req SubmitRequestBody
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

	input := services.SubmitOrderInput{
		ClientName:    req.ClientName,
		ClientEmail:   req.ClientEmail,
		Phone:         req.Phone,
		ProjectTitle:  req.ProjectTitle,
		ProjectType:   req.ProjectType,
		PagesRequired: req.PagesRequired,
		Budget:        req.Budget,
		Details:       req.Details,
		Attachments:   req.AttachmentKeys,
	}

	// Link the order to the client's account when they are logged in
	if claims, err := middleware.GetPrincipal(c); err == nil && claims.Kind == middleware.PrincipalClient {
		if id, err := strconv.ParseUint(claims.Subject, 10, 32); err == nil {
			userID := uint(id)
			input.UserID = &userID
		}
	}

	queue := services.NewQueueService(config.GetDB())
	result, err := queue.Submit(input)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to submit request",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"order":          result.Order,
			"tracking_code":  result.Order.TrackingCode,
			"access_key":     result.AccessKey,
			"activated":      result.Activated,
			"queue_position": result.Position,
		},
	})
}

// QueueStatus handles GET /api/v1/requests/:id/queue - returns the public
// queue state of an order. The tracking code is only revealed once the order
// is active.
func QueueStatus(c *gin.Context) {
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Order ID must be numeric",
			},
		})
		return
	}

	db := config.GetDB()
	var order models.Order
	if err := db.First(&order, orderID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ORDER_NOT_FOUND",
				"message": "Order not found",
			},
		})
		return
	}

	queue := services.NewQueueService(db)
	position := queue.ComputePosition(&order)

	data := gin.H{
		"order_id":       order.ID,
		"project_title":  order.ProjectTitle,
		"status":         order.Status,
		"queue_position": position,
		"is_active":      position == 0,
		"orders_ahead":   0,
	}
	if position > 0 {
		data["orders_ahead"] = position - 1
	} else {
		data["tracking_code"] = order.TrackingCode
		data["queue_activated_at"] = order.QueueActivatedAt
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}
