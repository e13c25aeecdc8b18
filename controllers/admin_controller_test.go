package controllers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ismailsoloyt12-stack/zetsuserv/middleware"
	"github.com/ismailsoloyt12-stack/zetsuserv/models"
	"github.com/ismailsoloyt12-stack/zetsuserv/services"
)

func createTestAdmin(t *testing.T, db *gorm.DB) *models.AdminUser {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("adminpass123"), bcrypt.MinCost)
	require.NoError(t, err)

	admin := models.AdminUser{
		Username:     "admin",
		Email:        "admin@zetsuserv.test",
		PasswordHash: string(hash),
	}
	require.NoError(t, db.Create(&admin).Error)
	return &admin
}

func TestAdminLogin(t *testing.T) {
	db := setupControllerTestDB(t)
	createTestAdmin(t, db)

	router := setupTestRouter()
	router.POST("/admin/login", AdminLogin)

	t.Run("Valid credentials", func(t *testing.T) {
		w := performJSON(t, router, http.MethodPost, "/admin/login",
			map[string]interface{}{"username": "admin", "password": "adminpass123"})
		require.Equal(t, http.StatusOK, w.Code)

		data := parseResponse(t, w)["data"].(map[string]interface{})
		claims, err := middleware.ParseToken(data["token"].(string))
		require.NoError(t, err)
		assert.Equal(t, middleware.PrincipalAdmin, claims.Kind)

		var stamped models.AdminUser
		require.NoError(t, db.Where("username = ?", "admin").First(&stamped).Error)
		require.NotNil(t, stamped.LastLogin)
		assert.WithinDuration(t, time.Now().UTC(), *stamped.LastLogin, 5*time.Second)
	})

	t.Run("Wrong password", func(t *testing.T) {
		w := performJSON(t, router, http.MethodPost, "/admin/login",
			map[string]interface{}{"username": "admin", "password": "wrong"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Customer credentials do not work here", func(t *testing.T) {
		createTestUser(t, db, "customer", true)
		w := performJSON(t, router, http.MethodPost, "/admin/login",
			map[string]interface{}{"username": "customer", "password": "password123"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestListRequests(t *testing.T) {
	db := setupControllerTestDB(t)
	active := createTestOrder(t, db, "active@example.com")
	createTestOrder(t, db, "waiting1@example.com")
	createTestOrder(t, db, "waiting2@example.com")
	require.NoError(t, db.Model(active.Order).Update("status", models.StatusInProgress).Error)

	router := setupTestRouter()
	router.GET("/admin/requests", ListRequests)

	t.Run("All requests with summary", func(t *testing.T) {
		w := performJSON(t, router, http.MethodGet, "/admin/requests", nil)
		require.Equal(t, http.StatusOK, w.Code)

		data := parseResponse(t, w)["data"].(map[string]interface{})
		assert.Len(t, data["requests"].([]interface{}), 3)

		summary := data["summary"].(map[string]interface{})
		assert.Equal(t, float64(3), summary["total"])
		assert.Equal(t, float64(1), summary["active"])
		assert.Equal(t, float64(2), summary["waiting"])
	})

	t.Run("Filter by status", func(t *testing.T) {
		w := performJSON(t, router, http.MethodGet, "/admin/requests?status=in_progress", nil)
		require.Equal(t, http.StatusOK, w.Code)

		data := parseResponse(t, w)["data"].(map[string]interface{})
		assert.Len(t, data["requests"].([]interface{}), 1)
	})

	t.Run("Unknown status filter", func(t *testing.T) {
		w := performJSON(t, router, http.MethodGet, "/admin/requests?status=bogus", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetRequest(t *testing.T) {
	db := setupControllerTestDB(t)
	order := createTestOrder(t, db, "client@example.com")

	router := setupTestRouter()
	router.GET("/admin/requests/:id", GetRequest)

	w := performJSON(t, router, http.MethodGet, fmt.Sprintf("/admin/requests/%d", order.Order.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := parseResponse(t, w)["data"].(map[string]interface{})
	assert.Len(t, data["progress_steps"].([]interface{}), 8)
	assert.Equal(t, float64(0), data["overall_progress"])
	assert.Equal(t, float64(0), data["queue_position"])

	w = performJSON(t, router, http.MethodGet, "/admin/requests/9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetRequestStatus(t *testing.T) {
	db := setupControllerTestDB(t)
	active := createTestOrder(t, db, "active@example.com")
	waiting := createTestOrder(t, db, "waiting@example.com")

	router := setupTestRouter()
	router.PUT("/admin/requests/:id/status", SetRequestStatus)

	statusURL := func(id uint) string {
		return fmt.Sprintf("/admin/requests/%d/status", id)
	}

	t.Run("Forward transition", func(t *testing.T) {
		w := performJSON(t, router, http.MethodPut, statusURL(active.Order.ID),
			map[string]interface{}{"status": models.StatusInProgress})
		require.Equal(t, http.StatusOK, w.Code)

		var reloaded models.Order
		require.NoError(t, db.First(&reloaded, active.Order.ID).Error)
		assert.Equal(t, models.StatusInProgress, reloaded.Status)

		// Status changes notify the client in-app
		var count int64
		db.Model(&models.Notification{}).
			Where("order_id = ? AND type = ?", active.Order.ID, models.NotificationStatusUpdate).
			Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Finishing the active order promotes the next in queue", func(t *testing.T) {
		w := performJSON(t, router, http.MethodPut, statusURL(active.Order.ID),
			map[string]interface{}{"status": models.StatusDelivered})
		require.Equal(t, http.StatusOK, w.Code)

		var promoted models.Order
		require.NoError(t, db.First(&promoted, waiting.Order.ID).Error)
		assert.Nil(t, promoted.QueuePosition)
		assert.Equal(t, models.StatusInProgress, promoted.Status)
		assert.NotNil(t, promoted.QueueActivatedAt)
	})

	t.Run("Backwards transition rejected", func(t *testing.T) {
		w := performJSON(t, router, http.MethodPut, statusURL(active.Order.ID),
			map[string]interface{}{"status": models.StatusNew})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		errorData := parseResponse(t, w)["error"].(map[string]interface{})
		assert.Equal(t, "INVALID_STATUS_TRANSITION", errorData["code"])
	})

	t.Run("Unknown status value", func(t *testing.T) {
		w := performJSON(t, router, http.MethodPut, statusURL(active.Order.ID),
			map[string]interface{}{"status": "archived"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Unknown order", func(t *testing.T) {
		w := performJSON(t, router, http.MethodPut, statusURL(9999),
			map[string]interface{}{"status": models.StatusClosed})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestActivateRequest(t *testing.T) {
	db := setupControllerTestDB(t)
	active := createTestOrder(t, db, "active@example.com")
	createTestOrder(t, db, "second@example.com")
	third := createTestOrder(t, db, "third@example.com")

	router := setupTestRouter()
	router.POST("/admin/requests/:id/activate", ActivateRequest)

	t.Run("Activate a waiting order out of turn", func(t *testing.T) {
		w := performJSON(t, router, http.MethodPost,
			fmt.Sprintf("/admin/requests/%d/activate", third.Order.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)

		var reloaded models.Order
		require.NoError(t, db.First(&reloaded, third.Order.ID).Error)
		assert.Nil(t, reloaded.QueuePosition)
	})

	t.Run("Active order cannot be activated again", func(t *testing.T) {
		w := performJSON(t, router, http.MethodPost,
			fmt.Sprintf("/admin/requests/%d/activate", active.Order.ID), nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		errorData := parseResponse(t, w)["error"].(map[string]interface{})
		assert.Equal(t, "ORDER_NOT_WAITING", errorData["code"])
	})

	t.Run("Unknown order", func(t *testing.T) {
		w := performJSON(t, router, http.MethodPost, "/admin/requests/9999/activate", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestRegenerateAccessKey(t *testing.T) {
	db := setupControllerTestDB(t)
	order := createTestOrder(t, db, "client@example.com")

	mock := services.NewMockMailer()
	mock.SetAsMockForTesting()
	defer services.SetMailer(nil)

	router := setupTestRouter()
	router.POST("/admin/requests/:id/access-key", RegenerateAccessKey)

	w := performJSON(t, router, http.MethodPost,
		fmt.Sprintf("/admin/requests/%d/access-key", order.Order.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := parseResponse(t, w)["data"].(map[string]interface{})
	newKey := data["access_key"].(string)
	assert.Len(t, newKey, 8)
	assert.NotEqual(t, order.AccessKey, newKey)

	// The client gets the new key by email as well
	require.NotNil(t, mock.LastEmail())
	assert.Equal(t, "client@example.com", mock.LastEmail().To)
	assert.Contains(t, mock.LastEmail().TextBody, newKey)
}

func TestDeleteRequest(t *testing.T) {
	db := setupControllerTestDB(t)
	order := createTestOrder(t, db, "client@example.com")

	require.NoError(t, db.Create(&models.Message{
		OrderID: order.Order.ID, SenderType: models.SenderClient, SenderName: "c", Content: "hi",
	}).Error)
	require.NoError(t, db.Create(&models.Notification{
		OrderID: order.Order.ID, Type: models.NotificationMessage, Title: "t", Content: "c",
	}).Error)

	router := setupTestRouter()
	router.DELETE("/admin/requests/:id", DeleteRequest)

	w := performJSON(t, router, http.MethodDelete,
		fmt.Sprintf("/admin/requests/%d", order.Order.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var count int64
	db.Model(&models.Order{}).Where("id = ?", order.Order.ID).Count(&count)
	assert.Equal(t, int64(0), count)
	db.Model(&models.Message{}).Where("order_id = ?", order.Order.ID).Count(&count)
	assert.Equal(t, int64(0), count)
	db.Model(&models.Notification{}).Where("order_id = ?", order.Order.ID).Count(&count)
	assert.Equal(t, int64(0), count)
	db.Model(&models.ProgressStep{}).Where("order_id = ?", order.Order.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestSendAdminMessage(t *testing.T) {
	db := setupControllerTestDB(t)
	order := createTestOrder(t, db, "client@example.com")

	mock := services.NewMockMailer()
	mock.SetAsMockForTesting()
	defer services.SetMailer(nil)

	router := setupTestRouter()
	router.POST("/admin/requests/:id/messages",
		mockPrincipalMiddleware(middleware.PrincipalAdmin, "1", "admin"),
		SendAdminMessage,
	)

	w := performJSON(t, router, http.MethodPost,
		fmt.Sprintf("/admin/requests/%d/messages", order.Order.ID),
		map[string]interface{}{"content": "We have started on your design."})
	require.Equal(t, http.StatusCreated, w.Code)

	var message models.Message
	require.NoError(t, db.Where("order_id = ?", order.Order.ID).First(&message).Error)
	assert.Equal(t, models.SenderAdmin, message.SenderType)
	assert.Equal(t, "admin", message.SenderName)

	var notification models.Notification
	require.NoError(t, db.Where("order_id = ? AND type = ?", order.Order.ID, models.NotificationMessage).
		First(&notification).Error)
	assert.Equal(t, "New Message from Admin", notification.Title)

	require.NotNil(t, mock.LastEmail())
	assert.Equal(t, "client@example.com", mock.LastEmail().To)
}

func TestUpdateProgressEndpoint(t *testing.T) {
	db := setupControllerTestDB(t)
	order := createTestOrder(t, db, "client@example.com")

	progress := services.NewProgressService(db)
	steps, err := progress.StepsForOrder(order.Order.ID)
	require.NoError(t, err)

	router := setupTestRouter()
	router.PUT("/admin/requests/:id/progress", UpdateProgress)

	url := fmt.Sprintf("/admin/requests/%d/progress", order.Order.ID)

	t.Run("Start a step", func(t *testing.T) {
		w := performJSON(t, router, http.MethodPut, url, map[string]interface{}{
			"step_id": steps[0].ID,
			"action":  services.ProgressActionStart,
		})
		require.Equal(t, http.StatusOK, w.Code)

		data := parseResponse(t, w)["data"].(map[string]interface{})
		step := data["step"].(map[string]interface{})
		assert.Equal(t, models.StepInProgress, step["status"])
		assert.Equal(t, float64(10), step["progress_percentage"])
		// 10 / 8 steps truncates to 1
		assert.Equal(t, float64(1), data["overall_progress"])
	})

	t.Run("Complete chains and recomputes overall", func(t *testing.T) {
		w := performJSON(t, router, http.MethodPut, url, map[string]interface{}{
			"step_id": steps[0].ID,
			"action":  services.ProgressActionComplete,
		})
		require.Equal(t, http.StatusOK, w.Code)

		data := parseResponse(t, w)["data"].(map[string]interface{})
		// First completed at 100, second auto-started at 10: (100+10)/8 = 13
		assert.Equal(t, float64(13), data["overall_progress"])
	})

	t.Run("Unknown step", func(t *testing.T) {
		w := performJSON(t, router, http.MethodPut, url, map[string]interface{}{
			"step_id": 9999,
			"action":  services.ProgressActionStart,
		})
		assert.Equal(t, http.StatusNotFound, w.Code)

		errorData := parseResponse(t, w)["error"].(map[string]interface{})
		assert.Equal(t, "STEP_NOT_FOUND", errorData["code"])
	})

	t.Run("Unknown action", func(t *testing.T) {
		w := performJSON(t, router, http.MethodPut, url, map[string]interface{}{
			"step_id": steps[1].ID,
			"action":  "teleport",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestQueueOverview(t *testing.T) {
	db := setupControllerTestDB(t)
	active := createTestOrder(t, db, "active@example.com")
	second := createTestOrder(t, db, "second@example.com")
	third := createTestOrder(t, db, "third@example.com")

	router := setupTestRouter()
	router.GET("/admin/queue", QueueOverview)

	w := performJSON(t, router, http.MethodGet, "/admin/queue", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := parseResponse(t, w)["data"].(map[string]interface{})
	activeData := data["active"].(map[string]interface{})
	assert.Equal(t, float64(active.Order.ID), activeData["id"])

	waiting := data["waiting"].([]interface{})
	require.Len(t, waiting, 2)
	assert.Equal(t, float64(second.Order.ID), waiting[0].(map[string]interface{})["id"])
	assert.Equal(t, float64(third.Order.ID), waiting[1].(map[string]interface{})["id"])
}

func TestListAndDeleteUsers(t *testing.T) {
	db := setupControllerTestDB(t)
	user := createTestUser(t, db, "doomed", true)
	createTestUser(t, db, "survivor", true)

	order := createTestOrder(t, db, "doomed@example.com")
	require.NoError(t, db.Model(order.Order).Update("user_id", user.ID).Error)

	router := setupTestRouter()
	router.GET("/admin/users", ListUsers)
	router.DELETE("/admin/users/:id", DeleteUser)

	w := performJSON(t, router, http.MethodGet, "/admin/users", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, parseResponse(t, w)["data"].([]interface{}), 2)

	w = performJSON(t, router, http.MethodDelete, fmt.Sprintf("/admin/users/%d", user.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var count int64
	db.Model(&models.User{}).Where("id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(0), count)

	// The order survives, detached from the deleted account
	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, order.Order.ID).Error)
	assert.Nil(t, reloaded.UserID)

	w = performJSON(t, router, http.MethodDelete, "/admin/users/9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
