package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ismailsoloyt12-stack/zetsuserv/config"
	"github.com/ismailsoloyt12-stack/zetsuserv/controllers"
	"github.com/ismailsoloyt12-stack/zetsuserv/middleware"
	"github.com/ismailsoloyt12-stack/zetsuserv/models"
	"github.com/ismailsoloyt12-stack/zetsuserv/services"
	"github.com/ismailsoloyt12-stack/zetsuserv/tests/testutil"
)

// OrderFlowIntegrationTestSuite exercises the whole intake, queue and
// tracking pipeline through real HTTP handlers with real middleware.
type OrderFlowIntegrationTestSuite struct {
	suite.Suite
	router *gin.Engine
	db     *gorm.DB
	mailer *services.MockMailer
}

func (s *OrderFlowIntegrationTestSuite) SetupSuite() {
	testutil.MustSetTestEnvironment(s.T())
	gin.SetMode(gin.TestMode)
	testutil.SetTestConfig()
}

func (s *OrderFlowIntegrationTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	s.Require().NoError(err)
	s.db = db

	s.Require().NoError(db.AutoMigrate(
		&models.User{},
		&models.AdminUser{},
		&models.Order{},
		&models.ProgressStep{},
		&models.Message{},
		&models.Notification{},
	))
	config.SetDB(db)

	s.mailer = services.NewMockMailer()
	s.mailer.SetAsMockForTesting()

	router := gin.New()
	v1 := router.Group("/api/v1")
	{
		v1.POST("/requests", middleware.OptionalAuth(), controllers.SubmitRequest)
		v1.GET("/requests/:id/queue", controllers.QueueStatus)
		v1.POST("/track/auth", controllers.TrackingAuth)
		track := v1.Group("/track/order", middleware.RequireAuth(middleware.PrincipalTracking, middleware.PrincipalClient))
		{
			track.GET("/:code", controllers.TrackOrder)
			track.POST("/:code/messages", controllers.SendClientMessage)
		}
		v1.POST("/admin/login", controllers.AdminLogin)
		admin := v1.Group("/admin", middleware.RequireAuth(middleware.PrincipalAdmin))
		{
			admin.GET("/requests", controllers.ListRequests)
			admin.PUT("/requests/:id/status", controllers.SetRequestStatus)
			admin.PUT("/requests/:id/progress", controllers.UpdateProgress)
			admin.GET("/queue", controllers.QueueOverview)
		}
	}
	s.router = router
}

func (s *OrderFlowIntegrationTestSuite) TearDownTest() {
	services.SetMailer(nil)
}

func (s *OrderFlowIntegrationTestSuite) request(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *OrderFlowIntegrationTestSuite) data(w *httptest.ResponseRecorder) map[string]interface{} {
	var response map[string]interface{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	s.Require().NotNil(response["data"], "response had no data: %s", w.Body.String())
	return response["data"].(map[string]interface{})
}

func (s *OrderFlowIntegrationTestSuite) submit(email string) map[string]interface{} {
	w := s.request(http.MethodPost, "/api/v1/requests", "", map[string]interface{}{
		"client_name":    "Integration Client",
		"client_email":   email,
		"phone":          "+1234567890",
		"project_title":  "Integration Project",
		"project_type":   "business",
		"pages_required": 6,
		"budget":         "$3000",
		"details":        "Company site with a blog",
	})
	s.Require().Equal(http.StatusCreated, w.Code)
	return s.data(w)
}

func (s *OrderFlowIntegrationTestSuite) createAdmin() string {
	hash, err := bcrypt.GenerateFromPassword([]byte("adminpass123"), bcrypt.MinCost)
	s.Require().NoError(err)
	admin := models.AdminUser{Username: "admin", Email: "admin@zetsuserv.test", PasswordHash: string(hash)}
	s.Require().NoError(s.db.Create(&admin).Error)

	w := s.request(http.MethodPost, "/api/v1/admin/login", "", map[string]interface{}{
		"username": "admin",
		"password": "adminpass123",
	})
	s.Require().Equal(http.StatusOK, w.Code)
	return s.data(w)["token"].(string)
}

// accessKeyFromEmail pulls the plaintext access key out of the most recent
// notification email, the way a real client would read it
func (s *OrderFlowIntegrationTestSuite) accessKeyFromEmail() string {
	last := s.mailer.LastEmail()
	s.Require().NotNil(last)

	match := regexp.MustCompile(`Access key: ([A-Za-z0-9]{8})`).FindStringSubmatch(last.TextBody)
	s.Require().Len(match, 2, "no access key in email body: %s", last.TextBody)
	return match[1]
}

func (s *OrderFlowIntegrationTestSuite) TestFullQueueLifecycle() {
	// First submission takes the active slot immediately
	first := s.submit("first@example.com")
	s.True(first["activated"].(bool))
	firstCode := first["tracking_code"].(string)
	firstKey := first["access_key"].(string)

	// Second submission waits at position 1
	second := s.submit("second@example.com")
	s.False(second["activated"].(bool))
	s.Equal(float64(1), second["queue_position"])
	secondOrder := second["order"].(map[string]interface{})
	secondID := uint(secondOrder["id"].(float64))
	secondCode := secondOrder["tracking_code"].(string)
	secondKey := second["access_key"].(string)

	// The active client can authenticate, the waiting one cannot
	w := s.request(http.MethodPost, "/api/v1/track/auth", "", map[string]interface{}{
		"tracking_code": firstCode, "access_key": firstKey,
	})
	s.Equal(http.StatusOK, w.Code)
	trackingToken := s.data(w)["token"].(string)

	w = s.request(http.MethodPost, "/api/v1/track/auth", "", map[string]interface{}{
		"tracking_code": secondCode, "access_key": secondKey,
	})
	s.Equal(http.StatusForbidden, w.Code)

	// The active client sees their order page
	w = s.request(http.MethodGet, "/api/v1/track/order/"+firstCode, trackingToken, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Len(s.data(w)["progress_steps"].([]interface{}), 8)

	// Admin advances the active order to delivered, which promotes the next
	adminToken := s.createAdmin()
	firstOrder := first["order"].(map[string]interface{})
	firstID := uint(firstOrder["id"].(float64))

	w = s.request(http.MethodPut, fmt.Sprintf("/api/v1/admin/requests/%d/status", firstID), adminToken,
		map[string]interface{}{"status": "delivered"})
	s.Equal(http.StatusOK, w.Code)

	var promoted models.Order
	s.Require().NoError(s.db.First(&promoted, secondID).Error)
	s.Nil(promoted.QueuePosition)
	s.Equal(models.StatusInProgress, promoted.Status)

	// The promoted client reads the fresh access key from the activation
	// email and can now authenticate
	newKey := s.accessKeyFromEmail()
	w = s.request(http.MethodPost, "/api/v1/track/auth", "", map[string]interface{}{
		"tracking_code": secondCode, "access_key": newKey,
	})
	s.Equal(http.StatusOK, w.Code)

	// The old key from submission time no longer works
	w = s.request(http.MethodPost, "/api/v1/track/auth", "", map[string]interface{}{
		"tracking_code": secondCode, "access_key": secondKey,
	})
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *OrderFlowIntegrationTestSuite) TestProgressDrivesTrackingView() {
	first := s.submit("client@example.com")
	firstOrder := first["order"].(map[string]interface{})
	orderID := uint(firstOrder["id"].(float64))
	code := first["tracking_code"].(string)
	key := first["access_key"].(string)

	adminToken := testutil.AdminToken(s.T(), 1, "admin")

	var steps []models.ProgressStep
	s.Require().NoError(s.db.Where("order_id = ?", orderID).Order("step_number ASC").Find(&steps).Error)
	s.Require().Len(steps, 8)

	// Admin completes the first step; the second auto-starts
	w := s.request(http.MethodPut, fmt.Sprintf("/api/v1/admin/requests/%d/progress", orderID), adminToken,
		map[string]interface{}{"step_id": steps[0].ID, "action": "complete"})
	s.Equal(http.StatusOK, w.Code)

	// The client sees the change on the tracking page
	w = s.request(http.MethodPost, "/api/v1/track/auth", "", map[string]interface{}{
		"tracking_code": code, "access_key": key,
	})
	s.Require().Equal(http.StatusOK, w.Code)
	trackingToken := s.data(w)["token"].(string)

	w = s.request(http.MethodGet, "/api/v1/track/order/"+code, trackingToken, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	data := s.data(w)

	// (100 + 10) / 8 truncates to 13
	s.Equal(float64(13), data["overall_progress"])

	viewSteps := data["progress_steps"].([]interface{})
	s.Equal("completed", viewSteps[0].(map[string]interface{})["status"])
	s.Equal("in_progress", viewSteps[1].(map[string]interface{})["status"])
}

func (s *OrderFlowIntegrationTestSuite) TestClientMessageReachesAdmin() {
	first := s.submit("client@example.com")
	code := first["tracking_code"].(string)

	trackingToken := testutil.TrackingToken(s.T(), code)

	w := s.request(http.MethodPost, "/api/v1/track/order/"+code+"/messages", trackingToken,
		map[string]interface{}{"content": "Can we add a gallery page?"})
	s.Equal(http.StatusCreated, w.Code)

	// The admin notification email lands at the configured admin address
	last := s.mailer.LastEmail()
	s.Require().NotNil(last)
	s.Equal("admin@zetsuserv.test", last.To)
	s.Contains(last.TextBody, "Can we add a gallery page?")
}

func TestOrderFlowIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(OrderFlowIntegrationTestSuite))
}
