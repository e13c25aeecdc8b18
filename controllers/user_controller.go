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
	"github.com/ismailsoloyt12-stack/zetsuserv/utils"
)

// RegisterBody represents the request body for user registration
type RegisterBody struct {
	Username string `json:"username" binding:"required,min=3,max=80"`
	Email    string `json:"email" binding:"required,email,max=120"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	FullName string `json:"full_name" binding:"omitempty,max=100"`
	Phone    string `json:"phone" binding:"omitempty,max=20"`
	Company  string `json:"company" binding:"omitempty,max=100"`
}

// Register handles POST /api/v1/auth/register - creates an unverified
// customer account and emails a 6-digit verification code
func Register(c *gin.Context) {
	var req RegisterBody
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
	var existing models.User
	if err := db.Where("username = ? OR email = ?", req.Username, req.Email).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "USER_EXISTS",
				"message": "A user with this username or email already exists",
			},
		})
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to create account",
			},
		})
		return
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(passwordHash),
		FullName:     req.FullName,
		Phone:        req.Phone,
		Company:      req.Company,
		IsActive:     true,
	}
	if err := db.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to create account",
			},
		})
		return
	}

	verification := services.NewVerificationService(db)
	code, err := verification.IssueCode(&user)
	if err != nil {
		logger.Errorf("failed to issue verification code for user %d: %v", user.ID, err)
	} else {
		services.SendVerificationCodeEmail(&user, code)
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"user":    user,
			"message": "We've sent a 6-digit verification code to your email. Please verify to complete registration.",
		},
	})
}

// VerifyEmailBody represents the request body for email verification
type VerifyEmailBody struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6,numeric"`
}

// VerifyEmail handles POST /api/v1/auth/verify-email - checks the submitted
// code and, on success, marks the account verified and logs the user in
func VerifyEmail(c *gin.Context) {
	var req VerifyEmailBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Please enter a valid 6-digit code",
			},
		})
		return
	}

	db := config.GetDB()
	var user models.User
	if err := db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "USER_NOT_FOUND",
				"message": "User not found. Please register first.",
			},
		})
		return
	}

	if !user.EmailVerified {
		verification := services.NewVerificationService(db)
		if err := verification.Verify(&user, req.Code); err != nil {
			status := http.StatusBadRequest
			code := "CODE_INVALID"
			message := "Invalid verification code. Please try again."
			switch {
			case errors.Is(err, services.ErrCodeExpired):
				code = "CODE_EXPIRED"
				message = "Verification code has expired. Please request a new code."
			case errors.Is(err, services.ErrNoCodePending):
				code = "NO_CODE_PENDING"
				message = "No verification code found. Please request a new code."
			}
			c.JSON(status, gin.H{
				"success": false,
				"error": gin.H{
					"code":    code,
					"message": message,
				},
			})
			return
		}
	}

	touchLastLogin(db, &user)

	token, err := middleware.IssueToken(middleware.PrincipalClient, strconv.FormatUint(uint64(user.ID), 10), user.Username, middleware.AccountTokenTTL)
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
			"user":  user,
			"token": token,
		},
	})
}

// ResendVerificationBody represents the request body for resending the code
type ResendVerificationBody struct {
	Email string `json:"email" binding:"required,email"`
}

// ResendVerification handles POST /api/v1/auth/verify-email/resend with a
// 60-second rate limit between sends
func ResendVerification(c *gin.Context) {
	var req ResendVerificationBody
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
	var user models.User
	if err := db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "USER_NOT_FOUND",
				"message": "User not found. Please register first.",
			},
		})
		return
	}

	if user.EmailVerified {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ALREADY_VERIFIED",
				"message": "This email is already verified. Please log in.",
			},
		})
		return
	}

	verification := services.NewVerificationService(db)
	code, err := verification.Resend(&user)
	if err != nil {
		var throttled *services.ResendThrottledError
		if errors.As(err, &throttled) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error": gin.H{
					"code":        "RATE_LIMITED",
					"message":     "Please wait before resending.",
					"retry_after": throttled.RetryAfter,
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to send code. Please try again.",
			},
		})
		return
	}

	services.SendVerificationCodeEmail(&user, code)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message": "Verification code sent successfully!",
		},
	})
}

// LoginBody represents the request body for customer login
type LoginBody struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/v1/auth/login - authenticates a verified customer
// by username or email
func Login(c *gin.Context) {
	var req LoginBody
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
	var user models.User
	if err := db.Where("username = ? OR email = ?", req.Username, req.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_CREDENTIALS",
				"message": "Invalid username or password",
			},
		})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_CREDENTIALS",
				"message": "Invalid username or password",
			},
		})
		return
	}

	if !user.IsActive {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ACCOUNT_DISABLED",
				"message": "This account has been disabled",
			},
		})
		return
	}

	if !user.EmailVerified {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "EMAIL_NOT_VERIFIED",
				"message": "Please verify your email address before logging in",
			},
		})
		return
	}

	touchLastLogin(db, &user)

	token, err := middleware.IssueToken(middleware.PrincipalClient, strconv.FormatUint(uint64(user.ID), 10), user.Username, middleware.AccountTokenTTL)
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
			"user":  user,
			"token": token,
		},
	})
}

// currentUser loads the customer identified by the validated claims
func currentUser(c *gin.Context) (*models.User, bool) {
	claims, err := middleware.GetPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return nil, false
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Invalid token subject",
			},
		})
		return nil, false
	}

	var user models.User
	if err := config.GetDB().First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "USER_NOT_FOUND",
				"message": "User profile not found",
			},
		})
		return nil, false
	}

	return &user, true
}

// GetProfile handles GET /api/v1/me - returns the logged-in customer profile
func GetProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	attachAvatarURL(user)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
	})
}

// UpdateProfileBody represents the request body for profile updates
type UpdateProfileBody struct {
	FullName *string `json:"full_name" binding:"omitempty,max=100"`
	Phone    *string `json:"phone" binding:"omitempty,max=20"`
	Company  *string `json:"company" binding:"omitempty,max=100"`
}

// UpdateProfile handles PATCH /api/v1/me - partial profile update
func UpdateProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req UpdateProfileBody
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

	updates := map[string]interface{}{}
	if req.FullName != nil {
		updates["full_name"] = *req.FullName
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Company != nil {
		updates["company"] = *req.Company
	}

	if len(updates) > 0 {
		if err := config.GetDB().Model(user).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_ERROR",
					"message": "Failed to update profile",
				},
			})
			return
		}
	}

	attachAvatarURL(user)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
	})
}

// MyOrders handles GET /api/v1/me/orders - lists the customer's orders with
// their recomputed queue positions
func MyOrders(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	db := config.GetDB()
	var orders []models.Order
	if err := db.Where("user_id = ?", user.ID).Order("created_at DESC").Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load orders",
			},
		})
		return
	}

	queue := services.NewQueueService(db)
	entries := make([]gin.H, 0, len(orders))
	for i := range orders {
		entries = append(entries, gin.H{
			"order":          orders[i],
			"queue_position": queue.ComputePosition(&orders[i]),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    entries,
	})
}

// UploadAvatar handles POST /api/v1/me/avatar - stores a new avatar image
// and returns its presigned URL
func UploadAvatar(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Avatar file is required",
			},
		})
		return
	}

	if err := utils.ValidateAvatar(fileHeader); err != nil {
		var uploadErr *utils.FileUploadError
		code := "VALIDATION_ERROR"
		if errors.As(err, &uploadErr) {
			code = uploadErr.Code
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    code,
				"message": err.Error(),
			},
		})
		return
	}

	storage := services.GetStorage()
	if storage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "STORAGE_UNAVAILABLE",
				"message": "File storage is not configured",
			},
		})
		return
	}

	key, err := storage.UploadFile(fileHeader, "avatars")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPLOAD_ERROR",
				"message": "Failed to store avatar",
			},
		})
		return
	}

	oldKey := user.AvatarS3Key
	if err := config.GetDB().Model(user).Update("avatar_s3_key", key).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to save avatar",
			},
		})
		return
	}
	user.AvatarS3Key = key

	// Old avatar is unreferenced now; losing it is harmless
	if oldKey != "" {
		if err := storage.DeleteFile(oldKey); err != nil {
			logger.Warnf("failed to delete old avatar %s: %v", oldKey, err)
		}
	}

	attachAvatarURL(user)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
	})
}

func attachAvatarURL(user *models.User) {
	if user.AvatarS3Key == "" {
		return
	}
	storage := services.GetStorage()
	if storage == nil {
		return
	}
	url, err := storage.GetPresignedURL(user.AvatarS3Key)
	if err != nil {
		logger.Warnf("failed to presign avatar for user %d: %v", user.ID, err)
		return
	}
	user.AvatarURL = url
}

func touchLastLogin(db *gorm.DB, user *models.User) {
	now := time.Now().UTC()
	user.LastLogin = &now
	if err := db.Model(user).Update("last_login", now).Error; err != nil {
		logger.Warnf("failed to update last login for user %d: %v", user.ID, err)
	}
}
