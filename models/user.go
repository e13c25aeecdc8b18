package models

import "time"

// User represents a customer account. Customers own zero or more orders
// and must verify their email address before logging in.
type User struct {
	ID                         uint       `gorm:"primaryKey" json:"id"`
	Username                   string     `gorm:"size:80;uniqueIndex;not null" json:"username"`
	Email                      string     `gorm:"size:120;uniqueIndex;not null" json:"email"`
	PasswordHash               string     `gorm:"size:200;not null" json:"-"`
	FullName                   string     `gorm:"size:100" json:"full_name,omitempty"`
	Phone                      string     `gorm:"size:20" json:"phone,omitempty"`
	Company                    string     `gorm:"size:100" json:"company,omitempty"`
	AvatarS3Key                string     `gorm:"size:500" json:"-"`
	AvatarURL                  string     `gorm:"-" json:"avatar_url,omitempty"` // presigned, computed on read
	IsActive                   bool       `gorm:"not null;default:true" json:"is_active"`
	EmailVerified              bool       `gorm:"not null;default:false" json:"email_verified"`
	EmailVerificationCodeHash  string     `gorm:"size:200" json:"-"`
	EmailVerificationExpiresAt *time.Time `json:"-"`
	LastVerificationSentAt     *time.Time `json:"-"`
	LastLogin                  *time.Time `json:"last_login,omitempty"`
	CreatedAt                  time.Time  `json:"created_at"`
	UpdatedAt                  time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}
