package models

import "time"

// Notification types
const (
	NotificationStatusUpdate = "status_update"
	NotificationMessage      = "message"
	NotificationMilestone    = "milestone"
	NotificationQueue        = "queue"
)

// Notification is an in-app update shown on the order tracking page
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"not null;index" json:"order_id"`
	Type      string    `gorm:"size:50;not null" json:"type"`
	Title     string    `gorm:"size:200;not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Icon      string    `gorm:"size:50;default:'info'" json:"icon"` // success, warning, info, error
	IsRead    bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for the Notification model
func (Notification) TableName() string {
	return "notifications"
}
