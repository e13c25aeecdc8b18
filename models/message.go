package models

import "time"

// Message sender types
const (
	SenderAdmin  = "admin"
	SenderClient = "client"
)

// Message is one entry in the admin/client conversation attached to an order
type Message struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OrderID    uint      `gorm:"not null;index" json:"order_id"`
	SenderType string    `gorm:"size:20;not null" json:"sender_type"` // admin or client
	SenderName string    `gorm:"size:100;not null" json:"sender_name"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	IsRead     bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for the Message model
func (Message) TableName() string {
	return "messages"
}
