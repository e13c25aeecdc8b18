package models

import (
	"encoding/json"
	"time"
)

// Order statuses
const (
	StatusNew        = "new"
	StatusInProgress = "in_progress"
	StatusDelivered  = "delivered"
	StatusClosed     = "closed"
)

// Project types offered on the request form
const (
	ProjectTypeLanding   = "landing"
	ProjectTypeBusiness  = "business"
	ProjectTypeEcommerce = "ecommerce"
)

// Order represents one client service request in the system
type Order struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	UserID           *uint      `gorm:"index" json:"user_id,omitempty"` // set when a logged-in client submits
	ClientName       string     `gorm:"size:100;not null" json:"client_name"`
	ClientEmail      string     `gorm:"size:120;not null" json:"client_email"`
	Phone            string     `gorm:"size:20;not null" json:"phone"`
	ProjectTitle     string     `gorm:"size:200;not null" json:"project_title"`
	ProjectType      string     `gorm:"size:50;not null" json:"project_type"` // landing, business, ecommerce
	PagesRequired    int        `gorm:"not null" json:"pages_required"`
	Budget           string     `gorm:"size:100;not null" json:"budget"`
	Details          string     `gorm:"type:text;not null" json:"details"`
	UploadedFiles    string     `gorm:"type:text" json:"-"` // JSON array of S3 keys
	Status           string     `gorm:"size:20;not null;default:'new'" json:"status"`
	TrackingCode     string     `gorm:"size:20;uniqueIndex" json:"tracking_code,omitempty"`
	TrackingPassword string     `gorm:"size:200" json:"-"` // bcrypt hash of the access key
	QueuePosition    *int       `json:"queue_position"`    // nil or 0 means active, not waiting
	QueueActivatedAt *time.Time `json:"queue_activated_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// IsQueueActive reports whether the order holds the single active slot
// rather than waiting in the queue
func (o *Order) IsQueueActive() bool {
	return o.QueuePosition == nil || *o.QueuePosition == 0
}

// GetUploadedFiles returns the stored attachment keys as a slice
func (o *Order) GetUploadedFiles() []string {
	if o.UploadedFiles == "" {
		return nil
	}
	var files []string
	if err := json.Unmarshal([]byte(o.UploadedFiles), &files); err != nil {
		return nil
	}
	return files
}

// SetUploadedFiles stores the attachment keys as a JSON array
func (o *Order) SetUploadedFiles(files []string) error {
	if len(files) == 0 {
		o.UploadedFiles = ""
		return nil
	}
	data, err := json.Marshal(files)
	if err != nil {
		return err
	}
	o.UploadedFiles = string(data)
	return nil
}

// StatusDisplay returns the human-readable status label
func (o *Order) StatusDisplay() string {
	switch o.Status {
	case StatusNew:
		return "New"
	case StatusInProgress:
		return "In Progress"
	case StatusDelivered:
		return "Delivered"
	case StatusClosed:
		return "Closed"
	}
	return "Unknown"
}

// ProjectTypeDisplay returns the human-readable project type label
func (o *Order) ProjectTypeDisplay() string {
	switch o.ProjectType {
	case ProjectTypeLanding:
		return "Landing Page"
	case ProjectTypeBusiness:
		return "Business Website"
	case ProjectTypeEcommerce:
		return "E-commerce"
	}
	return "Other"
}
