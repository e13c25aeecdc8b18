package models

import "time"

// Progress step statuses
const (
	StepPending    = "pending"
	StepInProgress = "in_progress"
	StepCompleted  = "completed"
)

// ProgressStep is one stage of the fixed delivery sequence for an order.
// Steps are created as a batch when the order is created and never reordered.
type ProgressStep struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	OrderID            uint       `gorm:"not null;index:idx_order_step,unique" json:"order_id"`
	StepNumber         int        `gorm:"not null;index:idx_order_step,unique" json:"step_number"`
	StepName           string     `gorm:"size:100;not null" json:"step_name"`
	StepDescription    string     `gorm:"type:text" json:"step_description"`
	Status             string     `gorm:"size:20;not null;default:'pending'" json:"status"` // pending, in_progress, completed
	ProgressPercentage int        `gorm:"not null;default:0" json:"progress_percentage"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	Notes              string     `gorm:"type:text" json:"notes,omitempty"`
}

// TableName specifies the table name for the ProgressStep model
func (ProgressStep) TableName() string {
	return "progress_steps"
}

// StepTemplate describes one entry of the default delivery sequence
type StepTemplate struct {
	Number      int
	Name        string
	Description string
}

// DefaultStepTemplates is the fixed 8-step delivery sequence every order
// starts with. Order and content are part of the client-facing contract.
var DefaultStepTemplates = []StepTemplate{
	{1, "Order Received", "Your order has been received and is being reviewed by our team."},
	{2, "Requirements Analysis", "Our team is analyzing your requirements and preparing a development plan."},
	{3, "Design Phase", "Creating mockups and design concepts for your approval."},
	{4, "Development", "Building your website with all requested features and functionality."},
	{5, "Testing & Optimization", "Ensuring everything works perfectly across all devices and browsers."},
	{6, "Domain & Hosting Setup", "Configuring your domain and hosting environment."},
	{7, "Final Review", "Final quality check and client approval."},
	{8, "Launch", "Your website is live and ready for the world!"},
}
