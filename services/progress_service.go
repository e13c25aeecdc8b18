package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ismailsoloyt12-stack/zetsuserv/models"
)

// Progress step actions
const (
	ProgressActionStart    = "start"
	ProgressActionUpdate   = "update"
	ProgressActionComplete = "complete"
	ProgressActionReset    = "reset"
)

// defaultStartPercentage is applied when a step is started without an
// explicit percentage
const defaultStartPercentage = 10

var (
	// ErrStepNotFound is returned when a step id does not belong to the order
	ErrStepNotFound = errors.New("progress step not found")
	// ErrUnknownAction is returned for an unrecognized progress action
	ErrUnknownAction = errors.New("unknown progress action")
)

// ProgressService drives the per-step delivery state machine of an order
type ProgressService struct {
	db *gorm.DB
}

// NewProgressService creates a progress service backed by db
func NewProgressService(db *gorm.DB) *ProgressService {
	return &ProgressService{db: db}
}

// buildDefaultSteps materializes the fixed 8-step template for a new order,
// all pending at 0%
func buildDefaultSteps(orderID uint) []models.ProgressStep {
	steps := make([]models.ProgressStep, 0, len(models.DefaultStepTemplates))
	for _, tmpl := range models.DefaultStepTemplates {
		steps = append(steps, models.ProgressStep{
			OrderID:         orderID,
			StepNumber:      tmpl.Number,
			StepName:        tmpl.Name,
			StepDescription: tmpl.Description,
			Status:          models.StepPending,
		})
	}
	return steps
}

// CreateDefaultSteps creates the fixed step sequence for an order. Used for
// orders that predate step tracking; new orders get their steps at submit.
func (s *ProgressService) CreateDefaultSteps(orderID uint) ([]models.ProgressStep, error) {
	steps := buildDefaultSteps(orderID)
	if err := s.db.Create(&steps).Error; err != nil {
		return nil, fmt.Errorf("failed to create progress steps: %w", err)
	}
	return steps, nil
}

// StepsForOrder returns the order's steps in sequence order, creating the
// default set lazily when none exist yet
func (s *ProgressService) StepsForOrder(orderID uint) ([]models.ProgressStep, error) {
	var steps []models.ProgressStep
	if err := s.db.Where("order_id = ?", orderID).Order("step_number ASC").Find(&steps).Error; err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return s.CreateDefaultSteps(orderID)
	}
	return steps, nil
}

// UpdateStep applies one admin action to a step:
//
//	start    - pending -> in_progress, stamps started_at, percentage defaults to 10
//	update   - clamps percentage into [0,100] without touching status
//	complete - -> completed at 100%, stamps completed_at, auto-starts the next
//	           pending step so the sequence chains forward
//	reset    - back to pending, clearing timestamps and percentage
//
// Milestone notifications are created for start and complete in the same
// transaction.
func (s *ProgressService) UpdateStep(orderID, stepID uint, action string, percentage int, notes string) (*models.ProgressStep, error) {
	var step models.ProgressStep

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND order_id = ?", stepID, orderID).First(&step).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrStepNotFound
			}
			return err
		}

		now := time.Now().UTC()
		var notification *models.Notification

		switch action {
		case ProgressActionStart:
			step.Status = models.StepInProgress
			step.StartedAt = &now
			if percentage > 0 {
				step.ProgressPercentage = clampPercentage(percentage)
			} else {
				step.ProgressPercentage = defaultStartPercentage
			}
			notification = &models.Notification{
				OrderID: orderID,
				Type:    models.NotificationMilestone,
				Title:   fmt.Sprintf("Progress Update: %s", step.StepName),
				Content: fmt.Sprintf("Work has started on: %s", step.StepName),
				Icon:    "success",
			}

		case ProgressActionComplete:
			step.Status = models.StepCompleted
			step.CompletedAt = &now
			step.ProgressPercentage = 100
			notification = &models.Notification{
				OrderID: orderID,
				Type:    models.NotificationMilestone,
				Title:   fmt.Sprintf("Milestone Completed: %s", step.StepName),
				Content: fmt.Sprintf("%s has been completed successfully!", step.StepName),
				Icon:    "success",
			}

			// Chain: auto-start the next pending step in sequence
			var next models.ProgressStep
			err := tx.Where("order_id = ? AND step_number > ? AND status = ?",
				orderID, step.StepNumber, models.StepPending).
				Order("step_number ASC").First(&next).Error
			if err == nil {
				next.Status = models.StepInProgress
				next.StartedAt = &now
				next.ProgressPercentage = defaultStartPercentage
				if err := tx.Save(&next).Error; err != nil {
					return fmt.Errorf("failed to auto-start next step: %w", err)
				}
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

		case ProgressActionUpdate:
			step.ProgressPercentage = clampPercentage(percentage)

		case ProgressActionReset:
			step.Status = models.StepPending
			step.ProgressPercentage = 0
			step.StartedAt = nil
			step.CompletedAt = nil

		default:
			return ErrUnknownAction
		}

		if notes != "" {
			step.Notes = notes
		}

		// Save with explicit column list so clearing timestamps on reset
		// writes NULLs instead of being skipped as zero values
		if err := tx.Model(&models.ProgressStep{}).Where("id = ?", step.ID).
			Updates(map[string]interface{}{
				"status":              step.Status,
				"progress_percentage": step.ProgressPercentage,
				"started_at":          step.StartedAt,
				"completed_at":        step.CompletedAt,
				"notes":               step.Notes,
			}).Error; err != nil {
			return fmt.Errorf("failed to update step: %w", err)
		}

		if notification != nil {
			if err := tx.Create(notification).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &step, nil
}

// OverallProgress derives the order-level completion percentage from its
// steps: each completed step contributes its full equal share, each
// in-progress step contributes proportionally. Truncated to an integer.
// Always recomputed, never stored.
func OverallProgress(steps []models.ProgressStep) int {
	if len(steps) == 0 {
		return 0
	}

	completed := 0
	inProgressSum := 0
	for _, step := range steps {
		switch step.Status {
		case models.StepCompleted:
			completed++
		case models.StepInProgress:
			inProgressSum += step.ProgressPercentage
		}
	}

	return (completed*100 + inProgressSum) / len(steps)
}

func clampPercentage(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
