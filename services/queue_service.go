package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/ismailsoloyt12-stack/zetsuserv/logger"
	"github.com/ismailsoloyt12-stack/zetsuserv/models"
)

var (
	// ErrOrderNotFound is returned when an order id does not exist
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderNotWaiting is returned when activating an order that is not in the queue
	ErrOrderNotWaiting = errors.New("order is not waiting in the queue")
)

// queueMu serializes submit and activate so the single-active-slot invariant
// holds even under concurrent requests. The count-then-write logic below is
// not safe without it.
var queueMu sync.Mutex

// QueueService owns order intake, the single-slot activation queue and the
// FIFO waiting line behind it.
type QueueService struct {
	db *gorm.DB
}

// NewQueueService creates a queue service backed by db
func NewQueueService(db *gorm.DB) *QueueService {
	return &QueueService{db: db}
}

// SubmitOrderInput carries the validated fields of a new service request
type SubmitOrderInput struct {
	ClientName    string
	ClientEmail   string
	Phone         string
	ProjectTitle  string
	ProjectType   string
	PagesRequired int
	Budget        string
	Details       string
	Attachments   []string
	UserID        *uint
}

// SubmissionResult is what Submit hands back to the caller. AccessKey is the
// plaintext tracking key, returned exactly once so it can be shown to the
// client even when the notification email fails.
type SubmissionResult struct {
	Order     *models.Order
	AccessKey string
	Activated bool
	Position  int
}

// activeOrders scopes a query to orders holding the active slot
// (queue_position is null or 0)
func activeOrders(db *gorm.DB) *gorm.DB {
	return db.Model(&models.Order{}).Where("queue_position IS NULL OR queue_position = 0")
}

// waitingOrders scopes a query to orders waiting in the queue
func waitingOrders(db *gorm.DB) *gorm.DB {
	return db.Model(&models.Order{}).Where("queue_position IS NOT NULL AND queue_position > 0")
}

// Submit stores a new order and decides its queue fate: with no active order
// it is activated immediately, otherwise it is appended to the end of the
// waiting line at max(position)+1. Tracking credentials and the default
// progress steps are created in the same transaction. Notification emails go
// out after commit and are best-effort.
func (s *QueueService) Submit(input SubmitOrderInput) (*SubmissionResult, error) {
	queueMu.Lock()
	defer queueMu.Unlock()

	var (
		order     models.Order
		accessKey string
		activated bool
	)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var activeCount int64
		if err := activeOrders(tx).Count(&activeCount).Error; err != nil {
			return fmt.Errorf("failed to count active orders: %w", err)
		}

		var maxPosition int
		if err := tx.Model(&models.Order{}).
			Select("COALESCE(MAX(queue_position), 0)").Scan(&maxPosition).Error; err != nil {
			return fmt.Errorf("failed to read queue tail: %w", err)
		}

		// Only activate when no order currently holds the slot
		position := 1
		if activeCount > 0 {
			position = maxPosition + 1
		}

		order = models.Order{
			UserID:        input.UserID,
			ClientName:    input.ClientName,
			ClientEmail:   input.ClientEmail,
			Phone:         input.Phone,
			ProjectTitle:  input.ProjectTitle,
			ProjectType:   input.ProjectType,
			PagesRequired: input.PagesRequired,
			Budget:        input.Budget,
			Details:       input.Details,
			Status:        models.StatusNew,
			QueuePosition: &position,
		}
		if err := order.SetUploadedFiles(input.Attachments); err != nil {
			return fmt.Errorf("failed to encode attachments: %w", err)
		}
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		// Tracking credentials need the assigned id
		order.TrackingCode = GenerateOrderCode(order.ID, order.ClientEmail)
		key, err := GenerateTrackingPassword()
		if err != nil {
			return err
		}
		hash, err := HashTrackingPassword(key)
		if err != nil {
			return err
		}
		accessKey = key
		order.TrackingPassword = hash

		if activeCount == 0 {
			now := time.Now().UTC()
			order.QueuePosition = nil
			order.QueueActivatedAt = &now
			activated = true
		}

		if err := tx.Save(&order).Error; err != nil {
			return fmt.Errorf("failed to store tracking credentials: %w", err)
		}

		steps := buildDefaultSteps(order.ID)
		if err := tx.Create(&steps).Error; err != nil {
			return fmt.Errorf("failed to create progress steps: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	SendTrackingCodeEmail(&order, order.TrackingCode, accessKey)
	if activated {
		SendQueueActivationEmail(&order, order.TrackingCode, accessKey)
	}

	result := &SubmissionResult{
		Order:     &order,
		AccessKey: accessKey,
		Activated: activated,
	}
	if !activated {
		result.Position = s.ComputePosition(&order)
	}
	return result, nil
}

// ActivateNext promotes the waiting order with the lowest queue position.
// Returns (nil, nil) when the queue is empty.
func (s *QueueService) ActivateNext() (*models.Order, error) {
	queueMu.Lock()
	defer queueMu.Unlock()

	var next models.Order
	err := waitingOrders(s.db).Order("queue_position ASC").First(&next).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find next waiting order: %w", err)
	}

	return s.activateLocked(&next)
}

// ActivateOrder promotes a specific waiting order, used by the manual admin
// action. Remaining waiting orders are renumbered to close the gap.
func (s *QueueService) ActivateOrder(orderID uint) (*models.Order, error) {
	queueMu.Lock()
	defer queueMu.Unlock()

	var order models.Order
	if err := s.db.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.IsQueueActive() {
		return nil, ErrOrderNotWaiting
	}

	return s.activateLocked(&order)
}

// activateLocked performs the activation of a waiting order: clears its
// position, stamps the activation time, moves status to in_progress and
// decrements every greater position by one. Caller must hold queueMu.
func (s *QueueService) activateLocked(order *models.Order) (*models.Order, error) {
	oldPosition := *order.QueuePosition

	err := s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		order.QueuePosition = nil
		order.QueueActivatedAt = &now
		order.Status = models.StatusInProgress

		if err := tx.Model(order).Updates(map[string]interface{}{
			"queue_position":     nil,
			"queue_activated_at": now,
			"status":             models.StatusInProgress,
		}).Error; err != nil {
			return fmt.Errorf("failed to activate order: %w", err)
		}

		// Close the gap left by the activated order
		if err := tx.Model(&models.Order{}).
			Where("queue_position IS NOT NULL AND queue_position > ?", oldPosition).
			Update("queue_position", gorm.Expr("queue_position - 1")).Error; err != nil {
			return fmt.Errorf("failed to renumber queue: %w", err)
		}

		notification := models.Notification{
			OrderID: order.ID,
			Type:    models.NotificationQueue,
			Title:   "Your Turn Has Arrived",
			Content: fmt.Sprintf("Work on %s is now active.", order.ProjectTitle),
			Icon:    "success",
		}
		return tx.Create(&notification).Error
	})
	if err != nil {
		return nil, err
	}

	// A fresh access key is issued on every activation so clients who lost
	// the original email can still get in
	tracking := NewTrackingService(s.db)
	accessKey, err := tracking.RegeneratePassword(order)
	if err != nil {
		logger.Errorf("failed to regenerate access key for order %d: %v", order.ID, err)
	} else {
		SendQueueActivationEmail(order, order.TrackingCode, accessKey)
	}

	return order, nil
}

// ComputePosition returns the 1-based human-facing queue position, 0 when
// the order is active. The rank is recomputed from the other waiting orders
// rather than trusting the stored field, which tolerates gaps introduced by
// external mutation.
func (s *QueueService) ComputePosition(order *models.Order) int {
	if order.IsQueueActive() {
		return 0
	}

	var ahead int64
	if err := waitingOrders(s.db).
		Where("queue_position < ?", *order.QueuePosition).
		Count(&ahead).Error; err != nil {
		logger.Errorf("failed to compute queue position for order %d: %v", order.ID, err)
		return *order.QueuePosition
	}
	return int(ahead) + 1
}

// QueueSnapshot returns the currently active order (nil when the slot is
// empty) and the waiting line in FIFO order.
func (s *QueueService) QueueSnapshot() (*models.Order, []models.Order, error) {
	var active models.Order
	var activePtr *models.Order
	err := activeOrders(s.db).Where("status IN ?", []string{models.StatusNew, models.StatusInProgress}).
		Order("queue_activated_at DESC").First(&active).Error
	if err == nil {
		activePtr = &active
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	var waiting []models.Order
	if err := waitingOrders(s.db).Order("queue_position ASC").Find(&waiting).Error; err != nil {
		return nil, nil, err
	}

	return activePtr, waiting, nil
}
