package purchase

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-enrollment-server/pkg/types"
)

var (
	ErrPurchaseNotFound = errors.New("purchase not found")
	ErrInvalidAmount    = errors.New("amount cannot be negative")
	ErrInvalidStatus    = errors.New("invalid payment status")
)

// Purchase records a payment attempt for a course. Purchases are stored but
// no route creates them yet.
type Purchase struct {
	types.BaseModel

	UserID        uuid.UUID           `gorm:"type:uuid;not null;index" json:"userId"`
	CourseID      uuid.UUID           `gorm:"type:uuid;not null;index" json:"courseId"`
	Amount        types.Money         `gorm:"type:numeric(10,2);not null" json:"amount"`
	PaymentMethod string              `gorm:"type:varchar(50);not null;default:''" json:"paymentMethod"`
	TransactionID string              `gorm:"type:varchar(255);not null;default:'';index" json:"transactionId"`
	Status        types.PaymentStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	PurchasedAt   time.Time           `gorm:"not null" json:"purchasedAt"`
}

// TableName overrides the default table name.
func (Purchase) TableName() string { return "purchases" }

// CreateInput carries data for a new purchase.
type CreateInput struct {
	UserID        uuid.UUID
	CourseID      uuid.UUID
	Amount        types.Money
	PaymentMethod string
	TransactionID string
}

// Create stores a pending purchase.
func Create(db *gorm.DB, input CreateInput) (Purchase, error) {
	if input.Amount.IsNegative() {
		return Purchase{}, ErrInvalidAmount
	}

	purchase := Purchase{
		UserID:        input.UserID,
		CourseID:      input.CourseID,
		Amount:        input.Amount,
		PaymentMethod: strings.TrimSpace(input.PaymentMethod),
		TransactionID: strings.TrimSpace(input.TransactionID),
		Status:        types.PaymentStatusPending,
		PurchasedAt:   time.Now().UTC(),
	}

	if err := db.Create(&purchase).Error; err != nil {
		return Purchase{}, fmt.Errorf("create purchase: %w", err)
	}
	return purchase, nil
}

// SetStatus moves a purchase to status.
func SetStatus(db *gorm.DB, id uuid.UUID, status types.PaymentStatus) (Purchase, error) {
	switch status {
	case types.PaymentStatusPending, types.PaymentStatusCompleted, types.PaymentStatusFailed:
	default:
		return Purchase{}, ErrInvalidStatus
	}

	result := db.Model(&Purchase{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return Purchase{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Purchase{}, ErrPurchaseNotFound
	}

	var purchase Purchase
	err := db.First(&purchase, "id = ?", id).Error
	return purchase, err
}

// ListForUser returns a user's purchases, newest first.
func ListForUser(db *gorm.DB, userID uuid.UUID) ([]Purchase, error) {
	purchases := make([]Purchase, 0)
	err := db.Where("user_id = ?", userID).Order("purchased_at DESC").Find(&purchases).Error
	return purchases, err
}

// TotalCompleted sums completed purchase amounts for userID.
func TotalCompleted(db *gorm.DB, userID uuid.UUID) (types.Money, error) {
	var purchases []Purchase
	err := db.Select("amount").
		Where("user_id = ? AND status = ?", userID, types.PaymentStatusCompleted).
		Find(&purchases).Error
	if err != nil {
		return types.Money{}, err
	}

	var total types.Money
	for _, p := range purchases {
		total = total.Add(p.Amount)
	}
	return total, nil
}
