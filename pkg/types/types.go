package types

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Role represents a user's role.
type Role string

const (
	RoleUser     Role = "user"
	RoleAdmin    Role = "admin"
	RoleProfesor Role = "profesor"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleProfesor:
		return true
	}
	return false
}

// StaffRoles are the roles allowed into the admin surface.
var StaffRoles = []Role{RoleAdmin, RoleProfesor}

// CourseLevel is the difficulty of a course.
type CourseLevel string

const (
	LevelBeginner     CourseLevel = "beginner"
	LevelIntermediate CourseLevel = "intermediate"
	LevelAdvanced     CourseLevel = "advanced"
)

// CourseCategory is the closed set of course categories.
type CourseCategory string

const (
	CategoryWebDevelopment          CourseCategory = "web-development"
	CategoryMobileDevelopment       CourseCategory = "mobile-development"
	CategoryDataScience             CourseCategory = "data-science"
	CategoryArtificialIntelligence  CourseCategory = "artificial-intelligence"
	CategoryCybersecurity           CourseCategory = "cybersecurity"
	CategoryCloudComputing          CourseCategory = "cloud-computing"
	CategoryDevOps                  CourseCategory = "devops"
	CategoryProgrammingFundamentals CourseCategory = "programming-fundamentals"
	CategoryDatabase                CourseCategory = "database"
	CategoryUIUXDesign              CourseCategory = "ui-ux-design"
	CategoryGameDevelopment         CourseCategory = "game-development"
	CategoryBlockchain              CourseCategory = "blockchain"
)

// ResourceType represents lesson resource kinds.
type ResourceType string

const (
	ResourceTypePDF   ResourceType = "pdf"
	ResourceTypeDoc   ResourceType = "doc"
	ResourceTypeCode  ResourceType = "code"
	ResourceTypeLink  ResourceType = "link"
	ResourceTypeOther ResourceType = "other"
)

// PaymentStatus represents purchase state
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// BaseModel contains common fields for all models
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

// BeforeCreate assigns an ID when none is set.
func (b *BaseModel) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Money wraps decimal.Decimal for money values
type Money decimal.Decimal

// NewMoney creates Money from float64
func NewMoney(value float64) Money {
	return Money(decimal.NewFromFloat(value))
}

// NewMoneyFromString creates Money from string
func NewMoneyFromString(value string) (Money, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Money{}, err
	}
	return Money(d), nil
}

// Float64 returns the float64 representation
func (m Money) Float64() float64 {
	return decimal.Decimal(m).InexactFloat64()
}

// String returns string representation
func (m Money) String() string {
	return decimal.Decimal(m).String()
}

// Add adds two Money values
func (m Money) Add(other Money) Money {
	return Money(decimal.Decimal(m).Add(decimal.Decimal(other)))
}

// Div divides by n, rounded to cents. Division by zero yields zero.
func (m Money) Div(n int64) Money {
	if n == 0 {
		return Money{}
	}
	return Money(decimal.Decimal(m).Div(decimal.NewFromInt(n)).Round(2))
}

// IsNegative returns true if value is below zero
func (m Money) IsNegative() bool {
	return decimal.Decimal(m).IsNegative()
}

// Equal compares two Money values
func (m Money) Equal(other Money) bool {
	return decimal.Decimal(m).Equal(decimal.Decimal(other))
}

// Value implements driver.Valuer for database serialization
func (m Money) Value() (driver.Value, error) {
	return decimal.Decimal(m).Value()
}

// Scan implements sql.Scanner for database deserialization
func (m *Money) Scan(value interface{}) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return err
	}
	*m = Money(d)
	return nil
}

// MarshalJSON renders money as a bare JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(m).String()), nil
}

// UnmarshalJSON accepts both quoted and bare numbers.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	*m = Money(d)
	return nil
}
