package certificate

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-enrollment-server/pkg/types"
)

var ErrCertificateNotFound = errors.New("certificate not found")

// Certificate proves that a user completed a course. Certificates are
// stored but no route issues them yet.
type Certificate struct {
	types.BaseModel

	UserID         uuid.UUID `gorm:"type:uuid;not null;index" json:"userId"`
	CourseID       uuid.UUID `gorm:"type:uuid;not null;index" json:"courseId"`
	CompletionDate time.Time `gorm:"not null" json:"completionDate"`
	CertificateURL string    `gorm:"type:text;not null;default:''" json:"certificateUrl"`
	HashCode       string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"hashCode"`
}

// TableName overrides the default table name.
func (Certificate) TableName() string { return "certificates" }

// Issue stores a certificate with a fresh verification hash.
func Issue(db *gorm.DB, userID, courseID uuid.UUID, completedAt time.Time, url string) (Certificate, error) {
	cert := Certificate{
		UserID:         userID,
		CourseID:       courseID,
		CompletionDate: completedAt.UTC(),
		CertificateURL: url,
		HashCode:       hashCode(userID, courseID, completedAt),
	}

	if err := db.Create(&cert).Error; err != nil {
		return Certificate{}, fmt.Errorf("issue certificate: %w", err)
	}
	return cert, nil
}

// Verify finds the certificate carrying hash.
func Verify(db *gorm.DB, hash string) (Certificate, error) {
	var cert Certificate
	if err := db.First(&cert, "hash_code = ?", hash).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return cert, ErrCertificateNotFound
		}
		return cert, err
	}
	return cert, nil
}

// ListForUser returns a user's certificates, most recent first.
func ListForUser(db *gorm.DB, userID uuid.UUID) ([]Certificate, error) {
	certs := make([]Certificate, 0)
	err := db.Where("user_id = ?", userID).Order("completion_date DESC").Find(&certs).Error
	return certs, err
}

// hashCode mixes a random nonce in so reissuing yields a different code.
func hashCode(userID, courseID uuid.UUID, completedAt time.Time) string {
	sum := sha256.Sum256([]byte(userID.String() + ":" + courseID.String() + ":" +
		completedAt.UTC().Format(time.RFC3339Nano) + ":" + uuid.NewString()))
	return hex.EncodeToString(sum[:])
}
