package user

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-enrollment-server/internal/authz"
	"github.com/mo-amir99/course-enrollment-server/pkg/apperrors"
	"github.com/mo-amir99/course-enrollment-server/pkg/pagination"
	"github.com/mo-amir99/course-enrollment-server/pkg/types"
	"github.com/mo-amir99/course-enrollment-server/pkg/validation"
)

const bcryptCost = 10

// User represents a registered account.
type User struct {
	types.BaseModel

	Name     string     `gorm:"type:varchar(100);not null" json:"name"`
	Lastname string     `gorm:"type:varchar(100);not null;default:''" json:"lastname"`
	Username string     `gorm:"type:varchar(30);not null;uniqueIndex" json:"username"`
	Email    string     `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	Password string     `gorm:"type:varchar(255);not null" json:"-"`
	Role     types.Role `gorm:"type:varchar(20);not null;default:'user';index" json:"role"`
}

// TableName overrides the default table name.
func (User) TableName() string { return "users" }

// Subject returns the policy subject for this user.
func (u User) Subject() authz.Subject {
	return authz.Subject{ID: u.ID, Role: u.Role}
}

// Resource returns the user as a policy resource owned by itself.
func (u User) Resource() authz.Resource {
	return authz.Resource{OwnerID: u.ID}
}

// ListFilters defines user query filters.
type ListFilters struct {
	Search string
}

// CreateInput carries data for creating a new user.
type CreateInput struct {
	Name     string     `json:"name" validate:"required,max=100"`
	Lastname string     `json:"lastname" validate:"max=100"`
	Username string     `json:"username" validate:"required,username"`
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required,min=6,max=72"`
	Role     types.Role `json:"role" validate:"omitempty,oneof=user admin profesor"`
}

// UpdateInput captures the allow-listed mutable fields. Nil or blank values
// are ignored. Password is deliberately absent.
type UpdateInput struct {
	Name     *string     `json:"name"`
	Lastname *string     `json:"lastname"`
	Username *string     `json:"username"`
	Email    *string     `json:"email"`
	Role     *types.Role `json:"role"`
}

// DeletedSummary describes an account that was removed.
type DeletedSummary struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Lastname string    `json:"lastname"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

// HashPassword returns the bcrypt hash of plain.
func HashPassword(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// ComparePassword checks if the provided password matches the user's hashed password.
func (u *User) ComparePassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}

// List queries users with an optional case-insensitive search across
// name, lastname, email and username.
func List(db *gorm.DB, filters ListFilters, params pagination.Params) ([]User, int64, error) {
	query := db.Model(&User{})

	if search := strings.TrimSpace(filters.Search); search != "" {
		keyword := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(name) LIKE ? OR LOWER(lastname) LIKE ? OR LOWER(email) LIKE ? OR LOWER(username) LIKE ?",
			keyword, keyword, keyword, keyword,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []User
	if err := query.Order("created_at DESC").Offset(params.Skip).Limit(params.Limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// Get retrieves a user by ID.
func Get(db *gorm.DB, id uuid.UUID) (User, error) {
	var user User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		return user, err
	}
	return user, nil
}

// FindByLogin looks a user up by email or username in a single query.
func FindByLogin(db *gorm.DB, identifier string) (User, error) {
	identifier = strings.TrimSpace(identifier)

	var user User
	err := db.Where("email = ? OR username = ?", strings.ToLower(identifier), identifier).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		return user, err
	}
	return user, nil
}

// Create validates input, rejects a taken email or username, hashes the
// password and inserts the user. Role defaults to user.
func Create(db *gorm.DB, input CreateInput) (User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Lastname = strings.TrimSpace(input.Lastname)
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Role == "" {
		input.Role = types.RoleUser
	}

	if err := validation.Struct(input); err != nil {
		return User{}, err
	}

	if taken, err := exists(db, "email", input.Email, uuid.Nil); err != nil {
		return User{}, err
	} else if taken {
		return User{}, ErrEmailTaken
	}

	if taken, err := exists(db, "username", input.Username, uuid.Nil); err != nil {
		return User{}, err
	} else if taken {
		return User{}, ErrUsernameTaken
	}

	hashed, err := HashPassword(input.Password)
	if err != nil {
		return User{}, err
	}

	user := User{
		Name:     input.Name,
		Lastname: input.Lastname,
		Username: input.Username,
		Email:    input.Email,
		Password: hashed,
		Role:     input.Role,
	}

	if err := db.Create(&user).Error; err != nil {
		return User{}, translateUniqueError(err)
	}

	return user, nil
}

// Update applies the non-blank fields of input that differ from target.
// decision must allow the caller to update target.
func Update(db *gorm.DB, target User, input UpdateInput, decision authz.Decision) (User, error) {
	if err := decision.Err(); err != nil {
		return target, err
	}

	updates := map[string]interface{}{}

	setIfChanged := func(column string, value *string, current string, normalize func(string) string) {
		if value == nil {
			return
		}
		next := normalize(*value)
		if next != "" && next != current {
			updates[column] = next
		}
	}

	setIfChanged("name", input.Name, target.Name, strings.TrimSpace)
	setIfChanged("lastname", input.Lastname, target.Lastname, strings.TrimSpace)
	setIfChanged("username", input.Username, target.Username, strings.TrimSpace)
	setIfChanged("email", input.Email, target.Email, func(s string) string { return strings.ToLower(strings.TrimSpace(s)) })

	if input.Role != nil && *input.Role != "" && *input.Role != target.Role {
		if !input.Role.Valid() {
			return target, ErrInvalidRole
		}
		updates["role"] = *input.Role
	}

	for _, column := range []string{"name", "lastname"} {
		if value, ok := updates[column].(string); ok {
			if err := validation.Validator().Var(value, "max=100"); err != nil {
				return target, apperrors.Validation(column + " must be at most 100 characters")
			}
		}
	}

	if username, ok := updates["username"].(string); ok {
		if err := validation.Validator().Var(username, "username"); err != nil {
			return target, apperrors.Validation("username may only use letters, digits, dots, underscores or hyphens (max 30)")
		}
		if taken, err := exists(db, "username", username, target.ID); err != nil {
			return target, err
		} else if taken {
			return target, ErrUsernameTaken
		}
	}

	if email, ok := updates["email"].(string); ok {
		if err := validation.Validator().Var(email, "email"); err != nil {
			return target, apperrors.Validation("email must be a valid email")
		}
		if taken, err := exists(db, "email", email, target.ID); err != nil {
			return target, err
		} else if taken {
			return target, ErrEmailTaken
		}
	}

	if len(updates) > 0 {
		if err := db.Model(&User{}).Where("id = ?", target.ID).Updates(updates).Error; err != nil {
			return target, translateUniqueError(err)
		}
	}

	return Get(db, target.ID)
}

// Delete hard-deletes target when decision allows it. Enrollments owned by
// the user are left in place.
func Delete(db *gorm.DB, target User, decision authz.Decision) (DeletedSummary, error) {
	if err := decision.Err(); err != nil {
		return DeletedSummary{}, err
	}

	result := db.Delete(&User{}, "id = ?", target.ID)
	if result.Error != nil {
		return DeletedSummary{}, result.Error
	}
	if result.RowsAffected == 0 {
		return DeletedSummary{}, ErrUserNotFound
	}

	return DeletedSummary{
		ID:       target.ID,
		Name:     target.Name,
		Lastname: target.Lastname,
		Username: target.Username,
		Email:    target.Email,
	}, nil
}

// Count returns the number of users.
func Count(db *gorm.DB) (int64, error) {
	var total int64
	err := db.Model(&User{}).Count(&total).Error
	return total, err
}

func exists(db *gorm.DB, column, value string, excludeID uuid.UUID) (bool, error) {
	query := db.Model(&User{}).Where(column+" = ?", value)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check %s: %w", column, err)
	}
	return count > 0, nil
}

// translateUniqueError maps a unique-index violation that slipped past the
// existence checks (a concurrent insert) onto the matching sentinel.
func translateUniqueError(err error) error {
	msg := strings.ToLower(err.Error())
	if !errors.Is(err, gorm.ErrDuplicatedKey) && !strings.Contains(msg, "unique") && !strings.Contains(msg, "duplicate") {
		return err
	}
	if strings.Contains(msg, "username") {
		return ErrUsernameTaken
	}
	return ErrEmailTaken
}
