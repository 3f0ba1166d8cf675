package user

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LookupStrategy tries to find a user from a raw identifier. found is false
// when the strategy does not apply or nothing matched.
type LookupStrategy struct {
	Name string
	Find func(db *gorm.DB, identifier string) (user User, found bool, err error)
}

// ByID matches identifiers that parse as a UUID.
var ByID = LookupStrategy{
	Name: "id",
	Find: func(db *gorm.DB, identifier string) (User, bool, error) {
		id, err := uuid.Parse(identifier)
		if err != nil {
			return User{}, false, nil
		}
		return first(db, "id = ?", id)
	},
}

// ByUsername matches the username exactly.
var ByUsername = LookupStrategy{
	Name: "username",
	Find: func(db *gorm.DB, identifier string) (User, bool, error) {
		return first(db, "username = ?", identifier)
	},
}

// ByEmail matches the email case-insensitively.
var ByEmail = LookupStrategy{
	Name: "email",
	Find: func(db *gorm.DB, identifier string) (User, bool, error) {
		if !strings.Contains(identifier, "@") {
			return User{}, false, nil
		}
		return first(db, "email = ?", strings.ToLower(identifier))
	},
}

// DefaultLookup is the order Resolve uses.
var DefaultLookup = []LookupStrategy{ByID, ByUsername, ByEmail}

// Resolve runs DefaultLookup and returns the first hit.
func Resolve(db *gorm.DB, identifier string) (User, error) {
	return ResolveWith(db, identifier, DefaultLookup...)
}

// ResolveWith tries strategies in order, stopping at the first match or error.
func ResolveWith(db *gorm.DB, identifier string, strategies ...LookupStrategy) (User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return User{}, ErrUserNotFound
	}

	for _, strategy := range strategies {
		user, found, err := strategy.Find(db, identifier)
		if err != nil {
			return User{}, err
		}
		if found {
			return user, nil
		}
	}
	return User{}, ErrUserNotFound
}

func first(db *gorm.DB, query string, arg interface{}) (User, bool, error) {
	var user User
	err := db.Where(query, arg).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return User{}, false, nil
	case err != nil:
		return User{}, false, err
	}
	return user, true, nil
}
