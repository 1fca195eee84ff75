package models

import (
	"context"

	"github.com/idowu-gb/MAD-Project/server/auth"
	"github.com/pkg/errors"
)

const USERS_TABLE = "users"

var allFieldsExceptPassword = []string{"id", "email", "created_at", "updated_at"}

// User is immutable once created. Email is indexed but not unique:
// uniqueness is checked at sign-up time.
type User struct {
	BaseModel
	Email       string       `json:"email" gorm:"not null;index"`
	Password    string       `json:"password,omitempty" gorm:"not null"`
	Trips       []Trip       `json:"trips,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Contacts    []Contact    `json:"contacts,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	PanicAlerts []PanicAlert `json:"panic_alerts,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// CheckPassword reports whether 'password' is the one the user signed up with.
// The user must have been loaded with its password hash i.e. via FindUserWithPassword.
func (user *User) CheckPassword(password string) bool {
	return auth.CheckPasswordHash(password, user.Password)
}

func CreateUser(ctx context.Context, user *User) error {
	passwordHash, err := auth.HashPassword(user.Password)
	if err != nil {
		return errors.Wrap(err, "CreateUser")
	}
	user.Password = passwordHash

	err = db.WithContext(ctx).Create(user).Error
	if err != nil {
		return errors.Wrap(err, "CreateUser")
	}

	user.Password = ""
	return nil
}

func FindUser(ctx context.Context, id interface{}) (*User, error) {
	user := User{}
	err := db.WithContext(ctx).Select(allFieldsExceptPassword).First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// FindUserWithPassword returns the first user registered with 'email',
// including the password hash
func FindUserWithPassword(ctx context.Context, email string) (*User, error) {
	user := User{}
	err := db.WithContext(ctx).First(&user, "email = ?", email).Error
	if err != nil {
		return nil, err
	}

	return &user, nil
}
