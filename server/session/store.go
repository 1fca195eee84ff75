package session

import (
	"context"

	"github.com/idowu-gb/MAD-Project/server/models"
)

// The data-access interfaces below are narrow, single-entity and non-transactional.
// Lookups return a nil record when nothing matches; any returned error is a
// storage failure.

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUser(ctx context.Context, id uint) (*models.User, error)
	// FindUserByEmail returns the user including its password hash
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type TripStore interface {
	CreateTrip(ctx context.Context, trip *models.Trip) error
	FindTrip(ctx context.Context, id uint) (*models.Trip, error)
	TripsForUser(ctx context.Context, userID uint) ([]models.Trip, error)
	UpdateTripStatus(ctx context.Context, tripID uint, status string) error
	UpdateTripImageURI(ctx context.Context, tripID uint, imageURI string) error
	DeleteTrip(ctx context.Context, tripID uint) error
	TripsForContact(ctx context.Context, contactUserID uint) ([]models.Trip, error)
}

type ContactStore interface {
	CreateContact(ctx context.Context, contact *models.Contact) error
	FindContact(ctx context.Context, id uint) (*models.Contact, error)
	FindContactByPhoneNumber(ctx context.Context, phoneNumber string) (*models.Contact, error)
	ContactsForUser(ctx context.Context, userID uint) ([]models.Contact, error)
	ContactsForLinkedUser(ctx context.Context, linkedUserID uint) ([]models.Contact, error)
	LinkContact(ctx context.Context, contactID, linkedUserID uint) error
	DeleteContact(ctx context.Context, id uint) error
}

type PanicAlertStore interface {
	CreatePanicAlert(ctx context.Context, alert *models.PanicAlert) error
	PanicAlertsForContact(ctx context.Context, contactID uint) ([]models.PanicAlert, error)
}

// ChangeFeed signals writes to the named tables; it backs the live read views.
type ChangeFeed interface {
	SubscribeToChanges(tables ...string) (<-chan struct{}, func())
}

type Store interface {
	UserStore
	TripStore
	ContactStore
	PanicAlertStore
	ChangeFeed
}

// AlertNotifier is told about every recorded panic alert
type AlertNotifier interface {
	NotifyPanicAlert(ctx context.Context, alert models.PanicAlert) error
}
