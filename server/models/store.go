package models

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Store exposes this package's queries as the per-entity data-access
// interfaces the session layer depends on. Lookups return a nil record,
// not an error, when nothing matches.
type Store struct{}

func (Store) CreateUser(ctx context.Context, user *User) error {
	return CreateUser(ctx, user)
}

func (Store) FindUser(ctx context.Context, id uint) (*User, error) {
	return absentIfNotFound(FindUser(ctx, id))
}

func (Store) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	return absentIfNotFound(FindUserWithPassword(ctx, email))
}

func (Store) CreateTrip(ctx context.Context, trip *Trip) error {
	return CreateTrip(ctx, trip)
}

func (Store) FindTrip(ctx context.Context, id uint) (*Trip, error) {
	return absentIfNotFound(FindTrip(ctx, id))
}

func (Store) TripsForUser(ctx context.Context, userID uint) ([]Trip, error) {
	return TripsForUser(ctx, userID)
}

func (Store) UpdateTripStatus(ctx context.Context, tripID uint, status string) error {
	return UpdateTripStatus(ctx, tripID, status)
}

func (Store) UpdateTripImageURI(ctx context.Context, tripID uint, imageURI string) error {
	return UpdateTripImageURI(ctx, tripID, imageURI)
}

func (Store) DeleteTrip(ctx context.Context, tripID uint) error {
	return DeleteTrip(ctx, tripID)
}

func (Store) TripsForContact(ctx context.Context, contactUserID uint) ([]Trip, error) {
	return TripsForContact(ctx, contactUserID)
}

func (Store) CreateContact(ctx context.Context, contact *Contact) error {
	return CreateContact(ctx, contact)
}

func (Store) FindContact(ctx context.Context, id uint) (*Contact, error) {
	return absentIfNotFound(FindContact(ctx, id))
}

func (Store) FindContactByPhoneNumber(ctx context.Context, phoneNumber string) (*Contact, error) {
	return absentIfNotFound(FindContactByPhoneNumber(ctx, phoneNumber))
}

func (Store) ContactsForUser(ctx context.Context, userID uint) ([]Contact, error) {
	return ContactsForUser(ctx, userID)
}

func (Store) ContactsForLinkedUser(ctx context.Context, linkedUserID uint) ([]Contact, error) {
	return ContactsForLinkedUser(ctx, linkedUserID)
}

func (Store) EmergencyContacts(ctx context.Context, userID uint) ([]Contact, error) {
	return EmergencyContacts(ctx, userID)
}

func (Store) LinkContact(ctx context.Context, contactID, linkedUserID uint) error {
	return LinkContact(ctx, contactID, linkedUserID)
}

func (Store) DeleteContact(ctx context.Context, id uint) error {
	return DeleteContact(ctx, id)
}

func (Store) CreatePanicAlert(ctx context.Context, alert *PanicAlert) error {
	return CreatePanicAlert(ctx, alert)
}

func (Store) FindPanicAlert(ctx context.Context, id uint) (*PanicAlert, error) {
	return absentIfNotFound(FindPanicAlert(ctx, id))
}

func (Store) PanicAlertsForContact(ctx context.Context, contactID uint) ([]PanicAlert, error) {
	return PanicAlertsForContact(ctx, contactID)
}

func (Store) SubscribeToChanges(tables ...string) (<-chan struct{}, func()) {
	return SubscribeToChanges(tables...)
}

func absentIfNotFound[T any](record *T, err error) (*T, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return record, nil
}
