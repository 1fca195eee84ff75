package models

import (
	"context"

	"github.com/pkg/errors"
)

const TRIPS_TABLE = "trips"

const (
	STARTED_TRIP   = "Started"
	PAUSED_TRIP    = "Paused"
	COMPLETED_TRIP = "Completed"
)

var TripStatusNameMap = map[string]bool{
	STARTED_TRIP:   true,
	PAUSED_TRIP:    true,
	COMPLETED_TRIP: true,
}

// Trip.Status is free text at this layer; nothing stops any value from
// replacing any other.
type Trip struct {
	BaseModel
	UserID      uint    `json:"user_id" gorm:"not null;index"`
	Departure   string  `json:"departure" gorm:"not null"`
	Destination string  `json:"destination" gorm:"not null"`
	ETA         string  `json:"eta" gorm:"column:eta;not null"`
	Status      string  `json:"status" gorm:"not null;default:Started"`
	ImageURI    *string `json:"image_uri,omitempty" gorm:"column:image_uri"`
}

func CreateTrip(ctx context.Context, trip *Trip) error {
	if trip.Status == "" {
		trip.Status = STARTED_TRIP
	}
	return errors.Wrap(db.WithContext(ctx).Create(trip).Error, "CreateTrip")
}

func FindTrip(ctx context.Context, id interface{}) (*Trip, error) {
	trip := Trip{}
	err := db.WithContext(ctx).First(&trip, "id = ?", id).Error
	if err != nil {
		return nil, err
	}

	return &trip, nil
}

// TripsForUser returns all trips owned by 'userID', newest first
func TripsForUser(ctx context.Context, userID interface{}) ([]Trip, error) {
	trips := []Trip{}
	err := db.WithContext(ctx).Where("user_id = ?", userID).Order("id desc").Find(&trips).Error
	if err != nil {
		return nil, errors.Wrap(err, "TripsForUser")
	}

	return trips, nil
}

func UpdateTripStatus(ctx context.Context, tripID interface{}, status string) error {
	err := db.WithContext(ctx).Model(&Trip{}).Where("id = ?", tripID).Update("status", status).Error
	return errors.Wrap(err, "UpdateTripStatus")
}

func UpdateTripImageURI(ctx context.Context, tripID interface{}, imageURI string) error {
	err := db.WithContext(ctx).Model(&Trip{}).Where("id = ?", tripID).Update("image_uri", imageURI).Error
	return errors.Wrap(err, "UpdateTripImageURI")
}

// DeleteTrip removes the trip with 'tripID'. Deleting a trip that doesn't exist is not an error.
func DeleteTrip(ctx context.Context, tripID interface{}) error {
	return errors.Wrap(db.WithContext(ctx).Delete(&Trip{}, "id = ?", tripID).Error, "DeleteTrip")
}

// TripsForContact returns the trips of every user who has a contact linked to 'contactUserID'.
// A contact left linked to its owner (the default) makes the owner's trips visible
// to the owner's own id as well.
func TripsForContact(ctx context.Context, contactUserID interface{}) ([]Trip, error) {
	trips := []Trip{}
	err := db.WithContext(ctx).
		Where("trips.user_id IN (?)",
			db.Table(CONTACTS_TABLE).Select("contacts.user_id").Where("contacts.linked_user_id = ?", contactUserID)).
		Order("trips.id desc").
		Find(&trips).Error
	if err != nil {
		return nil, errors.Wrap(err, "TripsForContact")
	}

	return trips, nil
}
