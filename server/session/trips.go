package session

import (
	"context"

	"github.com/idowu-gb/MAD-Project/server/models"
)

// AddTrip logs a new trip for the current user, in status Started
func (s *Session) AddTrip(ctx context.Context, input TripInput) (*models.Trip, error) {
	const op = "addTrip"

	userID, err := s.requireUser(op)
	if err != nil {
		return nil, err
	}

	if err := validateInput(op, input); err != nil {
		return nil, s.fail(err)
	}

	trip := &models.Trip{
		UserID:      userID,
		Departure:   input.Departure,
		Destination: input.Destination,
		ETA:         input.ETA,
		Status:      models.STARTED_TRIP,
	}

	if err := s.store.CreateTrip(ctx, trip); err != nil {
		return nil, s.fail(storageError(op, "Failed to add trip", err))
	}

	return trip, s.reloadTrips(ctx, op, userID)
}

// UpdateTripStatus overwrites the trip's status with any value
func (s *Session) UpdateTripStatus(ctx context.Context, tripID uint, status string) error {
	const op = "updateTripStatus"

	return s.mutateTrip(ctx, op, tripID, func(trip *models.Trip) error {
		return s.store.UpdateTripStatus(ctx, trip.ID, status)
	})
}

// UpdateTripImageURI stores 'imageURI' verbatim on the trip
func (s *Session) UpdateTripImageURI(ctx context.Context, tripID uint, imageURI string) error {
	const op = "updateTripImageUri"

	return s.mutateTrip(ctx, op, tripID, func(trip *models.Trip) error {
		return s.store.UpdateTripImageURI(ctx, trip.ID, imageURI)
	})
}

// DeleteTrip is idempotent: deleting a trip that's already gone only reloads
func (s *Session) DeleteTrip(ctx context.Context, tripID uint) error {
	const op = "deleteTrip"

	return s.mutateTrip(ctx, op, tripID, func(trip *models.Trip) error {
		return s.store.DeleteTrip(ctx, trip.ID)
	})
}

// mutateTrip applies 'mutate' to the current user's trip 'tripID', then reloads trips.
// Trips that don't exist or belong to someone else are left alone.
func (s *Session) mutateTrip(ctx context.Context, op string, tripID uint, mutate func(trip *models.Trip) error) error {
	userID, err := s.requireUser(op)
	if err != nil {
		return err
	}

	trip, err := s.store.FindTrip(ctx, tripID)
	if err != nil {
		return s.fail(storageError(op, "Failed to update trip", err))
	}

	if trip != nil && trip.UserID == userID {
		if err := mutate(trip); err != nil {
			return s.fail(storageError(op, "Failed to update trip", err))
		}
	}

	return s.reloadTrips(ctx, op, userID)
}
