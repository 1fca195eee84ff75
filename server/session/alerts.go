package session

import (
	"context"

	"github.com/idowu-gb/MAD-Project/server/models"
)

// TriggerPanicAlert records an alert for 'tripID' stamped with the current time.
// It does nothing while logged out.
func (s *Session) TriggerPanicAlert(ctx context.Context, tripID uint) (*models.PanicAlert, error) {
	const op = "triggerPanicAlert"
	s.begin(false)

	userID := s.CurrentUserID()
	if userID == NoUser {
		return nil, nil
	}

	alert := &models.PanicAlert{
		UserID:    userID,
		TripID:    tripID,
		Timestamp: s.now().UnixMilli(),
	}

	if err := s.store.CreatePanicAlert(ctx, alert); err != nil {
		return nil, s.fail(storageError(op, "Failed to trigger panic alert", err))
	}

	s.logg.Infof("panic alert triggered, alert_id=%v user_id=%v trip_id=%v", alert.ID, userID, tripID)

	if s.notifier != nil {
		if err := s.notifier.NotifyPanicAlert(ctx, *alert); err != nil {
			s.logg.Errorf("failed to notify contacts of panic alert %v: %v", alert.ID, err)
		}
	}

	return alert, nil
}

// PanicAlertsForContact returns the alerts raised by the user who owns 'contactID', newest first
func (s *Session) PanicAlertsForContact(ctx context.Context, contactID uint) ([]models.PanicAlert, error) {
	const op = "getPanicAlertsForContact"
	s.begin(false)

	alerts, err := s.store.PanicAlertsForContact(ctx, contactID)
	if err != nil {
		return nil, s.fail(storageError(op, "Failed to load panic alerts", err))
	}

	return alerts, nil
}

// TripsForContact returns the trips of every user with a contact linked to 'contactUserID'
func (s *Session) TripsForContact(ctx context.Context, contactUserID uint) ([]models.Trip, error) {
	const op = "getTripsForContact"
	s.begin(false)

	trips, err := s.store.TripsForContact(ctx, contactUserID)
	if err != nil {
		return nil, s.fail(storageError(op, "Failed to load trips", err))
	}

	return trips, nil
}

// ContactViewTrips returns the trips a contact view shows: the trips of the user the
// session logged in as a contact of, or else TripsForContact(CurrentUserID())
func (s *Session) ContactViewTrips(ctx context.Context) ([]models.Trip, error) {
	const op = "getContactViewTrips"
	s.begin(false)

	trips, err := s.contactViewTripsQuery()(ctx)
	if err != nil {
		return nil, s.fail(storageError(op, "Failed to load trips", err))
	}

	return trips, nil
}

func (s *Session) contactViewTripsQuery() func(ctx context.Context) ([]models.Trip, error) {
	state := s.Snapshot()
	if state.ContactID != 0 {
		return func(ctx context.Context) ([]models.Trip, error) {
			return s.store.TripsForUser(ctx, state.CurrentUserID)
		}
	}

	return func(ctx context.Context) ([]models.Trip, error) {
		return s.store.TripsForContact(ctx, state.CurrentUserID)
	}
}
