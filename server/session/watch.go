package session

import (
	"context"

	"github.com/idowu-gb/MAD-Project/server/models"
)

// WatchTripsForContact emits TripsForContact('contactUserID') now and again after every
// change to trips or contacts, until ctx is done. The channel is closed on return.
func (s *Session) WatchTripsForContact(ctx context.Context, contactUserID uint) <-chan []models.Trip {
	return watch(ctx, s, "getTripsForContact", []string{models.TRIPS_TABLE, models.CONTACTS_TABLE},
		func(ctx context.Context) ([]models.Trip, error) {
			return s.store.TripsForContact(ctx, contactUserID)
		})
}

// WatchContactViewTrips is WatchTripsForContact for ContactViewTrips
func (s *Session) WatchContactViewTrips(ctx context.Context) <-chan []models.Trip {
	return watch(ctx, s, "getContactViewTrips", []string{models.TRIPS_TABLE, models.CONTACTS_TABLE},
		s.contactViewTripsQuery())
}

// WatchPanicAlertsForContact emits PanicAlertsForContact('contactID') now and again
// after every change to panic alerts or contacts, until ctx is done
func (s *Session) WatchPanicAlertsForContact(ctx context.Context, contactID uint) <-chan []models.PanicAlert {
	return watch(ctx, s, "getPanicAlertsForContact", []string{models.PANIC_ALERTS_TABLE, models.CONTACTS_TABLE},
		func(ctx context.Context) ([]models.PanicAlert, error) {
			return s.store.PanicAlertsForContact(ctx, contactID)
		})
}

func watch[T any](ctx context.Context, s *Session, op string, tables []string, query func(ctx context.Context) ([]T, error)) <-chan []T {
	results := make(chan []T)

	// Subscribe before the first query so no write slips in between
	changes, cancel := s.store.SubscribeToChanges(tables...)

	go func() {
		defer close(results)
		defer cancel()

		for {
			records, err := query(ctx)
			if err != nil && ctx.Err() == nil {
				s.fail(storageError(op, "Failed to refresh live view", err))
			}

			if err == nil {
				select {
				case results <- records:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-changes:
			case <-ctx.Done():
				return
			}
		}
	}()

	return results
}
