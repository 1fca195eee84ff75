package alerts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/idowu-gb/MAD-Project/server/logger"
	"github.com/idowu-gb/MAD-Project/server/models"
	"github.com/idowu-gb/MAD-Project/server/work"
	"github.com/idowu-gb/MAD-Project/utils"
)

const (
	NOTIFY_EMERGENCY_CONTACTS_HANDLER = "notify_emergency_contacts"
	NOTIFY_TIMEOUT                    = 30 * time.Second
)

var logg = logger.NewLogger()

// Store is what the notifier reads to build its messages
type Store interface {
	FindPanicAlert(ctx context.Context, id uint) (*models.PanicAlert, error)
	FindUser(ctx context.Context, id uint) (*models.User, error)
	FindTrip(ctx context.Context, id uint) (*models.Trip, error)
	EmergencyContacts(ctx context.Context, userID uint) ([]models.Contact, error)
}

type Messenger interface {
	SendMessage(to, msg string) error
}

type JobQueue interface {
	Register(name string, handler work.Handler) error
	Perform(job work.JobParams) error
}

// Notifier texts a user's emergency contacts whenever the user raises a panic alert.
// Messages go out from a job, so a failed send is retried by the job queue.
type Notifier struct {
	queue     JobQueue
	store     Store
	messenger Messenger
}

func NewNotifier(queue JobQueue, store Store, messenger Messenger) (*Notifier, error) {
	notifier := &Notifier{queue: queue, store: store, messenger: messenger}

	err := queue.Register(NOTIFY_EMERGENCY_CONTACTS_HANDLER, notifier.notifyEmergencyContacts)
	if err != nil {
		return nil, fmt.Errorf("NewNotifier: %v", err)
	}

	return notifier, nil
}

// NotifyPanicAlert enqueues one notification job per alert
func (n *Notifier) NotifyPanicAlert(ctx context.Context, alert models.PanicAlert) error {
	return n.queue.Perform(work.JobParams{
		Name:    jobName(alert.ID),
		Handler: NOTIFY_EMERGENCY_CONTACTS_HANDLER,
		Args:    map[string]interface{}{"panic_alert_id": alert.ID},
	})
}

func (n *Notifier) notifyEmergencyContacts(args map[string]interface{}) error {
	alertID, err := uintArg(args, "panic_alert_id")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), NOTIFY_TIMEOUT)
	defer cancel()

	alert, err := n.store.FindPanicAlert(ctx, alertID)
	if err != nil {
		return err
	}

	if alert == nil {
		logg.Warnf("panic alert %v no longer exists, nobody to notify", alertID)
		return nil
	}

	user, err := n.store.FindUser(ctx, alert.UserID)
	if err != nil {
		return err
	}

	if user == nil {
		logg.Warnf("user %v of panic alert %v no longer exists", alert.UserID, alertID)
		return nil
	}

	trip, err := n.store.FindTrip(ctx, alert.TripID)
	if err != nil {
		return err
	}

	contacts, err := n.store.EmergencyContacts(ctx, user.ID)
	if err != nil {
		return err
	}

	if len(contacts) == 0 {
		logg.Infof("user %v has no emergency contacts to notify of panic alert %v", user.ID, alertID)
		return nil
	}

	failed := []string{}
	for _, contact := range contacts {
		err := n.messenger.SendMessage(utils.NormalizePhoneNumber(contact.PhoneNumber), panicMessage(contact, *user, trip, *alert))
		if err != nil {
			logg.Errorf("failed to notify contact %v of panic alert %v: %v", contact.ID, alertID, err)
			failed = append(failed, contact.PhoneNumber)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("failed to notify %v of %v emergency contact(s): %v",
			len(failed), len(contacts), strings.Join(failed, ", "))
	}

	logg.Infof("%v emergency contact(s) notified of panic alert %v", len(contacts), alertID)
	return nil
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func jobName(alertID uint) string {
	return fmt.Sprintf("%v_%v", NOTIFY_EMERGENCY_CONTACTS_HANDLER, alertID)
}

func panicMessage(contact models.Contact, user models.User, trip *models.Trip, alert models.PanicAlert) string {
	triggeredAt := time.UnixMilli(alert.Timestamp).UTC().Format(time.RFC1123)

	message := fmt.Sprintf(
		"Hi %v,\nyou're getting this message because you're an emergency contact of %v. "+
			"They raised a panic alert at %v",
		contact.Name, user.Email, triggeredAt)

	if trip != nil {
		message += fmt.Sprintf(" on their trip from %v to %v (ETA %v)", trip.Departure, trip.Destination, trip.ETA)
	}

	return message + ".\nPlease reach out to make sure they're okay."
}

// uintArg reads an id from job args. Ids come back from JSON as float64.
func uintArg(args map[string]interface{}, name string) (uint, error) {
	switch value := args[name].(type) {
	case float64:
		if value > 0 {
			return uint(value), nil
		}
	case uint:
		return value, nil
	case int:
		if value > 0 {
			return uint(value), nil
		}
	}

	return 0, fmt.Errorf("invalid '%v' arg: %v", name, args[name])
}
