package alerts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/idowu-gb/MAD-Project/server/models"
	"github.com/idowu-gb/MAD-Project/server/work"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	to, body string
}

type fakeMessenger struct {
	sent   []sentMessage
	failTo map[string]bool
}

func (fm *fakeMessenger) SendMessage(to, msg string) error {
	if fm.failTo[to] {
		return errors.New("undeliverable")
	}
	fm.sent = append(fm.sent, sentMessage{to, msg})
	return nil
}

type fakeQueue struct {
	handlers map[string]work.Handler
	jobs     []work.JobParams
}

func (fq *fakeQueue) Register(name string, handler work.Handler) error {
	if fq.handlers == nil {
		fq.handlers = make(map[string]work.Handler)
	}
	fq.handlers[name] = handler
	return nil
}

func (fq *fakeQueue) Perform(job work.JobParams) error {
	fq.jobs = append(fq.jobs, job)
	return nil
}

type fixture struct {
	user    *models.User
	trip    *models.Trip
	alert   *models.PanicAlert
	friend  *models.Contact
	sibling *models.Contact
}

func createFixture(t *testing.T) fixture {
	ctx := context.Background()

	user := &models.User{Email: "tony@stark.com", Password: "very-secure"}
	require.Nil(t, models.CreateUser(ctx, user))

	trip := &models.Trip{UserID: user.ID, Departure: "Home", Destination: "Office", ETA: "9am"}
	require.Nil(t, models.CreateTrip(ctx, trip))

	friend := &models.Contact{UserID: user.ID, LinkedUserID: user.ID, Name: "Pepper", PhoneNumber: "(555) 123-4567", IsEmergencyContact: true}
	require.Nil(t, models.CreateContact(ctx, friend))

	sibling := &models.Contact{UserID: user.ID, LinkedUserID: user.ID, Name: "Happy", PhoneNumber: "+1 555 000 1111", IsEmergencyContact: true}
	require.Nil(t, models.CreateContact(ctx, sibling))

	notEmergency := &models.Contact{UserID: user.ID, LinkedUserID: user.ID, Name: "Peter", PhoneNumber: "555-9999"}
	require.Nil(t, models.CreateContact(ctx, notEmergency))

	timestamp := time.Date(2022, 3, 4, 9, 30, 0, 0, time.UTC).UnixMilli()
	alert := &models.PanicAlert{UserID: user.ID, TripID: trip.ID, Timestamp: timestamp}
	require.Nil(t, models.CreatePanicAlert(ctx, alert))

	return fixture{user: user, trip: trip, alert: alert, friend: friend, sibling: sibling}
}

func TestNotifyPanicAlertEnqueuesJob(t *testing.T) {
	queue := &fakeQueue{}
	notifier, err := NewNotifier(queue, models.Store{}, &fakeMessenger{})
	require.Nil(t, err)
	assert.Contains(t, queue.handlers, NOTIFY_EMERGENCY_CONTACTS_HANDLER)

	require.Nil(t, notifier.NotifyPanicAlert(context.Background(), models.PanicAlert{ID: 12}))

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, "notify_emergency_contacts_12", queue.jobs[0].Name)
	assert.Equal(t, NOTIFY_EMERGENCY_CONTACTS_HANDLER, queue.jobs[0].Handler)
	assert.Equal(t, uint(12), queue.jobs[0].Args["panic_alert_id"])
}

func TestNotifyEmergencyContacts(t *testing.T) {
	models.InitializeTestDb()
	fx := createFixture(t)

	messenger := &fakeMessenger{}
	notifier, err := NewNotifier(&fakeQueue{}, models.Store{}, messenger)
	require.Nil(t, err)

	// args come back from the job queue as decoded JSON
	err = notifier.notifyEmergencyContacts(map[string]interface{}{"panic_alert_id": float64(fx.alert.ID)})
	require.Nil(t, err)

	require.Len(t, messenger.sent, 2, "Only emergency contacts should be notified")
	assert.Equal(t, "5551234567", messenger.sent[0].to)
	assert.Equal(t, "+15550001111", messenger.sent[1].to)

	body := messenger.sent[0].body
	assert.Contains(t, body, "Hi Pepper")
	assert.Contains(t, body, "tony@stark.com")
	assert.Contains(t, body, "Fri, 04 Mar 2022 09:30:00 UTC")
	assert.Contains(t, body, "from Home to Office (ETA 9am)")
}

func TestNotifyEmergencyContactsPartialFailure(t *testing.T) {
	models.InitializeTestDb()
	fx := createFixture(t)

	messenger := &fakeMessenger{failTo: map[string]bool{"5551234567": true}}
	notifier, err := NewNotifier(&fakeQueue{}, models.Store{}, messenger)
	require.Nil(t, err)

	err = notifier.notifyEmergencyContacts(map[string]interface{}{"panic_alert_id": float64(fx.alert.ID)})
	assert.NotNil(t, err, "A failed send should fail the job so it's retried")
	assert.Len(t, messenger.sent, 1)
}

func TestNotifyEmergencyContactsEdgeCases(t *testing.T) {
	models.InitializeTestDb()
	fx := createFixture(t)
	ctx := context.Background()

	require.Nil(t, models.DeleteTrip(ctx, fx.trip.ID))

	messenger := &fakeMessenger{}
	notifier, err := NewNotifier(&fakeQueue{}, models.Store{}, messenger)
	require.Nil(t, err)

	require.Nil(t, notifier.notifyEmergencyContacts(map[string]interface{}{"panic_alert_id": float64(fx.alert.ID)}))
	require.Len(t, messenger.sent, 2)
	assert.NotContains(t, messenger.sent[0].body, "on their trip", "A deleted trip leaves its details out")

	assert.Nil(t, notifier.notifyEmergencyContacts(map[string]interface{}{"panic_alert_id": float64(9999)}),
		"An alert that doesn't exist has nobody to notify")

	assert.NotNil(t, notifier.notifyEmergencyContacts(map[string]interface{}{}))
	assert.NotNil(t, notifier.notifyEmergencyContacts(map[string]interface{}{"panic_alert_id": "12"}))
}
