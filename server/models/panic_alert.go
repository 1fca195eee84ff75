package models

import (
	"context"

	"github.com/pkg/errors"
)

const PANIC_ALERTS_TABLE = "panic_alerts"

// PanicAlert is append-only: there is no update or delete for it.
type PanicAlert struct {
	ID        uint  `json:"id" gorm:"primarykey"`
	UserID    uint  `json:"user_id" gorm:"not null;index"`
	TripID    uint  `json:"trip_id" gorm:"not null;index"`
	Timestamp int64 `json:"timestamp" gorm:"not null"` // epoch millis
}

func CreatePanicAlert(ctx context.Context, alert *PanicAlert) error {
	return errors.Wrap(db.WithContext(ctx).Create(alert).Error, "CreatePanicAlert")
}

func FindPanicAlert(ctx context.Context, id interface{}) (*PanicAlert, error) {
	alert := PanicAlert{}
	err := db.WithContext(ctx).First(&alert, "id = ?", id).Error
	if err != nil {
		return nil, err
	}

	return &alert, nil
}

// PanicAlertsForContact returns the alerts raised by the user who owns the contact 'contactID'
func PanicAlertsForContact(ctx context.Context, contactID interface{}) ([]PanicAlert, error) {
	alerts := []PanicAlert{}
	err := db.WithContext(ctx).
		Where("user_id IN (?)", db.Table(CONTACTS_TABLE).Select("user_id").Where("id = ?", contactID)).
		Order("timestamp desc, id desc").
		Find(&alerts).Error
	if err != nil {
		return nil, errors.Wrap(err, "PanicAlertsForContact")
	}

	return alerts, nil
}
