package models

import (
	"context"

	"github.com/pkg/errors"
)

const CONTACTS_TABLE = "contacts"

// Contact belongs to the user in UserID. LinkedUserID points at the app account
// the contact maps to; it equals UserID when the contact is just a phone number.
type Contact struct {
	BaseModel
	UserID             uint   `json:"user_id" gorm:"not null;index"`
	LinkedUserID       uint   `json:"linked_user_id" gorm:"not null;index"`
	Name               string `json:"name" gorm:"not null"`
	PhoneNumber        string `json:"phone_number" gorm:"not null;index"`
	IsEmergencyContact bool   `json:"is_emergency_contact"`
}

func CreateContact(ctx context.Context, contact *Contact) error {
	return errors.Wrap(db.WithContext(ctx).Create(contact).Error, "CreateContact")
}

func FindContact(ctx context.Context, id interface{}) (*Contact, error) {
	contact := Contact{}
	err := db.WithContext(ctx).First(&contact, "id = ?", id).Error
	if err != nil {
		return nil, err
	}

	return &contact, nil
}

// FindContactByPhoneNumber returns the first contact stored with 'phoneNumber'.
// Phone numbers aren't unique, so later matches are ignored.
func FindContactByPhoneNumber(ctx context.Context, phoneNumber string) (*Contact, error) {
	contact := Contact{}
	err := db.WithContext(ctx).First(&contact, "phone_number = ?", phoneNumber).Error
	if err != nil {
		return nil, err
	}

	return &contact, nil
}

func ContactsForUser(ctx context.Context, userID interface{}) ([]Contact, error) {
	contacts := []Contact{}
	err := db.WithContext(ctx).Where("user_id = ?", userID).Order("id asc").Find(&contacts).Error
	if err != nil {
		return nil, errors.Wrap(err, "ContactsForUser")
	}

	return contacts, nil
}

// ContactsForLinkedUser returns every contact row that maps to 'linkedUserID',
// whoever owns it
func ContactsForLinkedUser(ctx context.Context, linkedUserID interface{}) ([]Contact, error) {
	contacts := []Contact{}
	err := db.WithContext(ctx).Where("linked_user_id = ?", linkedUserID).Order("id asc").Find(&contacts).Error
	if err != nil {
		return nil, errors.Wrap(err, "ContactsForLinkedUser")
	}

	return contacts, nil
}

func EmergencyContacts(ctx context.Context, userID interface{}) ([]Contact, error) {
	contacts := []Contact{}
	err := db.WithContext(ctx).
		Where("user_id = ? AND is_emergency_contact = ?", userID, true).
		Order("id asc").
		Find(&contacts).Error
	if err != nil {
		return nil, errors.Wrap(err, "EmergencyContacts")
	}

	return contacts, nil
}

// LinkContact points the contact at another user's account
func LinkContact(ctx context.Context, contactID, linkedUserID interface{}) error {
	err := db.WithContext(ctx).Model(&Contact{}).Where("id = ?", contactID).Update("linked_user_id", linkedUserID).Error
	return errors.Wrap(err, "LinkContact")
}

func DeleteContact(ctx context.Context, id interface{}) error {
	return errors.Wrap(db.WithContext(ctx).Delete(&Contact{}, "id = ?", id).Error, "DeleteContact")
}
