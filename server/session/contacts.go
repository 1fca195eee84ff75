package session

import (
	"context"
	"errors"

	"github.com/idowu-gb/MAD-Project/server/addressbook"
	"github.com/idowu-gb/MAD-Project/server/models"
)

// AddContact stores a contact for the current user. Without an explicit
// LinkedUserID the contact is linked to the current user.
func (s *Session) AddContact(ctx context.Context, input ContactInput) (*models.Contact, error) {
	const op = "addContact"

	userID, err := s.requireUser(op)
	if err != nil {
		return nil, err
	}

	if err := validateInput(op, input); err != nil {
		return nil, s.fail(err)
	}

	linkedUserID := userID
	if input.LinkedUserID != nil && *input.LinkedUserID != userID {
		if err := s.checkUserExists(ctx, op, *input.LinkedUserID); err != nil {
			return nil, err
		}
		linkedUserID = *input.LinkedUserID
	}

	contact := &models.Contact{
		UserID:             userID,
		LinkedUserID:       linkedUserID,
		Name:               input.Name,
		PhoneNumber:        input.PhoneNumber,
		IsEmergencyContact: input.IsEmergencyContact,
	}

	if err := s.store.CreateContact(ctx, contact); err != nil {
		return nil, s.fail(storageError(op, "Failed to add contact", err))
	}

	return contact, s.reloadContacts(ctx, op, userID)
}

// LinkContactToUser maps one of the current user's contacts to the app account 'linkedUserID',
// which lets that account see the current user's trips and alerts
func (s *Session) LinkContactToUser(ctx context.Context, contactID, linkedUserID uint) error {
	const op = "linkContactToUser"

	userID, err := s.requireUser(op)
	if err != nil {
		return err
	}

	contact, err := s.store.FindContact(ctx, contactID)
	if err != nil {
		return s.fail(storageError(op, "Failed to link contact", err))
	}

	if contact == nil || contact.UserID != userID {
		return s.fail(notFoundError(op, "Contact not found"))
	}

	if linkedUserID != userID {
		if err := s.checkUserExists(ctx, op, linkedUserID); err != nil {
			return err
		}
	}

	if err := s.store.LinkContact(ctx, contact.ID, linkedUserID); err != nil {
		return s.fail(storageError(op, "Failed to link contact", err))
	}

	return s.reloadContacts(ctx, op, userID)
}

func (s *Session) DeleteContact(ctx context.Context, contactID uint) error {
	const op = "deleteContact"

	userID, err := s.requireUser(op)
	if err != nil {
		return err
	}

	contact, err := s.store.FindContact(ctx, contactID)
	if err != nil {
		return s.fail(storageError(op, "Failed to delete contact", err))
	}

	if contact != nil && contact.UserID == userID {
		if err := s.store.DeleteContact(ctx, contact.ID); err != nil {
			return s.fail(storageError(op, "Failed to delete contact", err))
		}
	}

	return s.reloadContacts(ctx, op, userID)
}

// LinkedContacts returns the contact rows, owned by other users, that map to the current user
func (s *Session) LinkedContacts(ctx context.Context) ([]models.Contact, error) {
	const op = "linkedContacts"

	userID, err := s.requireUser(op)
	if err != nil {
		return nil, err
	}

	contacts, err := s.store.ContactsForLinkedUser(ctx, userID)
	if err != nil {
		return nil, s.fail(storageError(op, "Failed to load linked contacts", err))
	}

	linked := []models.Contact{}
	for _, contact := range contacts {
		if contact.UserID != userID {
			linked = append(linked, contact)
		}
	}

	return linked, nil
}

// FetchContacts reads 'source' and maps every entry to an unsaved contact of 'userID'.
// Callers pick which ones to keep via AddContact.
func (s *Session) FetchContacts(ctx context.Context, userID uint, source addressbook.Source) ([]models.Contact, error) {
	const op = "fetchContacts"
	s.begin(false)

	entries, err := source.Entries(ctx)
	if errors.Is(err, addressbook.ErrPermissionDenied) {
		return nil, s.fail(storageError(op, "Address book permission denied", err))
	}
	if err != nil {
		return nil, s.fail(storageError(op, "Failed to read address book", err))
	}

	contacts := make([]models.Contact, 0, len(entries))
	for _, entry := range entries {
		contacts = append(contacts, models.Contact{
			UserID:       userID,
			LinkedUserID: userID,
			Name:         entry.Name,
			PhoneNumber:  entry.PhoneNumber,
		})
	}

	return contacts, nil
}

func (s *Session) checkUserExists(ctx context.Context, op string, userID uint) error {
	user, err := s.store.FindUser(ctx, userID)
	if err != nil {
		return s.fail(storageError(op, "Failed to find user", err))
	}

	if user == nil {
		return s.fail(notFoundError(op, "User not found"))
	}

	return nil
}
