package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"github.com/go-playground/validator"
	"github.com/idowu-gb/MAD-Project/server/addressbook"
	"github.com/idowu-gb/MAD-Project/server/auth"
	"github.com/idowu-gb/MAD-Project/server/auth/key"
	"github.com/idowu-gb/MAD-Project/server/models"
	"github.com/idowu-gb/MAD-Project/server/session"
)

const (
	MAX_IMAGE_SIZE        = 10 << 20
	MAX_ADDRESS_BOOK_SIZE = 1 << 20
)

type ResponsePayload struct {
	Errors    []string     `json:"errors"`
	Success   bool         `json:"success"`
	ErrorKind session.Kind `json:"error_kind,omitempty"`
	Data      interface{}  `json:"data,omitempty"`
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type contactLoginRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
}

type tripRequest struct {
	Departure   string `json:"departure" validate:"required"`
	Destination string `json:"destination" validate:"required"`
	ETA         string `json:"eta" validate:"required"`
}

type tripStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=Started Paused Completed"`
}

type contactRequest struct {
	Name               string `json:"name" validate:"required"`
	PhoneNumber        string `json:"phone_number" validate:"required,phone_number"`
	LinkedUserID       *uint  `json:"linked_user_id" validate:"omitempty,min=1"`
	IsEmergencyContact bool   `json:"is_emergency_contact"`
}

type linkContactRequest struct {
	LinkedUserID uint `json:"linked_user_id" validate:"required"`
}

type sessionResponse struct {
	Token string        `json:"token"`
	State session.State `json:"state"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	if err := RegisterValidators(validate); err != nil {
		logg.Panic(err)
	}
}

func health(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Add("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(ResponsePayload{Success: true})
}

func (app *App) jwks(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Add("Content-Type", "application/json")

	jwk, err := app.keyPair.JWK()
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(key.ExportJWKAsJWKS(jwk))
}

// ---------------------------------------------------------------------------------//
// Session handlers
// --------------------------------------------------------------------------------//

func (app *App) signUp(rw http.ResponseWriter, r *http.Request) {
	data := credentialsRequest{}
	if !decodeAndValidate(rw, r, &data) {
		return
	}

	s := app.newSession()
	if err := s.SignUp(r.Context(), data.Email, data.Password); err != nil {
		writeSessionError(rw, err)
		return
	}

	app.startSession(rw, s, false, http.StatusCreated)
}

func (app *App) logIn(rw http.ResponseWriter, r *http.Request) {
	data := credentialsRequest{}
	if !decodeAndValidate(rw, r, &data) {
		return
	}

	s := app.newSession()
	if err := s.Login(r.Context(), data.Email, data.Password); err != nil {
		writeSessionError(rw, err)
		return
	}

	app.startSession(rw, s, false, http.StatusOK)
}

func (app *App) contactLogIn(rw http.ResponseWriter, r *http.Request) {
	data := contactLoginRequest{}
	if !decodeAndValidate(rw, r, &data) {
		return
	}

	s := app.newSession()
	if err := s.ContactLogin(r.Context(), data.PhoneNumber); err != nil {
		writeSessionError(rw, err)
		return
	}

	app.startSession(rw, s, true, http.StatusOK)
}

func (app *App) logOut(rw http.ResponseWriter, r *http.Request) {
	sessionFromContext(r.Context()).Logout()
	app.sessions.remove(claimsFromContext(r.Context()).Id)

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true})
}

func (app *App) getSession(rw http.ResponseWriter, r *http.Request) {
	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: sessionFromContext(r.Context()).Snapshot()})
}

// ---------------------------------------------------------------------------------//
// Trip handlers
// --------------------------------------------------------------------------------//

func (app *App) createTrip(rw http.ResponseWriter, r *http.Request) {
	data := tripRequest{}
	if !decodeAndValidate(rw, r, &data) {
		return
	}

	trip, err := sessionFromContext(r.Context()).AddTrip(r.Context(), session.TripInput{
		Departure:   data.Departure,
		Destination: data.Destination,
		ETA:         data.ETA,
	})
	if err != nil {
		writeSessionError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: trip}, http.StatusCreated)
}

func (app *App) updateTripStatus(rw http.ResponseWriter, r *http.Request) {
	tripID, ok := idFromPath(rw, r, "id")
	if !ok {
		return
	}

	data := tripStatusRequest{}
	if !decodeAndValidate(rw, r, &data) {
		return
	}

	s := sessionFromContext(r.Context())
	if err := s.UpdateTripStatus(r.Context(), tripID, data.Status); err != nil {
		writeSessionError(rw, err)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: s.Snapshot().Trips})
}

func (app *App) deleteTrip(rw http.ResponseWriter, r *http.Request) {
	tripID, ok := idFromPath(rw, r, "id")
	if !ok {
		return
	}

	s := sessionFromContext(r.Context())
	if err := s.DeleteTrip(r.Context(), tripID); err != nil {
		writeSessionError(rw, err)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: s.Snapshot().Trips})
}

// uploadTripImage takes the 'image' part of a multipart form, stores it & keeps the
// returned reference on the trip
func (app *App) uploadTripImage(rw http.ResponseWriter, r *http.Request) {
	tripID, ok := idFromPath(rw, r, "id")
	if !ok {
		return
	}

	s := sessionFromContext(r.Context())
	owned, err := app.ownsTrip(r, s, tripID)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}
	if !owned {
		writeResponse(rw, ResponsePayload{Errors: []string{"Trip not found"}}, http.StatusNotFound)
		return
	}

	r.Body = http.MaxBytesReader(rw, r.Body, MAX_IMAGE_SIZE)
	if err := r.ParseMultipartForm(MAX_IMAGE_SIZE); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{"invalid image upload: " + err.Error()}}, http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{"an 'image' file is required"}}, http.StatusBadRequest)
		return
	}
	defer file.Close()

	imageURI, err := app.images.Save(r.Context(), tripID, filepath.Base(header.Filename), file)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	if err := s.UpdateTripImageURI(r.Context(), tripID, imageURI); err != nil {
		writeSessionError(rw, err)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: map[string]string{"image_uri": imageURI}})
}

func (app *App) triggerPanicAlert(rw http.ResponseWriter, r *http.Request) {
	tripID, ok := idFromPath(rw, r, "id")
	if !ok {
		return
	}

	alert, err := sessionFromContext(r.Context()).TriggerPanicAlert(r.Context(), tripID)
	if err != nil {
		writeSessionError(rw, err)
		return
	}

	app.metrics.panicAlertsTotal.Inc()
	writeResponse(rw, ResponsePayload{Success: true, Data: alert}, http.StatusCreated)
}

// ---------------------------------------------------------------------------------//
// Contact handlers
// --------------------------------------------------------------------------------//

func (app *App) createContact(rw http.ResponseWriter, r *http.Request) {
	data := contactRequest{}
	if !decodeAndValidate(rw, r, &data) {
		return
	}

	contact, err := sessionFromContext(r.Context()).AddContact(r.Context(), session.ContactInput{
		Name:               data.Name,
		PhoneNumber:        data.PhoneNumber,
		LinkedUserID:       data.LinkedUserID,
		IsEmergencyContact: data.IsEmergencyContact,
	})
	if err != nil {
		writeSessionError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: contact}, http.StatusCreated)
}

func (app *App) linkContact(rw http.ResponseWriter, r *http.Request) {
	contactID, ok := idFromPath(rw, r, "id")
	if !ok {
		return
	}

	data := linkContactRequest{}
	if !decodeAndValidate(rw, r, &data) {
		return
	}

	s := sessionFromContext(r.Context())
	if err := s.LinkContactToUser(r.Context(), contactID, data.LinkedUserID); err != nil {
		writeSessionError(rw, err)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: s.Snapshot().Contacts})
}

func (app *App) deleteContact(rw http.ResponseWriter, r *http.Request) {
	contactID, ok := idFromPath(rw, r, "id")
	if !ok {
		return
	}

	s := sessionFromContext(r.Context())
	if err := s.DeleteContact(r.Context(), contactID); err != nil {
		writeSessionError(rw, err)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: s.Snapshot().Contacts})
}

// previewAddressBook maps an uploaded address book (YAML or JSON) to unsaved contacts.
// Clients add the ones they want via POST /contacts.
func (app *App) previewAddressBook(rw http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())

	document, err := io.ReadAll(http.MaxBytesReader(rw, r.Body, MAX_ADDRESS_BOOK_SIZE))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeResponse(rw, ResponsePayload{Errors: []string{"address book is too large"}}, http.StatusRequestEntityTooLarge)
			return
		}
		writeResponse(rw, ResponsePayload{Errors: []string{"invalid request body: " + err.Error()}}, http.StatusBadRequest)
		return
	}

	contacts, err := s.FetchContacts(r.Context(), s.CurrentUserID(), addressbook.ReaderSource{Reader: bytes.NewReader(document)})
	if err != nil {
		writeSessionError(rw, err)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: contacts})
}

// ---------------------------------------------------------------------------------//
// Contact view handlers
// --------------------------------------------------------------------------------//

func (app *App) contactViewTrips(rw http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())

	trips, err := s.ContactViewTrips(r.Context())
	if err != nil {
		writeSessionError(rw, err)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: trips})
}

func (app *App) contactViewAlerts(rw http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())

	contactID, ok := app.viewableContactID(rw, r, s)
	if !ok {
		return
	}

	alerts, err := s.PanicAlertsForContact(r.Context(), contactID)
	if err != nil {
		writeSessionError(rw, err)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: alerts})
}

func (app *App) linkedContacts(rw http.ResponseWriter, r *http.Request) {
	contacts, err := sessionFromContext(r.Context()).LinkedContacts(r.Context())
	if err != nil {
		writeSessionError(rw, err)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: contacts})
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func (app *App) newSession() *session.Session {
	opts := []session.Option{session.WithLogger(logg)}
	if app.notifier != nil {
		opts = append(opts, session.WithAlertNotifier(app.notifier))
	}

	return session.New(app.store, opts...)
}

// startSession registers 's' & responds with a token for it
func (app *App) startSession(rw http.ResponseWriter, s *session.Session, isContact bool, statusCode int) {
	sessionID := app.sessions.add(s)

	token, err := auth.EncodeJWT(auth.NewTokenClaims(s.CurrentUserID(), sessionID, isContact, app.now()), app.keyPair)
	if err != nil {
		app.sessions.remove(sessionID)
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: sessionResponse{Token: token, State: s.Snapshot()}}, statusCode)
}

// viewableContactID resolves the contact whose owner's alerts are requested: the
// 'contact_id' query param, or the contact a contact login used. The contact must
// belong to, or be linked to, the current user.
func (app *App) viewableContactID(rw http.ResponseWriter, r *http.Request, s *session.Session) (uint, bool) {
	state := s.Snapshot()

	contactID := state.ContactID
	if param := r.URL.Query().Get("contact_id"); param != "" {
		id, ok := parseContactID(param)
		if !ok {
			writeResponse(rw, ResponsePayload{Errors: []string{"invalid contact_id"}}, http.StatusBadRequest)
			return 0, false
		}
		contactID = id
	}

	if contactID == 0 {
		writeResponse(rw, ResponsePayload{Errors: []string{"contact_id is required"}}, http.StatusBadRequest)
		return 0, false
	}

	if contactID == state.ContactID || containsContact(state.Contacts, contactID) {
		return contactID, true
	}

	linked, err := s.LinkedContacts(r.Context())
	if err != nil {
		writeSessionError(rw, err)
		return 0, false
	}

	if !containsContact(linked, contactID) {
		writeResponse(rw, ResponsePayload{Errors: []string{"Contact not found"}}, http.StatusNotFound)
		return 0, false
	}

	return contactID, true
}

// ownsTrip checks the store rather than the session's state, which may predate
// trips added through the user's other sessions
func (app *App) ownsTrip(r *http.Request, s *session.Session, tripID uint) (bool, error) {
	trip, err := app.store.FindTrip(r.Context(), tripID)
	if err != nil {
		return false, err
	}

	return trip != nil && trip.UserID == s.CurrentUserID(), nil
}

func containsContact(contacts []models.Contact, contactID uint) bool {
	for _, contact := range contacts {
		if contact.ID == contactID {
			return true
		}
	}
	return false
}
