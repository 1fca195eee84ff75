package server

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/idowu-gb/MAD-Project/server/auth/key"
	"github.com/idowu-gb/MAD-Project/server/imagestore"
	"github.com/idowu-gb/MAD-Project/server/models"
	"github.com/idowu-gb/MAD-Project/server/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testResponse struct {
	Errors    []string        `json:"errors"`
	Success   bool            `json:"success"`
	ErrorKind string          `json:"error_kind"`
	Data      json.RawMessage `json:"data"`
}

type testLogin struct {
	Token string        `json:"token"`
	State session.State `json:"state"`
}

func testKeyPair(t *testing.T) *key.KeyPair {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.Nil(t, err)

	privateKeyPem := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})

	keyPair, err := key.NewKeyPairFromRSAPrivateKeyPem(string(privateKeyPem))
	require.Nil(t, err)

	return keyPair
}

func newTestRouter(t *testing.T) *mux.Router {
	models.InitializeTestDb()

	images, err := imagestore.NewDiskStore(t.TempDir())
	require.Nil(t, err)

	return newApp(testKeyPair(t), models.Store{}, nil, images, "").newRouter()
}

func doRequest(t *testing.T, router http.Handler, method, path, token string, body interface{}) (int, testResponse) {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.Nil(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return serveRequest(t, router, req)
}

func serveRequest(t *testing.T, router http.Handler, req *http.Request) (int, testResponse) {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	res := testResponse{}
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.Nil(t, json.Unmarshal(rr.Body.Bytes(), &res), rr.Body.String())
	}

	return rr.Code, res
}

func decodeData(t *testing.T, res testResponse, dest interface{}) {
	require.Nil(t, json.Unmarshal(res.Data, dest), string(res.Data))
}

func signUp(t *testing.T, router http.Handler, email string) testLogin {
	code, res := doRequest(t, router, "POST", "/api/v1/signup", "", map[string]string{"email": email, "password": "secret"})
	require.Equal(t, http.StatusCreated, code, res.Errors)

	login := testLogin{}
	decodeData(t, res, &login)
	return login
}

func createTrip(t *testing.T, router http.Handler, token string) models.Trip {
	code, res := doRequest(t, router, "POST", "/api/v1/trips", token, map[string]string{
		"departure": "Home", "destination": "Work", "eta": "09:00",
	})
	require.Equal(t, http.StatusCreated, code, res.Errors)

	trip := models.Trip{}
	decodeData(t, res, &trip)
	return trip
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)

	code, res := doRequest(t, router, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, res.Success)
}

func TestJWKS(t *testing.T) {
	router := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/.well-known/jwks.json", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	jwks := struct {
		Keys []map[string]interface{} `json:"keys"`
	}{}
	require.Nil(t, json.Unmarshal(rr.Body.Bytes(), &jwks))
	require.Len(t, jwks.Keys, 1)
	assert.Equal(t, key.KEY_ID, jwks.Keys[0]["kid"])
	assert.Equal(t, "RSA", jwks.Keys[0]["kty"])
}

func TestSignUpThenLogin(t *testing.T) {
	router := newTestRouter(t)

	signedUp := signUp(t, router, "ann@example.com")
	assert.NotEmpty(t, signedUp.Token)
	assert.NotEqual(t, session.NoUser, signedUp.State.CurrentUserID)

	code, res := doRequest(t, router, "POST", "/api/v1/login", "", map[string]string{"email": "ann@example.com", "password": "secret"})
	require.Equal(t, http.StatusOK, code, res.Errors)

	loggedIn := testLogin{}
	decodeData(t, res, &loggedIn)
	assert.Equal(t, signedUp.State.CurrentUserID, loggedIn.State.CurrentUserID)

	code, res = doRequest(t, router, "GET", "/api/v1/session", loggedIn.Token, nil)
	require.Equal(t, http.StatusOK, code, res.Errors)

	state := session.State{}
	decodeData(t, res, &state)
	assert.Equal(t, signedUp.State.CurrentUserID, state.CurrentUserID)
}

func TestSignUpWithTakenEmail(t *testing.T) {
	router := newTestRouter(t)
	signUp(t, router, "ann@example.com")

	code, res := doRequest(t, router, "POST", "/api/v1/signup", "", map[string]string{"email": "ann@example.com", "password": "secret"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "already_exists", res.ErrorKind)
}

func TestLoginWithWrongPassword(t *testing.T) {
	router := newTestRouter(t)
	signUp(t, router, "ann@example.com")

	code, res := doRequest(t, router, "POST", "/api/v1/login", "", map[string]string{"email": "ann@example.com", "password": "wrong-one"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "invalid_credentials", res.ErrorKind)
}

func TestInvalidRequestBody(t *testing.T) {
	router := newTestRouter(t)

	code, _ := doRequest(t, router, "POST", "/api/v1/signup", "", "{not json")
	assert.Equal(t, http.StatusBadRequest, code)

	code, res := doRequest(t, router, "POST", "/api/v1/signup", "", map[string]string{"email": "not-an-email", "password": "secret"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.NotEmpty(t, res.Errors)
}

func TestProtectedRoutesNeedAValidToken(t *testing.T) {
	router := newTestRouter(t)

	code, res := doRequest(t, router, "GET", "/api/v1/session", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, []string{"no token provided"}, res.Errors)

	code, res = doRequest(t, router, "GET", "/api/v1/session", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, []string{"invalid token provided"}, res.Errors)

	// Signed by another key
	otherRouter := newTestRouter(t)
	login := signUp(t, otherRouter, "ann@example.com")
	code, _ = doRequest(t, router, "GET", "/api/v1/session", login.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestLogoutEndsTheSession(t *testing.T) {
	router := newTestRouter(t)
	login := signUp(t, router, "ann@example.com")

	code, _ := doRequest(t, router, "POST", "/api/v1/logout", login.Token, nil)
	require.Equal(t, http.StatusOK, code)

	code, res := doRequest(t, router, "GET", "/api/v1/session", login.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, []string{"session has ended"}, res.Errors)
}

func TestTripLifecycle(t *testing.T) {
	router := newTestRouter(t)
	login := signUp(t, router, "ann@example.com")

	trip := createTrip(t, router, login.Token)
	assert.Equal(t, models.STARTED_TRIP, trip.Status)
	assert.Equal(t, login.State.CurrentUserID, trip.UserID)

	code, res := doRequest(t, router, "PUT", fmt.Sprintf("/api/v1/trips/%v/status", trip.ID), login.Token, map[string]string{"status": "Paused"})
	require.Equal(t, http.StatusOK, code, res.Errors)

	trips := []models.Trip{}
	decodeData(t, res, &trips)
	require.Len(t, trips, 1)
	assert.Equal(t, models.PAUSED_TRIP, trips[0].Status)

	code, _ = doRequest(t, router, "PUT", fmt.Sprintf("/api/v1/trips/%v/status", trip.ID), login.Token, map[string]string{"status": "Flying"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, res = doRequest(t, router, "POST", fmt.Sprintf("/api/v1/trips/%v/panic", trip.ID), login.Token, nil)
	require.Equal(t, http.StatusCreated, code, res.Errors)

	alert := models.PanicAlert{}
	decodeData(t, res, &alert)
	assert.Equal(t, trip.ID, alert.TripID)
	assert.Equal(t, login.State.CurrentUserID, alert.UserID)
	assert.NotZero(t, alert.Timestamp)

	code, res = doRequest(t, router, "DELETE", fmt.Sprintf("/api/v1/trips/%v", trip.ID), login.Token, nil)
	require.Equal(t, http.StatusOK, code, res.Errors)

	trips = []models.Trip{}
	decodeData(t, res, &trips)
	assert.Empty(t, trips)
}

func TestCreateTripWithBlankFields(t *testing.T) {
	router := newTestRouter(t)
	login := signUp(t, router, "ann@example.com")

	code, res := doRequest(t, router, "POST", "/api/v1/trips", login.Token, map[string]string{
		"departure": "   ", "destination": "Work", "eta": "09:00",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation_failed", res.ErrorKind)
}

func TestTripsOfOtherUsersAreUntouched(t *testing.T) {
	router := newTestRouter(t)
	ann := signUp(t, router, "ann@example.com")
	bob := signUp(t, router, "bob@example.com")

	trip := createTrip(t, router, ann.Token)

	code, _ := doRequest(t, router, "DELETE", fmt.Sprintf("/api/v1/trips/%v", trip.ID), bob.Token, nil)
	assert.Equal(t, http.StatusOK, code)

	code, res := doRequest(t, router, "GET", "/api/v1/session", ann.Token, nil)
	require.Equal(t, http.StatusOK, code)

	state := session.State{}
	decodeData(t, res, &state)
	assert.Len(t, state.Trips, 1)
}

func imageUploadRequest(t *testing.T, path, token, filename string) *http.Request {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("image", filename)
	require.Nil(t, err)
	_, err = part.Write([]byte("not really a png"))
	require.Nil(t, err)
	require.Nil(t, writer.Close())

	req := httptest.NewRequest("PUT", path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestUploadTripImage(t *testing.T) {
	router := newTestRouter(t)
	ann := signUp(t, router, "ann@example.com")
	bob := signUp(t, router, "bob@example.com")
	trip := createTrip(t, router, ann.Token)

	path := fmt.Sprintf("/api/v1/trips/%v/image", trip.ID)

	code, res := serveRequest(t, router, imageUploadRequest(t, path, ann.Token, "view.png"))
	require.Equal(t, http.StatusOK, code, res.Errors)

	uploaded := map[string]string{}
	decodeData(t, res, &uploaded)
	assert.True(t, strings.HasPrefix(uploaded["image_uri"], "file://"), uploaded["image_uri"])

	_, res = doRequest(t, router, "GET", "/api/v1/session", ann.Token, nil)
	state := session.State{}
	decodeData(t, res, &state)
	require.Len(t, state.Trips, 1)
	require.NotNil(t, state.Trips[0].ImageURI)
	assert.Equal(t, uploaded["image_uri"], *state.Trips[0].ImageURI)

	code, _ = serveRequest(t, router, imageUploadRequest(t, path, ann.Token, "notes.txt"))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = serveRequest(t, router, imageUploadRequest(t, path, bob.Token, "view.png"))
	assert.Equal(t, http.StatusNotFound, code)
}

func TestUploadTripImageFromAnotherSession(t *testing.T) {
	router := newTestRouter(t)
	ann := signUp(t, router, "ann@example.com")

	code, res := doRequest(t, router, "POST", "/api/v1/login", "", map[string]string{"email": "ann@example.com", "password": "secret"})
	require.Equal(t, http.StatusOK, code, res.Errors)
	phone := testLogin{}
	decodeData(t, res, &phone)

	// The signup session never saw this trip
	trip := createTrip(t, router, phone.Token)

	path := fmt.Sprintf("/api/v1/trips/%v/image", trip.ID)
	code, res = serveRequest(t, router, imageUploadRequest(t, path, ann.Token, "view.png"))
	require.Equal(t, http.StatusOK, code, res.Errors)

	code, _ = serveRequest(t, router, imageUploadRequest(t, "/api/v1/trips/9999/image", ann.Token, "view.png"))
	assert.Equal(t, http.StatusNotFound, code)
}

func TestContactsAndContactView(t *testing.T) {
	router := newTestRouter(t)
	ann := signUp(t, router, "ann@example.com")
	bob := signUp(t, router, "bob@example.com")
	carl := signUp(t, router, "carl@example.com")

	code, res := doRequest(t, router, "POST", "/api/v1/contacts", ann.Token, map[string]interface{}{
		"name":                 "Bob",
		"phone_number":         "555-123-4567",
		"linked_user_id":       bob.State.CurrentUserID,
		"is_emergency_contact": true,
	})
	require.Equal(t, http.StatusCreated, code, res.Errors)

	contact := models.Contact{}
	decodeData(t, res, &contact)
	assert.Equal(t, ann.State.CurrentUserID, contact.UserID)
	assert.Equal(t, bob.State.CurrentUserID, contact.LinkedUserID)

	trip := createTrip(t, router, ann.Token)
	code, _ = doRequest(t, router, "POST", fmt.Sprintf("/api/v1/trips/%v/panic", trip.ID), ann.Token, nil)
	require.Equal(t, http.StatusCreated, code)

	// Bob sees Ann's trips & alerts
	code, res = doRequest(t, router, "GET", "/api/v1/contact-view/trips", bob.Token, nil)
	require.Equal(t, http.StatusOK, code, res.Errors)
	trips := []models.Trip{}
	decodeData(t, res, &trips)
	require.Len(t, trips, 1)
	assert.Equal(t, trip.ID, trips[0].ID)

	code, res = doRequest(t, router, "GET", "/api/v1/contacts/linked", bob.Token, nil)
	require.Equal(t, http.StatusOK, code, res.Errors)
	linked := []models.Contact{}
	decodeData(t, res, &linked)
	require.Len(t, linked, 1)
	assert.Equal(t, contact.ID, linked[0].ID)

	alertsPath := fmt.Sprintf("/api/v1/contact-view/alerts?contact_id=%v", contact.ID)
	code, res = doRequest(t, router, "GET", alertsPath, bob.Token, nil)
	require.Equal(t, http.StatusOK, code, res.Errors)
	alerts := []models.PanicAlert{}
	decodeData(t, res, &alerts)
	require.Len(t, alerts, 1)
	assert.Equal(t, trip.ID, alerts[0].TripID)

	// Carl isn't linked to Ann
	code, res = doRequest(t, router, "GET", "/api/v1/contact-view/trips", carl.Token, nil)
	require.Equal(t, http.StatusOK, code)
	trips = []models.Trip{}
	decodeData(t, res, &trips)
	assert.Empty(t, trips)

	code, _ = doRequest(t, router, "GET", alertsPath, carl.Token, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = doRequest(t, router, "GET", "/api/v1/contact-view/alerts", carl.Token, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCreateContactWithInvalidPhoneNumber(t *testing.T) {
	router := newTestRouter(t)
	ann := signUp(t, router, "ann@example.com")

	code, _ := doRequest(t, router, "POST", "/api/v1/contacts", ann.Token, map[string]interface{}{
		"name": "Bob", "phone_number": "call me maybe",
	})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestLinkAndDeleteContact(t *testing.T) {
	router := newTestRouter(t)
	ann := signUp(t, router, "ann@example.com")
	bob := signUp(t, router, "bob@example.com")

	code, res := doRequest(t, router, "POST", "/api/v1/contacts", ann.Token, map[string]interface{}{
		"name": "Bob", "phone_number": "555-123-4567",
	})
	require.Equal(t, http.StatusCreated, code, res.Errors)
	contact := models.Contact{}
	decodeData(t, res, &contact)
	assert.Equal(t, ann.State.CurrentUserID, contact.LinkedUserID)

	linkPath := fmt.Sprintf("/api/v1/contacts/%v/link", contact.ID)
	code, res = doRequest(t, router, "PUT", linkPath, ann.Token, map[string]interface{}{"linked_user_id": bob.State.CurrentUserID})
	require.Equal(t, http.StatusOK, code, res.Errors)

	contacts := []models.Contact{}
	decodeData(t, res, &contacts)
	require.Len(t, contacts, 1)
	assert.Equal(t, bob.State.CurrentUserID, contacts[0].LinkedUserID)

	code, res = doRequest(t, router, "PUT", linkPath, ann.Token, map[string]interface{}{"linked_user_id": 9999})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", res.ErrorKind)

	code, _ = doRequest(t, router, "PUT", linkPath, bob.Token, map[string]interface{}{"linked_user_id": bob.State.CurrentUserID})
	assert.Equal(t, http.StatusNotFound, code)

	code, res = doRequest(t, router, "DELETE", fmt.Sprintf("/api/v1/contacts/%v", contact.ID), ann.Token, nil)
	require.Equal(t, http.StatusOK, code, res.Errors)
	contacts = []models.Contact{}
	decodeData(t, res, &contacts)
	assert.Empty(t, contacts)
}

func TestContactLogin(t *testing.T) {
	router := newTestRouter(t)
	ann := signUp(t, router, "ann@example.com")

	code, res := doRequest(t, router, "POST", "/api/v1/contacts", ann.Token, map[string]interface{}{
		"name": "Mum", "phone_number": "555-000-1111",
	})
	require.Equal(t, http.StatusCreated, code, res.Errors)
	contact := models.Contact{}
	decodeData(t, res, &contact)

	trip := createTrip(t, router, ann.Token)
	code, _ = doRequest(t, router, "POST", fmt.Sprintf("/api/v1/trips/%v/panic", trip.ID), ann.Token, nil)
	require.Equal(t, http.StatusCreated, code)

	// Mum watches Bob's trips, but logging in as Mum still shows Ann's
	bob := signUp(t, router, "bob@example.com")
	code, res = doRequest(t, router, "PUT", fmt.Sprintf("/api/v1/contacts/%v/link", contact.ID), ann.Token,
		map[string]interface{}{"linked_user_id": bob.State.CurrentUserID})
	require.Equal(t, http.StatusOK, code, res.Errors)
	createTrip(t, router, bob.Token)

	code, res = doRequest(t, router, "POST", "/api/v1/contact-login", "", map[string]string{"phone_number": "555-000-1111"})
	require.Equal(t, http.StatusOK, code, res.Errors)
	login := testLogin{}
	decodeData(t, res, &login)
	assert.Equal(t, ann.State.CurrentUserID, login.State.CurrentUserID)
	assert.Equal(t, contact.ID, login.State.ContactID)

	code, res = doRequest(t, router, "GET", "/api/v1/contact-view/alerts", login.Token, nil)
	require.Equal(t, http.StatusOK, code, res.Errors)
	alerts := []models.PanicAlert{}
	decodeData(t, res, &alerts)
	assert.Len(t, alerts, 1)

	code, res = doRequest(t, router, "GET", "/api/v1/contact-view/trips", login.Token, nil)
	require.Equal(t, http.StatusOK, code, res.Errors)
	trips := []models.Trip{}
	decodeData(t, res, &trips)
	require.Len(t, trips, 1)
	assert.Equal(t, trip.ID, trips[0].ID)

	code, res = doRequest(t, router, "POST", "/api/v1/contact-login", "", map[string]string{"phone_number": "555-999-9999"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", res.ErrorKind)
}

func TestAddressBookPreview(t *testing.T) {
	router := newTestRouter(t)
	ann := signUp(t, router, "ann@example.com")

	code, res := doRequest(t, router, "POST", "/api/v1/contacts/address-book", ann.Token, `
- name: Bob
  phone_number: 555-123-4567
- name: No Phone
`)
	require.Equal(t, http.StatusOK, code, res.Errors)

	contacts := []models.Contact{}
	decodeData(t, res, &contacts)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Bob", contacts[0].Name)
	assert.Equal(t, "555-123-4567", contacts[0].PhoneNumber)
	assert.Equal(t, ann.State.CurrentUserID, contacts[0].UserID)
	assert.Zero(t, contacts[0].ID)
}

func TestAddressBookPreviewTooLarge(t *testing.T) {
	router := newTestRouter(t)
	ann := signUp(t, router, "ann@example.com")

	entry := "- name: Bob\n  phone_number: 555-123-4567\n"
	document := strings.Repeat(entry, MAX_ADDRESS_BOOK_SIZE/len(entry)+1)

	code, res := doRequest(t, router, "POST", "/api/v1/contacts/address-book", ann.Token, document)
	assert.Equal(t, http.StatusRequestEntityTooLarge, code)
	assert.Equal(t, []string{"address book is too large"}, res.Errors)
}

func TestMetrics(t *testing.T) {
	router := newTestRouter(t)
	signUp(t, router, "ann@example.com")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, `safetrip_http_requests_total{code="201",method="POST",route="/api/v1/signup"} 1`)
	assert.Contains(t, body, "safetrip_active_sessions 1")
}
