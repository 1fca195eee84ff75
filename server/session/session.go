package session

import (
	"context"
	"sync"
	"time"

	"github.com/idowu-gb/MAD-Project/server/logger"
	"github.com/idowu-gb/MAD-Project/server/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Session owns the state of one logged in (or logged out) client and performs
// every read & write on its behalf. Storage calls run outside the state lock,
// so overlapping operations are not coordinated: the last one to finish wins.
type Session struct {
	store    Store
	notifier AlertNotifier
	logg     *zap.SugaredLogger
	now      func() time.Time

	mu               sync.Mutex
	state            State
	subscribers      map[int]chan State
	nextSubscriberID int
}

type Option func(*Session)

func WithAlertNotifier(notifier AlertNotifier) Option {
	return func(s *Session) { s.notifier = notifier }
}

func WithLogger(logg *zap.SugaredLogger) Option {
	return func(s *Session) { s.logg = logg }
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New returns a logged out session backed by 'store'
func New(store Store, opts ...Option) *Session {
	s := &Session{
		store:       store,
		now:         time.Now,
		subscribers: make(map[int]chan State),
		state:       State{CurrentUserID: NoUser},
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logg == nil {
		s.logg = logger.NewLogger()
	}

	return s
}

// CurrentUserID returns the logged in user's id or NoUser
func (s *Session) CurrentUserID() uint {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.CurrentUserID
}

// Login succeeds iff a user with 'email' exists and 'password' is the one it signed up with.
// Input isn't validated here: any mismatch is reported as invalid credentials.
func (s *Session) Login(ctx context.Context, email, password string) error {
	const op = "login"
	s.begin(true)
	defer s.setLoading(false)

	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return s.fail(storageError(op, "Failed to login", err))
	}

	if user == nil || !user.CheckPassword(password) {
		return s.fail(&Error{Kind: InvalidCredentials, Op: op, Message: "Invalid email or password"})
	}

	s.setCurrentUser(user.ID, 0)
	s.logg.Infof("login successful, user_id=%v", user.ID)

	return s.loadUserData(ctx, op, user.ID)
}

func (s *Session) SignUp(ctx context.Context, email, password string) error {
	const op = "signUp"
	s.begin(true)
	defer s.setLoading(false)

	if err := validateInput(op, credentials{Email: email, Password: password}); err != nil {
		return s.fail(err)
	}

	existingUser, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return s.fail(storageError(op, "Failed to create user", err))
	}

	if existingUser != nil {
		return s.fail(&Error{Kind: AlreadyExists, Op: op, Message: "Email already registered"})
	}

	user := &models.User{Email: email, Password: password}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return s.fail(storageError(op, "Failed to create user", err))
	}

	s.setCurrentUser(user.ID, 0)
	s.logg.Infof("sign-up successful, user_id=%v", user.ID)

	return s.loadUserData(ctx, op, user.ID)
}

// ContactLogin lets whoever holds a stored contact's phone number act as the
// user owning that contact. There is no password check.
func (s *Session) ContactLogin(ctx context.Context, phoneNumber string) error {
	const op = "contactLogin"
	s.begin(true)
	defer s.setLoading(false)

	contact, err := s.store.FindContactByPhoneNumber(ctx, phoneNumber)
	if err != nil {
		return s.fail(storageError(op, "Failed to login as contact", err))
	}

	if contact == nil {
		return s.fail(notFoundError(op, "Contact not found"))
	}

	s.setCurrentUser(contact.UserID, contact.ID)
	s.logg.Infof("contact login successful, contact_id=%v user_id=%v", contact.ID, contact.UserID)

	return s.loadUserData(ctx, op, contact.UserID)
}

func (s *Session) Logout() {
	s.update(func(st *State) {
		*st = State{CurrentUserID: NoUser}
	})
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

// begin clears the last error at the start of an operation
func (s *Session) begin(loading bool) {
	s.update(func(st *State) {
		st.Err = nil
		if loading {
			st.Loading = true
		}
	})
}

func (s *Session) setLoading(loading bool) {
	s.update(func(st *State) { st.Loading = loading })
}

// fail records 'err' as the session's last error and returns it
func (s *Session) fail(err *Error) error {
	s.update(func(st *State) { st.Err = err })

	if err.Kind == StorageUnavailable {
		s.logg.Error(err)
	}
	return err
}

func (s *Session) setCurrentUser(userID, contactID uint) {
	s.update(func(st *State) {
		if st.CurrentUserID != userID {
			st.Trips = nil
			st.Contacts = nil
		}
		st.CurrentUserID = userID
		st.ContactID = contactID
	})
}

// requireUser is the single guard for user-scoped operations
func (s *Session) requireUser(op string) (uint, error) {
	s.begin(false)

	userID := s.CurrentUserID()
	if userID == NoUser {
		return NoUser, s.fail(&Error{Kind: NotLoggedIn, Op: op, Message: "You need to be logged in"})
	}

	return userID, nil
}

func (s *Session) loadUserData(ctx context.Context, op string, userID uint) error {
	var trips []models.Trip
	var contacts []models.Contact

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		trips, err = s.store.TripsForUser(gCtx, userID)
		return err
	})
	g.Go(func() (err error) {
		contacts, err = s.store.ContactsForUser(gCtx, userID)
		return err
	})

	if err := g.Wait(); err != nil {
		return s.fail(storageError(op, "Failed to load user data", err))
	}

	s.update(func(st *State) {
		if st.CurrentUserID != userID {
			return
		}
		st.Trips = trips
		st.Contacts = contacts
	})

	return nil
}

func (s *Session) reloadTrips(ctx context.Context, op string, userID uint) error {
	trips, err := s.store.TripsForUser(ctx, userID)
	if err != nil {
		return s.fail(storageError(op, "Failed to reload trips", err))
	}

	s.update(func(st *State) {
		if st.CurrentUserID == userID {
			st.Trips = trips
		}
	})
	return nil
}

func (s *Session) reloadContacts(ctx context.Context, op string, userID uint) error {
	contacts, err := s.store.ContactsForUser(ctx, userID)
	if err != nil {
		return s.fail(storageError(op, "Failed to reload contacts", err))
	}

	s.update(func(st *State) {
		if st.CurrentUserID == userID {
			st.Contacts = contacts
		}
	})
	return nil
}
