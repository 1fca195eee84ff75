package session

import "github.com/idowu-gb/MAD-Project/server/models"

// NoUser is the current user id of a logged out session
const NoUser uint = 0

// State is a point-in-time copy of what a Session has loaded
type State struct {
	CurrentUserID uint             `json:"current_user_id"`
	ContactID     uint             `json:"contact_id,omitempty"`
	Trips         []models.Trip    `json:"trips"`
	Contacts      []models.Contact `json:"contacts"`
	Err           *Error           `json:"error,omitempty"`
	Loading       bool             `json:"loading"`
}

func (st State) LoggedIn() bool {
	return st.CurrentUserID != NoUser
}

func (st State) copy() State {
	cp := st
	cp.Trips = append([]models.Trip(nil), st.Trips...)
	cp.Contacts = append([]models.Contact(nil), st.Contacts...)
	if cp.Trips == nil {
		cp.Trips = []models.Trip{}
	}
	if cp.Contacts == nil {
		cp.Contacts = []models.Contact{}
	}
	return cp
}

// Snapshot returns a copy of the current state
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.copy()
}

// Subscribe returns a channel that receives the latest state after every change.
// Snapshots a slow reader hasn't picked up are replaced by newer ones.
func (s *Session) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubscriberID
	s.nextSubscriberID++

	ch := make(chan State, 1)
	ch <- s.state.copy()
	s.subscribers[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}

	return ch, cancel
}

// update applies 'change' to the state & notifies subscribers
func (s *Session) update(change func(st *State)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	change(&s.state)
	s.publish()
}

// publish must be called with s.mu held
func (s *Session) publish() {
	for _, ch := range s.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- s.state.copy()
	}
}
