package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/ajramos/inboxpilot/internal/services"
	"github.com/google/uuid"
)

// SessionCookie carries the chat session id
const SessionCookie = "inboxpilot_session"

const defaultSessionTTL = 12 * time.Hour

// SessionFactory builds the controller for a new chat session
type SessionFactory func() *services.ChatController

type session struct {
	ctrl     *services.ChatController
	lastSeen time.Time
}

// SessionStore keeps one ChatController per browser session. Idle sessions
// are dropped after ttl.
type SessionStore struct {
	mu       sync.Mutex
	factory  SessionFactory
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*session
}

// NewSessionStore creates an empty store
func NewSessionStore(factory SessionFactory, ttl time.Duration) *SessionStore {
	return &SessionStore{
		factory:  factory,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Obtain returns the controller for id, creating a session under a new id
// when id is unknown or malformed.
func (st *SessionStore) Obtain(id string) (string, *services.ChatController) {
	st.mu.Lock()
	defer st.mu.Unlock()
	now := st.now()
	st.pruneLocked(now)

	if _, err := uuid.Parse(id); err == nil {
		if sess, ok := st.sessions[id]; ok {
			sess.lastSeen = now
			return id, sess.ctrl
		}
	}
	id = uuid.NewString()
	sess := &session{ctrl: st.factory(), lastSeen: now}
	st.sessions[id] = sess
	return id, sess.ctrl
}

// Len returns the number of live sessions
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

func (st *SessionStore) pruneLocked(now time.Time) {
	if st.ttl <= 0 {
		return
	}
	for id, sess := range st.sessions {
		// a running command keeps its session alive
		if now.Sub(sess.lastSeen) > st.ttl && !sess.ctrl.Busy() {
			delete(st.sessions, id)
		}
	}
}

// session resolves the caller's controller and refreshes the cookie
func (s *Server) session(w http.ResponseWriter, r *http.Request) *services.ChatController {
	var id string
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}
	id, ctrl := s.sessions.Obtain(id)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return ctrl
}
