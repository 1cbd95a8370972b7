package webui

import (
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/busfinder/busfinder/internal/clock"
	"github.com/busfinder/busfinder/internal/screen"
)

const sessionCookieName = "busfinder_session"

// session pairs a screen with the notifications waiting to be shown.
type session struct {
	id       string
	screen   *screen.Screen
	lastSeen atomic.Int64 // Unix nanoseconds

	mu    sync.Mutex
	flash []string
}

func (s *session) Notify(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flash = append(s.flash, message)
}

// takeFlash returns and clears the pending notifications.
func (s *session) takeFlash() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	flash := s.flash
	s.flash = nil
	return flash
}

// SessionStore maps session cookies to screens and closes screens whose
// session has been idle for longer than the TTL.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	clock    clock.Clock
	open     func(screen.Notifier) *screen.Screen
	logger   *slog.Logger

	sweepTick *time.Ticker
	stopChan  chan struct{}
	stopOnce  sync.Once
}

// NewSessionStore starts a store whose sweeper runs every ttl/2 (at least
// once a second).
func NewSessionStore(ttl time.Duration, c clock.Clock, open func(screen.Notifier) *screen.Screen, logger *slog.Logger) *SessionStore {
	if c == nil {
		c = clock.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	interval := ttl / 2
	if interval < time.Second {
		interval = time.Second
	}

	st := &SessionStore{
		sessions:  make(map[string]*session),
		ttl:       ttl,
		clock:     c,
		open:      open,
		logger:    logger.With(slog.String("component", "sessions")),
		sweepTick: time.NewTicker(interval),
		stopChan:  make(chan struct{}),
	}
	go st.sweep()
	return st
}

// lookup returns the caller's session, creating one (and setting the cookie)
// when the request carries no live session.
func (st *SessionStore) lookup(w http.ResponseWriter, r *http.Request) *session {
	now := st.clock.Now()

	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		st.mu.Lock()
		sess, ok := st.sessions[cookie.Value]
		if ok && !st.expired(sess, now) {
			sess.lastSeen.Store(now.UnixNano())
			st.mu.Unlock()
			return sess
		}
		if ok {
			st.removeLocked(sess)
		}
		st.mu.Unlock()
	}

	sess := &session{id: uuid.NewString()}
	sess.screen = st.open(sess)
	sess.lastSeen.Store(now.UnixNano())

	st.mu.Lock()
	st.sessions[sess.id] = sess
	st.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	st.logger.Debug("opened session", slog.String("session", sess.id))
	return sess
}

func (st *SessionStore) expired(sess *session, now time.Time) bool {
	return now.Sub(time.Unix(0, sess.lastSeen.Load())) > st.ttl
}

// removeLocked closes and forgets sess. st.mu must be held.
func (st *SessionStore) removeLocked(sess *session) {
	delete(st.sessions, sess.id)
	sess.screen.Close()
	st.logger.Debug("closed session", slog.String("session", sess.id))
}

// sweepOnce closes every expired session.
func (st *SessionStore) sweepOnce() {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.clock.Now()
	for _, sess := range st.sessions {
		if st.expired(sess, now) {
			st.removeLocked(sess)
		}
	}
}

func (st *SessionStore) sweep() {
	for {
		select {
		case <-st.sweepTick.C:
			st.sweepOnce()
		case <-st.stopChan:
			return
		}
	}
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Snapshots returns the state of every live session keyed by session id.
func (st *SessionStore) Snapshots() map[string]screen.Snapshot {
	st.mu.Lock()
	sessions := make([]*session, 0, len(st.sessions))
	for _, sess := range st.sessions {
		sessions = append(sessions, sess)
	}
	st.mu.Unlock()

	out := make(map[string]screen.Snapshot, len(sessions))
	for _, sess := range sessions {
		out[sess.id] = sess.screen.Snapshot()
	}
	return out
}

// Stop ends the sweeper and closes all sessions. Safe to call more than once.
func (st *SessionStore) Stop() {
	st.stopOnce.Do(func() {
		close(st.stopChan)
		st.sweepTick.Stop()

		st.mu.Lock()
		defer st.mu.Unlock()
		for _, sess := range st.sessions {
			st.removeLocked(sess)
		}
	})
}
