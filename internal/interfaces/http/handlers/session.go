// internal/interfaces/http/handlers/session.go
package handlers

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/tracking"
	"github.com/your-org/storefront-backend/internal/infrastructure/persistence"
	"github.com/your-org/storefront-backend/internal/lifecycle"
)

const (
	sessionCookie  = "session_id"
	sessionIdleTTL = 24 * time.Hour
)

// Session holds the per-browsing-session cart state: the cart store and
// the event deduper scoped to this session's observation lifetime.
type Session struct {
	ID      string
	Store   *cart.Store
	Tracker *tracking.Deduper

	lastSeen time.Time
}

// SessionManager creates and caches cart sessions. It refuses to hand out
// sessions while the client boundary is unmounted, so cart state is never
// touched outside a client-capable context.
type SessionManager struct {
	mu        sync.Mutex
	boundary  *lifecycle.Boundary
	snapshots persistence.Store
	products  cart.ProductSource
	mirror    cart.Mirror
	log       *logrus.Logger
	sessions  map[string]*Session
}

// NewSessionManager creates a new session manager
func NewSessionManager(boundary *lifecycle.Boundary, snapshots persistence.Store, products cart.ProductSource, mirror cart.Mirror, logger *logrus.Logger) *SessionManager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SessionManager{
		boundary:  boundary,
		snapshots: snapshots,
		products:  products,
		mirror:    mirror,
		log:       logger,
		sessions:  make(map[string]*Session),
	}
}

// Session returns the cart session for the request, creating and hydrating
// it on first use. It returns false while the client boundary has not
// mounted; callers answer with a placeholder instead of touching state.
func (m *SessionManager) Session(c *gin.Context) (*Session, bool) {
	if !m.boundary.Mounted() {
		return nil, false
	}

	id := m.sessionID(c)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.pruneLocked()

	if s, ok := m.sessions[id]; ok {
		s.lastSeen = time.Now()
		return s, true
	}

	store := cart.NewStore(id, m.snapshots, m.products, m.mirror, m.log)
	store.Load()

	s := &Session{
		ID:       id,
		Store:    store,
		Tracker:  tracking.NewDeduper(m.log),
		lastSeen: time.Now(),
	}
	m.sessions[id] = s

	return s, true
}

// sessionID gets the session ID from the cookie or creates a new one.
// Anything that is not a well-formed uuid is discarded and replaced: the
// cookie value ends up in persistence keys and must never carry path
// characters or other forged content.
func (m *SessionManager) sessionID(c *gin.Context) string {
	sessionID, err := c.Cookie(sessionCookie)
	if err != nil || uuid.Validate(sessionID) != nil {
		sessionID = uuid.New().String()
		c.SetCookie(sessionCookie, sessionID, 86400, "/", "", false, true)
	}
	return sessionID
}

// pruneLocked drops sessions idle past the TTL. An evicted session that
// comes back is rebuilt from its persisted snapshot with a fresh tracker
// lifetime, the remount semantics the deduper expects.
func (m *SessionManager) pruneLocked() {
	cutoff := time.Now().Add(-sessionIdleTTL)
	for id, s := range m.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(m.sessions, id)
		}
	}
}
