package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/relay/internal/core"
	"github.com/dkeye/relay/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type SessionState int32

const (
	StateNegotiating SessionState = iota
	StateActive
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateNegotiating:
		return "negotiating"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Callbacks are the engine events a session forwards to its owner.
type Callbacks struct {
	OnTrack        func(core.MediaTrack)
	OnICECandidate func(domain.Candidate)
	OnClosed       func()
}

// TransportSession adapts one engine connection: it suppresses duplicate
// track bindings and holds remote candidates until the remote description
// is applied.
type TransportSession struct {
	id        domain.SessionID
	role      domain.Role
	conn      core.Connection
	createdAt time.Time
	logger    zerolog.Logger

	mu        sync.Mutex
	state     SessionState
	remoteSet bool
	pending   []domain.Candidate
	added     map[domain.TrackID]struct{}
}

func NewTransportSession(id domain.SessionID, role domain.Role, conn core.Connection) *TransportSession {
	return &TransportSession{
		id:        id,
		role:      role,
		conn:      conn,
		createdAt: time.Now(),
		logger: log.With().
			Str("module", "app.session").
			Str("sid", string(id)).
			Str("role", role.String()).
			Logger(),
		added: make(map[domain.TrackID]struct{}),
	}
}

func (s *TransportSession) ID() domain.SessionID { return s.id }
func (s *TransportSession) Role() domain.Role     { return s.role }
func (s *TransportSession) CreatedAt() time.Time  { return s.createdAt }

func (s *TransportSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Attach registers engine event handlers. Nil handlers are skipped.
func (s *TransportSession) Attach(cb Callbacks) {
	if cb.OnTrack != nil {
		s.conn.OnTrack(cb.OnTrack)
	}
	if cb.OnICECandidate != nil {
		s.conn.OnICECandidate(cb.OnICECandidate)
	}
	if cb.OnClosed != nil {
		s.conn.OnClosed(cb.OnClosed)
	}
}

// AddTrack binds a published track to this session once. It reports whether
// the engine was actually called.
func (s *TransportSession) AddTrack(t core.MediaTrack) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return false, ErrSessionClosed
	}
	if _, ok := s.added[t.ID()]; ok {
		return false, nil
	}
	if err := s.conn.AddTrack(t); err != nil {
		return false, fmt.Errorf("add track %s: %w", t.ID(), err)
	}
	s.added[t.ID()] = struct{}{}
	s.logger.Debug().Str("track_id", string(t.ID())).Str("kind", string(t.Kind())).Msg("track added")
	return true, nil
}

// ReleaseTrack forgets the binding of a track whose publisher is gone, so a
// later track with the same id is bound again.
func (s *TransportSession) ReleaseTrack(id domain.TrackID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.added, id)
}

// Negotiate answers a remote offer and leaves the session Active.
func (s *TransportSession) Negotiate(offer domain.Description) (domain.Description, error) {
	if err := s.SetRemoteDescription(offer); err != nil {
		return domain.Description{}, err
	}
	answer, err := s.CreateAnswer()
	if err != nil {
		return domain.Description{}, err
	}
	if err := s.SetLocalDescription(answer); err != nil {
		return domain.Description{}, err
	}
	return answer, nil
}

// SetRemoteDescription applies the offer and then flushes buffered
// candidates in arrival order.
func (s *TransportSession) SetRemoteDescription(desc domain.Description) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return ErrSessionClosed
	}
	if err := s.conn.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	s.remoteSet = true
	pending := s.pending
	s.pending = nil
	for _, c := range pending {
		if err := s.conn.AddICECandidate(c); err != nil {
			s.logger.Warn().Err(err).Str("candidate", c.Candidate).Msg("buffered candidate rejected")
		}
	}
	return nil
}

func (s *TransportSession) CreateAnswer() (domain.Description, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return domain.Description{}, ErrSessionClosed
	}
	answer, err := s.conn.CreateAnswer()
	if err != nil {
		return domain.Description{}, fmt.Errorf("create answer: %w", err)
	}
	return answer, nil
}

func (s *TransportSession) SetLocalDescription(desc domain.Description) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return ErrSessionClosed
	}
	if err := s.conn.SetLocalDescription(desc); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}
	s.state = StateActive
	return nil
}

// AddICECandidate applies c, or queues it while the remote description is
// still missing.
func (s *TransportSession) AddICECandidate(c domain.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return ErrSessionClosed
	}
	if !s.remoteSet {
		s.pending = append(s.pending, c)
		return nil
	}
	if err := s.conn.AddICECandidate(c); err != nil {
		return fmt.Errorf("add ice candidate: %w", err)
	}
	return nil
}

// Close releases the engine handle. Only the first call reaches the engine.
func (s *TransportSession) Close() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = StateClosed
	s.pending = nil
	s.mu.Unlock()

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("close transport: %w", err)
	}
	s.logger.Info().Msg("transport closed")
	return nil
}
