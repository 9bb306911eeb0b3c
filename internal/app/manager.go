package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dkeye/relay/internal/core"
	"github.com/dkeye/relay/internal/domain"
	"github.com/dkeye/relay/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Session is one client's negotiated relay connection.
type Session struct {
	ID        domain.SessionID
	Role      domain.Role
	Transport *TransportSession
	CreatedAt time.Time
}

// Stats is a point-in-time view for the status endpoint.
type Stats struct {
	Senders   int                 `json:"senders"`
	Receivers int                 `json:"receivers"`
	Tracks    map[domain.Kind]int `json:"tracks"`
}

// SessionManager owns the live sessions and the track registry. All state is
// touched only from the Run goroutine; public methods enqueue an operation
// and wait for it.
type SessionManager struct {
	engine     core.Engine
	iceServers []core.ICEServer

	queue *opQueue
	done  chan struct{}

	sessions map[domain.SessionID]*Session
	registry *TrackRegistry
}

func NewSessionManager(engine core.Engine, iceServers []core.ICEServer) *SessionManager {
	return &SessionManager{
		engine:     engine,
		iceServers: iceServers,
		queue:      newOpQueue(),
		done:       make(chan struct{}),
		sessions:   make(map[domain.SessionID]*Session),
		registry:   NewTrackRegistry(),
	}
}

// Run processes operations until ctx is done, then closes every live session.
func (m *SessionManager) Run(ctx context.Context) {
	logger := log.With().Str("module", "app.manager").Logger()
	logger.Info().Msg("session manager started")
	defer close(m.done)

	for {
		select {
		case <-ctx.Done():
			dropped := m.queue.close()
			m.shutdown()
			logger.Info().Int("dropped_ops", len(dropped)).Msg("session manager stopped")
			return
		case <-m.queue.notify:
			for {
				o, ok := m.queue.pop()
				if !ok {
					break
				}
				start := time.Now()
				o.fn()
				metrics.OperationDuration.WithLabelValues(o.name).Observe(time.Since(start).Seconds())
			}
		}
	}
}

// Done is closed once Run has returned.
func (m *SessionManager) Done() <-chan struct{} { return m.done }

func (m *SessionManager) enqueue(name string, fn func()) bool {
	return m.queue.push(op{name: name, fn: fn})
}

// do runs fn on the actor and waits. A caller that gives up does not cancel
// fn once it has been dequeued.
func (m *SessionManager) do(ctx context.Context, name string, fn func()) error {
	finished := make(chan struct{})
	if !m.enqueue(name, func() {
		defer close(finished)
		fn()
	}) {
		return ErrManagerStopped
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrManagerStopped
		}
	}
}

// CreateSession negotiates a new session for clientID, replacing any live
// one, and returns the answer SDP. onCandidate receives local ICE candidates.
func (m *SessionManager) CreateSession(
	ctx context.Context,
	clientID domain.SessionID,
	role domain.Role,
	offerSDP string,
	onCandidate func(domain.Candidate),
) (string, error) {
	var (
		answer string
		opErr  error
	)
	err := m.do(ctx, "create", func() {
		answer, opErr = m.createSession(clientID, role, offerSDP, onCandidate)
	})
	if err != nil {
		return "", err
	}
	return answer, opErr
}

// AddRemoteCandidate forwards c to clientID's transport. Unknown clients are
// ignored.
func (m *SessionManager) AddRemoteCandidate(ctx context.Context, clientID domain.SessionID, c domain.Candidate) error {
	var opErr error
	err := m.do(ctx, "candidate", func() {
		opErr = m.addRemoteCandidate(clientID, c)
	})
	if err != nil {
		return err
	}
	return opErr
}

// CloseSession tears down clientID's session. Closing twice is a no-op.
func (m *SessionManager) CloseSession(ctx context.Context, clientID domain.SessionID) error {
	return m.do(ctx, "close", func() {
		m.closeSession(clientID, nil)
	})
}

func (m *SessionManager) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := m.do(ctx, "stats", func() {
		st.Tracks = m.registry.CountByKind()
		for _, s := range m.sessions {
			switch s.Role {
			case domain.RoleSender:
				st.Senders++
			case domain.RoleReceiver:
				st.Receivers++
			}
		}
	})
	return st, err
}

func (m *SessionManager) createSession(
	clientID domain.SessionID,
	role domain.Role,
	offerSDP string,
	onCandidate func(domain.Candidate),
) (string, error) {
	logger := log.With().
		Str("module", "app.manager").
		Str("sid", string(clientID)).
		Str("role", role.String()).
		Logger()

	if _, ok := m.sessions[clientID]; ok {
		logger.Info().Msg("replacing live session")
		m.closeSession(clientID, nil)
	}

	conn, err := m.engine.NewConnection(m.iceServers)
	if err != nil {
		metrics.NegotiationFailures.Inc()
		return "", fmt.Errorf("new connection for %s: %w", clientID, err)
	}
	ts := NewTransportSession(clientID, role, conn)

	cb := Callbacks{
		OnICECandidate: onCandidate,
		OnClosed: func() {
			m.enqueue("engine_close", func() { m.closeSession(clientID, ts) })
		},
	}
	if role == domain.RoleSender {
		cb.OnTrack = func(t core.MediaTrack) {
			m.enqueue("publish", func() { m.publish(ts, t) })
		}
	}
	ts.Attach(cb)

	if role == domain.RoleReceiver {
		if err := m.replayTracks(ts); err != nil {
			m.release(ts)
			metrics.NegotiationFailures.Inc()
			return "", err
		}
	}

	answer, err := ts.Negotiate(domain.Description{Type: domain.SDPTypeOffer, SDP: offerSDP})
	if err != nil {
		m.release(ts)
		metrics.NegotiationFailures.Inc()
		return "", fmt.Errorf("negotiate %s: %w", clientID, err)
	}

	m.sessions[clientID] = &Session{
		ID:        clientID,
		Role:      role,
		Transport: ts,
		CreatedAt: ts.CreatedAt(),
	}
	metrics.RecordSessionCreated(role.String())
	logger.Info().Int("sessions", len(m.sessions)).Msg("session active")
	return answer.SDP, nil
}

// replayTracks binds every registered track to a joining receiver in
// publish order.
func (m *SessionManager) replayTracks(ts *TransportSession) error {
	for _, t := range m.registry.Ordered() {
		if _, ok := m.sessions[t.Owner]; !ok {
			return fmt.Errorf("%w: track %s owned by closed session %s", ErrInvariantViolation, t.ID, t.Owner)
		}
		added, err := ts.AddTrack(t.Media)
		if err != nil {
			log.Error().Err(err).
				Str("module", "app.manager").
				Str("sid", string(ts.ID())).
				Str("track_id", string(t.ID)).
				Msg("replay track")
			continue
		}
		if added {
			metrics.TrackDeliveries.Inc()
		}
	}
	return nil
}

// publish registers a sender's new track and binds it to every live
// receiver within the same operation.
func (m *SessionManager) publish(ts *TransportSession, media core.MediaTrack) {
	logger := log.With().
		Str("module", "app.manager").
		Str("sid", string(ts.ID())).
		Str("track_id", string(media.ID())).
		Str("kind", string(media.Kind())).
		Logger()

	sess, ok := m.sessions[ts.ID()]
	if !ok || sess.Transport != ts {
		logger.Warn().Msg("track from session that is not live, dropped")
		return
	}

	if !m.registry.Has(ts.ID(), media.ID()) {
		m.registry.Add(Track{
			ID:    media.ID(),
			Kind:  media.Kind(),
			Owner: ts.ID(),
			Media: media,
		})
		metrics.RecordTrackPublished(string(media.Kind()))
		logger.Info().Int("tracks", m.registry.Len()).Msg("track published")
	}

	delivered := 0
	for _, r := range m.receivers() {
		added, err := r.Transport.AddTrack(media)
		if err != nil {
			logger.Error().Err(err).Str("receiver", string(r.ID)).Msg("fan-out")
			continue
		}
		if added {
			delivered++
			metrics.TrackDeliveries.Inc()
		}
	}
	logger.Debug().Int("delivered", delivered).Msg("fan-out done")
}

func (m *SessionManager) receivers() []*Session {
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		if s.Role == domain.RoleReceiver {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b *Session) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out
}

func (m *SessionManager) addRemoteCandidate(clientID domain.SessionID, c domain.Candidate) error {
	sess, ok := m.sessions[clientID]
	if !ok {
		log.Debug().Str("module", "app.manager").Str("sid", string(clientID)).Msg("candidate for unknown session ignored")
		return nil
	}
	err := sess.Transport.AddICECandidate(c)
	if errors.Is(err, ErrSessionClosed) {
		return nil
	}
	return err
}

// closeSession removes clientID. When only is set, the live session must be
// that transport; engine callbacks use it so they never close a replacement.
func (m *SessionManager) closeSession(clientID domain.SessionID, only *TransportSession) {
	sess, ok := m.sessions[clientID]
	if !ok || (only != nil && sess.Transport != only) {
		return
	}
	delete(m.sessions, clientID)

	logger := log.With().Str("module", "app.manager").Str("sid", string(clientID)).Logger()
	if sess.Role == domain.RoleSender {
		removed := m.registry.RemoveByOwner(clientID)
		receivers := m.receivers()
		for _, t := range removed {
			metrics.RecordTrackRemoved(string(t.Kind))
			for _, r := range receivers {
				r.Transport.ReleaseTrack(t.ID)
			}
		}
		logger.Info().Int("removed_tracks", len(removed)).Msg("sender tracks removed")
	}
	if err := sess.Transport.Close(); err != nil {
		logger.Error().Err(err).Msg("close transport")
	}
	metrics.RecordSessionClosed(sess.Role.String())
	logger.Info().Int("sessions", len(m.sessions)).Msg("session closed")
}

// release closes a transport that never became a live session.
func (m *SessionManager) release(ts *TransportSession) {
	if err := ts.Close(); err != nil {
		log.Error().Err(err).Str("module", "app.manager").Str("sid", string(ts.ID())).Msg("release transport")
	}
}

func (m *SessionManager) shutdown() {
	ids := make([]domain.SessionID, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		m.closeSession(id, nil)
	}
}
