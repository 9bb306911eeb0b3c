package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/dkeye/relay/internal/domain"
	"github.com/dkeye/relay/internal/metrics"
	"github.com/rs/zerolog/log"
)

// SessionService is the part of SessionManager the gateway drives.
type SessionService interface {
	CreateSession(ctx context.Context, clientID domain.SessionID, role domain.Role, offerSDP string, onCandidate func(domain.Candidate)) (string, error)
	AddRemoteCandidate(ctx context.Context, clientID domain.SessionID, c domain.Candidate) error
	CloseSession(ctx context.Context, clientID domain.SessionID) error
}

// Emitter delivers server-originated messages to one client.
type Emitter interface {
	EmitAnswer(clientID domain.SessionID, answer domain.Description) error
	EmitCandidate(clientID domain.SessionID, c domain.Candidate) error
}

// Gateway translates signaling messages into session operations. It keeps no
// state of its own.
type Gateway struct {
	sessions SessionService
	emitter  Emitter
}

func NewGateway(sessions SessionService, emitter Emitter) *Gateway {
	return &Gateway{sessions: sessions, emitter: emitter}
}

func (g *Gateway) OnConnect(clientID domain.SessionID) {
	log.Info().Str("module", "app.gateway").Str("sid", string(clientID)).Msg("client connected")
}

// OnOffer negotiates a session and sends the answer back. An unknown role is
// treated as receiver.
func (g *Gateway) OnOffer(ctx context.Context, clientID domain.SessionID, rawRole string, sdp string) error {
	logger := log.With().Str("module", "app.gateway").Str("sid", string(clientID)).Logger()

	role, ok := domain.ParseRole(rawRole)
	if !ok {
		logger.Warn().Str("role", rawRole).Msg("unknown role, defaulting to receiver")
	}

	gate := &candidateGate{emit: func(c domain.Candidate) {
		if err := g.emitter.EmitCandidate(clientID, c); err != nil {
			logger.Warn().Err(err).Msg("emit local candidate")
		}
	}}

	answer, err := g.sessions.CreateSession(ctx, clientID, role, sdp, gate.push)
	if err != nil {
		gate.drop()
		return fmt.Errorf("offer from %s: %w", clientID, err)
	}
	logger.Info().Str("role", role.String()).Msg("answer ready")

	if err := g.emitter.EmitAnswer(clientID, domain.Description{Type: domain.SDPTypeAnswer, SDP: answer}); err != nil {
		gate.drop()
		return err
	}
	gate.release()
	return nil
}

// candidateGate holds local candidates until the answer has been sent, so the
// client never sees a candidate before the description it belongs to.
type candidateGate struct {
	mu      sync.Mutex
	open    bool
	dropped bool
	held    []domain.Candidate
	emit    func(domain.Candidate)
}

func (g *candidateGate) push(c domain.Candidate) {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch {
	case g.dropped:
	case g.open:
		g.emit(c)
	default:
		g.held = append(g.held, c)
	}
}

// release flushes held candidates in order and passes later ones through.
func (g *candidateGate) release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dropped {
		return
	}
	g.open = true
	for _, c := range g.held {
		g.emit(c)
	}
	g.held = nil
}

func (g *candidateGate) drop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dropped = true
	g.held = nil
}

// OnCandidate forwards a remote candidate. Malformed candidates are dropped.
func (g *Gateway) OnCandidate(ctx context.Context, clientID domain.SessionID, c domain.Candidate) {
	logger := log.With().Str("module", "app.gateway").Str("sid", string(clientID)).Logger()
	if err := c.Validate(); err != nil {
		metrics.DroppedCandidates.Inc()
		logger.Warn().Err(err).Msg("candidate dropped")
		return
	}
	if err := g.sessions.AddRemoteCandidate(ctx, clientID, c); err != nil {
		metrics.DroppedCandidates.Inc()
		logger.Warn().Err(err).Str("candidate", c.Candidate).Msg("candidate rejected")
	}
}

func (g *Gateway) OnDisconnect(ctx context.Context, clientID domain.SessionID) {
	log.Info().Str("module", "app.gateway").Str("sid", string(clientID)).Msg("client disconnected")
	if err := g.sessions.CloseSession(ctx, clientID); err != nil {
		log.Error().Err(err).Str("module", "app.gateway").Str("sid", string(clientID)).Msg("close session")
	}
}
