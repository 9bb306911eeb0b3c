package rtc

import (
	"context"
	"fmt"
	"sync"

	"github.com/dkeye/relay/internal/core"
	"github.com/dkeye/relay/internal/domain"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type WebRTCConnection struct {
	id     string
	pc     *webrtc.PeerConnection
	ctx    context.Context
	cancel context.CancelFunc
	logger zerolog.Logger

	mu       sync.Mutex
	onICE    func(domain.Candidate)
	onTrack  func(core.MediaTrack)
	onClosed func()

	closedOnce sync.Once
}

func newWebRTCConnection(parent context.Context, pc *webrtc.PeerConnection) *WebRTCConnection {
	ctx, cancel := context.WithCancel(parent)
	id := uuid.NewString()
	c := &WebRTCConnection{
		id:     id,
		pc:     pc,
		ctx:    ctx,
		cancel: cancel,
		logger: log.With().Str("module", "webrtc").Str("conn_id", id).Logger(),
	}

	pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		c.logger.Info().Str("ice_state", s.String()).Msg("ICE state")
	})

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		c.logger.Info().Str("peer_connection_state", s.String()).Msg("Peer state")
		if s == webrtc.PeerConnectionStateFailed ||
			s == webrtc.PeerConnectionStateClosed {
			c.cancel()
			c.fireClosed()
		}
	})

	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			return
		}
		c.mu.Lock()
		fn := c.onICE
		c.mu.Unlock()
		if fn != nil {
			fn(candidateFromInit(cand.ToJSON()))
		}
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		c.handleRemoteTrack(track)
	})

	return c
}

func (c *WebRTCConnection) handleRemoteTrack(track *webrtc.TrackRemote) {
	logger := c.logger.With().
		Str("kind", track.Kind().String()).
		Str("track_id", track.ID()).
		Str("stream_id", track.StreamID()).
		Logger()
	logger.Info().Msg("OnTrack received")

	local, err := webrtc.NewTrackLocalStaticRTP(track.Codec().RTPCodecCapability, track.ID(), track.StreamID())
	if err != nil {
		logger.Error().Err(err).Msg("create local track")
		return
	}
	relay := NewRelay(c.id, track, local, c.pc.WriteRTCP, logger)
	go relay.loop(c.ctx)

	c.mu.Lock()
	fn := c.onTrack
	c.mu.Unlock()
	if fn != nil {
		fn(relay)
	}
}

func (c *WebRTCConnection) fireClosed() {
	c.closedOnce.Do(func() {
		c.mu.Lock()
		fn := c.onClosed
		c.mu.Unlock()
		if fn != nil {
			fn()
		}
	})
}

func (c *WebRTCConnection) SetRemoteDescription(desc domain.Description) error {
	return c.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.NewSDPType(string(desc.Type)),
		SDP:  desc.SDP,
	})
}

func (c *WebRTCConnection) CreateAnswer() (domain.Description, error) {
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return domain.Description{}, err
	}
	return domain.Description{Type: domain.SDPType(answer.Type.String()), SDP: answer.SDP}, nil
}

func (c *WebRTCConnection) SetLocalDescription(desc domain.Description) error {
	return c.pc.SetLocalDescription(webrtc.SessionDescription{
		Type: webrtc.NewSDPType(string(desc.Type)),
		SDP:  desc.SDP,
	})
}

// AddTrack binds a relay from another connection to this peer and starts
// reading the subscriber's RTCP.
func (c *WebRTCConnection) AddTrack(t core.MediaTrack) error {
	relay, ok := t.(*Relay)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnsupportedTrack, t)
	}
	sender, err := c.pc.AddTrack(relay.Local)
	if err != nil {
		return err
	}
	ot := NewOutTrack(sender, relay)
	go ot.readRTCP(c.ctx, &c.logger)
	relay.RequestKeyframe()
	return nil
}

func (c *WebRTCConnection) AddICECandidate(cand domain.Candidate) error {
	return c.pc.AddICECandidate(initFromCandidate(cand))
}

func (c *WebRTCConnection) OnICECandidate(fn func(domain.Candidate)) {
	c.mu.Lock()
	c.onICE = fn
	c.mu.Unlock()
}

// OnTrack sets application-level callback for remote tracks.
func (c *WebRTCConnection) OnTrack(fn func(core.MediaTrack)) {
	c.mu.Lock()
	c.onTrack = fn
	c.mu.Unlock()
}

// OnClosed sets application-level callback for engine-side failure or closure.
func (c *WebRTCConnection) OnClosed(fn func()) {
	c.mu.Lock()
	c.onClosed = fn
	c.mu.Unlock()
}

func (c *WebRTCConnection) Close() error {
	c.cancel()
	if err := c.pc.Close(); err != nil {
		c.logger.Error().Err(err).Msg("close error")
		return err
	}
	c.logger.Info().Msg("closed")
	return nil
}

func candidateFromInit(ci webrtc.ICECandidateInit) domain.Candidate {
	return domain.Candidate{
		Candidate:     ci.Candidate,
		SDPMid:        ci.SDPMid,
		SDPMLineIndex: ci.SDPMLineIndex,
	}
}

func initFromCandidate(c domain.Candidate) webrtc.ICECandidateInit {
	return webrtc.ICECandidateInit{
		Candidate:     c.Candidate,
		SDPMid:        c.SDPMid,
		SDPMLineIndex: c.SDPMLineIndex,
	}
}
