package rtc

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/relay/internal/core"
	"github.com/pion/interceptor"
	"github.com/pion/interceptor/pkg/intervalpli"
	"github.com/pion/webrtc/v4"
)

var ErrUnsupportedTrack = errors.New("track was not produced by this engine")

// Engine builds pion peer connections that share one media and interceptor
// setup. Relays and subscriber readers live until their connection closes or
// ctx is done.
type Engine struct {
	ctx context.Context
	api *webrtc.API
}

func NewEngine(ctx context.Context) (*Engine, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}

	ir := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, ir); err != nil {
		return nil, fmt.Errorf("register default interceptors: %w", err)
	}
	// Periodic PLI keeps keyframes flowing for receivers that join late.
	pli, err := intervalpli.NewReceiverInterceptor()
	if err != nil {
		return nil, fmt.Errorf("create PLI interceptor: %w", err)
	}
	ir.Add(pli)

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(m),
		webrtc.WithInterceptorRegistry(ir),
	)
	return &Engine{ctx: ctx, api: api}, nil
}

func (e *Engine) NewConnection(iceServers []core.ICEServer) (core.Connection, error) {
	pc, err := e.api.NewPeerConnection(Configuration(iceServers))
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}
	return newWebRTCConnection(e.ctx, pc), nil
}

// Configuration converts configured ICE servers into a pion configuration.
func Configuration(servers []core.ICEServer) webrtc.Configuration {
	cfg := webrtc.Configuration{}
	for _, s := range servers {
		if len(s.URLs) == 0 {
			continue
		}
		cfg.ICEServers = append(cfg.ICEServers, webrtc.ICEServer{
			URLs:       s.URLs,
			Username:   s.Username,
			Credential: s.Credential,
		})
	}
	return cfg
}
