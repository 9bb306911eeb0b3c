package rtc

import (
	"context"
	"errors"
	"io"

	"github.com/dkeye/relay/internal/domain"
	"github.com/dkeye/relay/internal/metrics"
	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Relay copies RTP from a publisher's remote track into a local track that
// any number of subscriber connections can bind.
type Relay struct {
	Src   *webrtc.TrackRemote
	Local *webrtc.TrackLocalStaticRTP

	id        domain.TrackID
	writeRTCP func([]rtcp.Packet) error
	forwarded prometheus.Counter
	logger    zerolog.Logger
}

// NewRelay binds src to local. connID is the publisher connection's id, so
// two publishers reusing one msid still get distinct relays.
func NewRelay(connID string, src *webrtc.TrackRemote, local *webrtc.TrackLocalStaticRTP, writeRTCP func([]rtcp.Packet) error, logger zerolog.Logger) *Relay {
	kind := src.Kind().String()
	return &Relay{
		Src:       src,
		Local:     local,
		id:        TrackID(connID, src.StreamID(), src.ID()),
		writeRTCP: writeRTCP,
		forwarded: metrics.ForwardedPackets.WithLabelValues(kind),
		logger:    logger,
	}
}

func (r *Relay) ID() domain.TrackID { return r.id }

func (r *Relay) Kind() domain.Kind {
	return domain.Kind(r.Src.Kind().String())
}

// TrackID is the registry identity of a remote track: the msid scoped to the
// connection that received it.
func TrackID(connID, streamID, trackID string) domain.TrackID {
	return domain.TrackID(connID + "/" + streamID + "/" + trackID)
}

// loop reads RTP packets from the source track until it ends or ctx is done.
func (r *Relay) loop(ctx context.Context) {
	logger := &r.logger
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("relay ctx done")
			return
		default:
		}
		pkt, _, err := r.Src.ReadRTP()
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.Info().Msg("relay source ended")
			} else {
				logger.Error().Err(err).Msg("relay read RTP error, stopping")
			}
			return
		}
		r.forward(pkt, logger)
	}
}

func (r *Relay) forward(pkt *rtp.Packet, logger *zerolog.Logger) {
	if err := r.Local.WriteRTP(pkt); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		logger.Warn().Err(err).Msg("relay write RTP error")
		return
	}
	r.forwarded.Inc()
}

// RequestKeyframe asks the publisher for a fresh keyframe. Audio is ignored.
func (r *Relay) RequestKeyframe() {
	if r.Src.Kind() != webrtc.RTPCodecTypeVideo || r.writeRTCP == nil {
		return
	}
	if err := r.writeRTCP([]rtcp.Packet{
		&rtcp.PictureLossIndication{MediaSSRC: uint32(r.Src.SSRC())},
	}); err != nil {
		r.logger.Debug().Err(err).Msg("keyframe request")
	}
}
