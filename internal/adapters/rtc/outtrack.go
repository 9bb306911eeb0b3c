package rtc

import (
	"context"

	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// OutTrack is one subscriber's binding of a relay.
type OutTrack struct {
	Sender *webrtc.RTPSender
	src    *Relay
}

func NewOutTrack(sender *webrtc.RTPSender, src *Relay) *OutTrack {
	return &OutTrack{Sender: sender, src: src}
}

// readRTCP drains subscriber feedback so interceptors keep working, and
// turns keyframe requests into PLIs toward the publisher.
func (ot *OutTrack) readRTCP(ctx context.Context, logger *zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		pkts, _, err := ot.Sender.ReadRTCP()
		if err != nil {
			logger.Debug().Err(err).Msg("subscriber RTCP reader stopped")
			return
		}
		if wantsKeyframe(pkts) {
			ot.src.RequestKeyframe()
		}
	}
}

func wantsKeyframe(pkts []rtcp.Packet) bool {
	for _, p := range pkts {
		switch p.(type) {
		case *rtcp.PictureLossIndication, *rtcp.FullIntraRequest:
			return true
		}
	}
	return false
}
