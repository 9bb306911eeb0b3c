package domain

type TrackID string

type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// KindOrder is the order in which kinds are replayed to a late receiver.
var KindOrder = []Kind{KindVideo, KindAudio}
