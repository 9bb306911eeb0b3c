package core

import "github.com/dkeye/relay/internal/domain"

// MediaTrack is an engine-owned published stream. The core only reads its
// identity and hands it back to the engine through Connection.AddTrack.
type MediaTrack interface {
	ID() domain.TrackID
	Kind() domain.Kind
}

type ICEServer struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

// Engine allocates negotiated media connections.
type Engine interface {
	NewConnection(iceServers []ICEServer) (Connection, error)
}

// Connection is one client's handle inside the RTC engine.
type Connection interface {
	SetRemoteDescription(domain.Description) error
	CreateAnswer() (domain.Description, error)
	SetLocalDescription(domain.Description) error
	// AddTrack starts forwarding a published track to the remote peer.
	AddTrack(MediaTrack) error
	// AddICECandidate applies a remote ICE candidate.
	AddICECandidate(domain.Candidate) error
	// OnTrack sets a callback invoked when the remote peer publishes a track.
	OnTrack(func(MediaTrack))
	// OnICECandidate sets a callback for newly gathered local ICE candidates.
	OnICECandidate(func(domain.Candidate))
	// OnClosed sets a callback invoked once when the engine gives up on the connection.
	OnClosed(func())
	Close() error
}
