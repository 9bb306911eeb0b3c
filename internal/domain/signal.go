package domain

import "errors"

var ErrEmptyCandidate = errors.New("empty candidate")

// Candidate is a trickled ICE candidate as carried on the signaling channel.
type Candidate struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
}

func (c Candidate) Validate() error {
	if c.Candidate == "" {
		return ErrEmptyCandidate
	}
	return nil
}

type SDPType string

const (
	SDPTypeOffer  SDPType = "offer"
	SDPTypeAnswer SDPType = "answer"
)

// Description is an opaque SDP payload with its type.
type Description struct {
	Type SDPType `json:"type"`
	SDP  string  `json:"sdp"`
}
