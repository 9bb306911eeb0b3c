package signal

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/relay/internal/domain"
)

const (
	TypeOffer     = "offer"
	TypeAnswer    = "answer"
	TypeCandidate = "candidate"
	TypePing      = "ping"
	TypePong      = "pong"
	TypeError     = "error"
)

type envelope struct {
	Type string `json:"type"`
}

type offerPayload struct {
	Type string `json:"type"`
	Role string `json:"role"`
	SDP  string `json:"sdp"`
}

type answerMessage struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// candidateMessage is used in both directions.
type candidateMessage struct {
	Type          string  `json:"type"`
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func decodeOffer(data []byte) (offerPayload, error) {
	var p offerPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("bad offer payload: %w", err)
	}
	if p.SDP == "" {
		return p, fmt.Errorf("bad offer payload: empty sdp")
	}
	return p, nil
}

func decodeCandidate(data []byte) (domain.Candidate, error) {
	var p candidateMessage
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Candidate{}, fmt.Errorf("bad candidate payload: %w", err)
	}
	return domain.Candidate{
		Candidate:     p.Candidate,
		SDPMid:        p.SDPMid,
		SDPMLineIndex: p.SDPMLineIndex,
	}, nil
}

func newCandidateMessage(c domain.Candidate) candidateMessage {
	return candidateMessage{
		Type:          TypeCandidate,
		Candidate:     c.Candidate,
		SDPMid:        c.SDPMid,
		SDPMLineIndex: c.SDPMLineIndex,
	}
}
