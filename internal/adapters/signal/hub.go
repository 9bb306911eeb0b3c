package signal

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/relay/internal/domain"
)

var ErrUnknownClient = errors.New("unknown client")

// Hub maps client ids to their sockets and implements app.Emitter.
type Hub struct {
	mu    sync.RWMutex
	conns map[domain.SessionID]*WsSignalConn
}

func NewHub() *Hub {
	return &Hub{conns: make(map[domain.SessionID]*WsSignalConn)}
}

func (h *Hub) add(sid domain.SessionID, c *WsSignalConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[sid] = c
}

// remove unregisters sid only if it still maps to c.
func (h *Hub) remove(sid domain.SessionID, c *WsSignalConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.conns[sid]; ok && cur == c {
		delete(h.conns, sid)
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) EmitAnswer(sid domain.SessionID, answer domain.Description) error {
	return h.send(sid, answerMessage{Type: TypeAnswer, SDP: answer.SDP})
}

func (h *Hub) EmitCandidate(sid domain.SessionID, c domain.Candidate) error {
	return h.send(sid, newCandidateMessage(c))
}

func (h *Hub) send(sid domain.SessionID, v any) error {
	h.mu.RLock()
	c, ok := h.conns[sid]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownClient, sid)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %T: %w", v, err)
	}
	return c.TrySend(b)
}

// CloseAll drops every socket; read pumps then run their disconnect path.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]*WsSignalConn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	for _, c := range conns {
		c.Close()
	}
}
