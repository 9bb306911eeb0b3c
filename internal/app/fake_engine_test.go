package app

import (
	"errors"
	"sync"

	"github.com/dkeye/relay/internal/core"
	"github.com/dkeye/relay/internal/domain"
)

type fakeTrack struct {
	id   domain.TrackID
	kind domain.Kind
}

func (t fakeTrack) ID() domain.TrackID { return t.id }
func (t fakeTrack) Kind() domain.Kind  { return t.kind }

var errRejected = errors.New("rejected by engine")

// fakeConn records every engine call made on one connection.
type fakeConn struct {
	mu          sync.Mutex
	calls       []string
	tracks      []domain.TrackID
	candidates  []string
	closed      int
	remoteSet   bool
	failRemote  bool
	failAnswer  bool
	onTrack     func(core.MediaTrack)
	onCandidate func(domain.Candidate)
	onClosed    func()
}

func (c *fakeConn) record(call string) {
	c.calls = append(c.calls, call)
}

func (c *fakeConn) SetRemoteDescription(d domain.Description) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("setRemote")
	if c.failRemote {
		return errRejected
	}
	c.remoteSet = true
	return nil
}

func (c *fakeConn) CreateAnswer() (domain.Description, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("createAnswer")
	if c.failAnswer {
		return domain.Description{}, errRejected
	}
	return domain.Description{Type: domain.SDPTypeAnswer, SDP: "answer-sdp"}, nil
}

func (c *fakeConn) SetLocalDescription(d domain.Description) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("setLocal")
	return nil
}

func (c *fakeConn) AddTrack(t core.MediaTrack) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("addTrack:" + string(t.ID()))
	c.tracks = append(c.tracks, t.ID())
	return nil
}

func (c *fakeConn) AddICECandidate(cand domain.Candidate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("addCandidate")
	c.candidates = append(c.candidates, cand.Candidate)
	return nil
}

func (c *fakeConn) OnTrack(fn func(core.MediaTrack)) {
	c.mu.Lock()
	c.onTrack = fn
	c.mu.Unlock()
}

func (c *fakeConn) OnICECandidate(fn func(domain.Candidate)) {
	c.mu.Lock()
	c.onCandidate = fn
	c.mu.Unlock()
}

func (c *fakeConn) OnClosed(fn func()) {
	c.mu.Lock()
	c.onClosed = fn
	c.mu.Unlock()
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("close")
	c.closed++
	return nil
}

// publish simulates the engine surfacing a remote track.
func (c *fakeConn) publish(t core.MediaTrack) {
	c.mu.Lock()
	fn := c.onTrack
	c.mu.Unlock()
	if fn != nil {
		fn(t)
	}
}

func (c *fakeConn) fail() {
	c.mu.Lock()
	fn := c.onClosed
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (c *fakeConn) Tracks() []domain.TrackID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.TrackID(nil), c.tracks...)
}

func (c *fakeConn) Candidates() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.candidates...)
}

func (c *fakeConn) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *fakeConn) Closed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fakeEngine hands out fakeConns in creation order.
type fakeEngine struct {
	mu       sync.Mutex
	conns    []*fakeConn
	next     func(*fakeConn)
	failNext bool
}

func (e *fakeEngine) NewConnection(_ []core.ICEServer) (core.Connection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failNext {
		e.failNext = false
		return nil, errRejected
	}
	c := &fakeConn{}
	if e.next != nil {
		e.next(c)
		e.next = nil
	}
	e.conns = append(e.conns, c)
	return c, nil
}

func (e *fakeEngine) conn(i int) *fakeConn {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conns[i]
}

func (e *fakeEngine) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.conns)
}
