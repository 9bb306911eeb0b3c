package app

import (
	"slices"

	"github.com/dkeye/relay/internal/core"
	"github.com/dkeye/relay/internal/domain"
)

// Track is a published stream tagged with the sender session that owns it.
type Track struct {
	ID    domain.TrackID
	Kind  domain.Kind
	Owner domain.SessionID
	Media core.MediaTrack
}

type trackKey struct {
	owner domain.SessionID
	id    domain.TrackID
}

// TrackRegistry keeps published tracks per kind in publish order.
// It is not safe for concurrent use; SessionManager is its only caller.
type TrackRegistry struct {
	byKind map[domain.Kind][]Track
	index  map[trackKey]struct{}
}

func NewTrackRegistry() *TrackRegistry {
	return &TrackRegistry{
		byKind: make(map[domain.Kind][]Track),
		index:  make(map[trackKey]struct{}),
	}
}

// Add appends t to the tail of its kind's sequence.
func (r *TrackRegistry) Add(t Track) {
	r.byKind[t.Kind] = append(r.byKind[t.Kind], t)
	r.index[trackKey{t.Owner, t.ID}] = struct{}{}
}

func (r *TrackRegistry) Has(owner domain.SessionID, id domain.TrackID) bool {
	_, ok := r.index[trackKey{owner, id}]
	return ok
}

// RemoveByOwner drops every track owned by owner and returns them.
// Kinds keep their (possibly empty) sequence.
func (r *TrackRegistry) RemoveByOwner(owner domain.SessionID) []Track {
	var removed []Track
	for _, kind := range r.Kinds() {
		seq := r.byKind[kind]
		kept := seq[:0:0]
		for _, t := range seq {
			if t.Owner == owner {
				removed = append(removed, t)
				delete(r.index, trackKey{t.Owner, t.ID})
				continue
			}
			kept = append(kept, t)
		}
		r.byKind[kind] = kept
	}
	return removed
}

// Snapshot returns a copy that later mutations never alias.
func (r *TrackRegistry) Snapshot() map[domain.Kind][]Track {
	out := make(map[domain.Kind][]Track, len(r.byKind))
	for kind, seq := range r.byKind {
		out[kind] = slices.Clone(seq)
	}
	return out
}

// Ordered flattens a snapshot: video, audio, then other kinds by name.
func (r *TrackRegistry) Ordered() []Track {
	out := make([]Track, 0, r.Len())
	for _, kind := range r.Kinds() {
		out = append(out, r.byKind[kind]...)
	}
	return out
}

func (r *TrackRegistry) Kinds() []domain.Kind {
	kinds := make([]domain.Kind, 0, len(r.byKind))
	var rest []domain.Kind
	for _, k := range domain.KindOrder {
		if _, ok := r.byKind[k]; ok {
			kinds = append(kinds, k)
		}
	}
	for k := range r.byKind {
		if !slices.Contains(domain.KindOrder, k) {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	return append(kinds, rest...)
}

func (r *TrackRegistry) Len() int {
	return len(r.index)
}

// CountByKind reports how many tracks each kind holds.
func (r *TrackRegistry) CountByKind() map[domain.Kind]int {
	out := make(map[domain.Kind]int, len(r.byKind))
	for kind, seq := range r.byKind {
		out[kind] = len(seq)
	}
	return out
}
