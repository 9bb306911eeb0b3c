package app

import (
	"testing"

	"github.com/dkeye/relay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func track(owner domain.SessionID, id domain.TrackID, kind domain.Kind) Track {
	return Track{ID: id, Kind: kind, Owner: owner, Media: fakeTrack{id: id, kind: kind}}
}

func ids(tracks []Track) []domain.TrackID {
	out := make([]domain.TrackID, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, t.ID)
	}
	return out
}

func TestRegistryAddKeepsPublishOrder(t *testing.T) {
	r := NewTrackRegistry()
	r.Add(track("s1", "v1", domain.KindVideo))
	r.Add(track("s1", "a1", domain.KindAudio))
	r.Add(track("s2", "v2", domain.KindVideo))

	snap := r.Snapshot()
	assert.Equal(t, []domain.TrackID{"v1", "v2"}, ids(snap[domain.KindVideo]))
	assert.Equal(t, []domain.TrackID{"a1"}, ids(snap[domain.KindAudio]))
	assert.Equal(t, []domain.TrackID{"v1", "v2", "a1"}, ids(r.Ordered()))
	assert.Equal(t, 3, r.Len())
	assert.True(t, r.Has("s2", "v2"))
	assert.False(t, r.Has("s1", "v2"))
}

func TestRegistryRemoveByOwnerIsolatesOwners(t *testing.T) {
	r := NewTrackRegistry()
	r.Add(track("s1", "v1", domain.KindVideo))
	r.Add(track("s2", "v2", domain.KindVideo))
	r.Add(track("s1", "v3", domain.KindVideo))
	r.Add(track("s2", "a2", domain.KindAudio))
	r.Add(track("s1", "a1", domain.KindAudio))

	removed := r.RemoveByOwner("s1")
	assert.ElementsMatch(t, []domain.TrackID{"v1", "v3", "a1"}, ids(removed))

	snap := r.Snapshot()
	assert.Equal(t, []domain.TrackID{"v2"}, ids(snap[domain.KindVideo]))
	assert.Equal(t, []domain.TrackID{"a2"}, ids(snap[domain.KindAudio]))
	assert.False(t, r.Has("s1", "v1"))
	assert.Equal(t, 2, r.Len())

	assert.Empty(t, r.RemoveByOwner("s1"))
}

func TestRegistryRemoveLastTrackLeavesEmptyKind(t *testing.T) {
	r := NewTrackRegistry()
	r.Add(track("s1", "v1", domain.KindVideo))
	r.RemoveByOwner("s1")

	snap := r.Snapshot()
	seq, ok := snap[domain.KindVideo]
	require.True(t, ok)
	assert.Empty(t, seq)
	assert.Equal(t, 0, r.Len())
}

func TestRegistrySnapshotDoesNotAlias(t *testing.T) {
	r := NewTrackRegistry()
	r.Add(track("s1", "v1", domain.KindVideo))

	snap := r.Snapshot()
	r.Add(track("s1", "v2", domain.KindVideo))
	r.RemoveByOwner("s1")

	assert.Equal(t, []domain.TrackID{"v1"}, ids(snap[domain.KindVideo]))

	snap[domain.KindVideo][0].ID = "mutated"
	assert.Empty(t, r.Snapshot()[domain.KindVideo])
}

func TestRegistryKindsOrder(t *testing.T) {
	r := NewTrackRegistry()
	r.Add(track("s1", "d1", domain.Kind("data")))
	r.Add(track("s1", "a1", domain.KindAudio))
	r.Add(track("s1", "v1", domain.KindVideo))

	assert.Equal(t, []domain.Kind{domain.KindVideo, domain.KindAudio, "data"}, r.Kinds())
	assert.Equal(t, map[domain.Kind]int{domain.KindVideo: 1, domain.KindAudio: 1, "data": 1}, r.CountByKind())
}
