package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	cases := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"sender", RoleSender, true},
		{"receiver", RoleReceiver, true},
		{" Sender ", RoleSender, true},
		{"", RoleReceiver, false},
		{"publisher", RoleReceiver, false},
	}
	for _, tc := range cases {
		role, ok := ParseRole(tc.in)
		assert.Equal(t, tc.want, role, tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
	}
}

func TestCandidateValidate(t *testing.T) {
	assert.ErrorIs(t, Candidate{}.Validate(), ErrEmptyCandidate)
	assert.NoError(t, Candidate{Candidate: "candidate:1 1 udp 2122260223 10.0.0.1 5000 typ host"}.Validate())
}
