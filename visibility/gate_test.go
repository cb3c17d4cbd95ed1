package visibility

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"picstream-api/auth"
)

type stubOracle struct {
	friends bool
	err     error
	calls   int
}

func (s *stubOracle) AreFriends(_ context.Context, _ *auth.Identity, _ uint) (bool, error) {
	s.calls++
	return s.friends, s.err
}

func viewer(id uint) *auth.Identity {
	return &auth.Identity{UserID: id, Username: "viewer"}
}

func TestCanViewDecisionTable(t *testing.T) {
	tests := []struct {
		name      string
		ownerID   uint
		isPrivate bool
		viewerID  uint
		friends   bool
		oracleErr error
		want      bool
	}{
		{"public post, stranger", 1, false, 2, false, nil, true},
		{"public post, owner", 1, false, 1, false, nil, true},
		{"private post, owner", 1, true, 1, false, nil, true},
		{"private post, friend", 1, true, 2, true, nil, true},
		{"private post, stranger", 1, true, 2, false, nil, false},
		{"private post, oracle down", 1, true, 2, true, errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := &stubOracle{friends: tt.friends, err: tt.oracleErr}
			gate := NewGate(oracle, zap.NewNop())

			got := gate.CanView(context.Background(), tt.ownerID, tt.isPrivate, viewer(tt.viewerID))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanViewSkipsOracleWhenNotNeeded(t *testing.T) {
	oracle := &stubOracle{}
	gate := NewGate(oracle, zap.NewNop())

	gate.CanView(context.Background(), 1, false, viewer(2)) // public
	gate.CanView(context.Background(), 1, true, viewer(1))  // owner
	assert.Zero(t, oracle.calls)
}

func TestCanMutate(t *testing.T) {
	gate := NewGate(&stubOracle{friends: true}, zap.NewNop())

	assert.True(t, gate.CanMutate(1, 1))
	// Friendship grants visibility, never mutation.
	assert.False(t, gate.CanMutate(1, 2))
}

func TestCanDeleteComment(t *testing.T) {
	gate := NewGate(&stubOracle{}, zap.NewNop())

	assert.True(t, gate.CanDeleteComment(5, 9, 5), "comment owner")
	assert.True(t, gate.CanDeleteComment(5, 9, 9), "post owner moderating")
	assert.False(t, gate.CanDeleteComment(5, 9, 7), "third party")
}
