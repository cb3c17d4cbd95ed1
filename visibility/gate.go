// Package visibility centralizes the decision of whether a viewer may see or
// change a resource. Handlers never make this call themselves; scattering
// the fail-open/fail-closed choice across endpoints is how privacy leaks
// happen.
package visibility

import (
	"context"

	"go.uber.org/zap"

	"picstream-api/auth"
)

// Oracle answers connection-status queries between the viewer and another
// user. The lookup is made on the viewer's behalf, so it receives the full
// identity (the HTTP implementation forwards the viewer's token). Tests
// stub this.
type Oracle interface {
	AreFriends(ctx context.Context, viewer *auth.Identity, friendID uint) (bool, error)
}

// Gate evaluates visibility and mutation rights for content resources.
type Gate struct {
	oracle Oracle
	logger *zap.Logger
}

func NewGate(oracle Oracle, logger *zap.Logger) *Gate {
	return &Gate{oracle: oracle, logger: logger}
}

// CanView decides whether the viewer may see a resource owned by ownerID.
// Public resources are visible to everyone; private ones to the owner and to
// accepted friends. An oracle failure denies: the friendship subsystem being
// down must never widen visibility, and the caller sees an ordinary 403
// rather than learning the failure was infrastructural.
func (g *Gate) CanView(ctx context.Context, ownerID uint, isPrivate bool, viewer *auth.Identity) bool {
	if !isPrivate {
		return true
	}
	if ownerID == viewer.UserID {
		return true
	}

	friends, err := g.oracle.AreFriends(ctx, viewer, ownerID)
	if err != nil {
		g.logger.Warn("relationship lookup failed, denying access",
			zap.Uint("viewer_id", viewer.UserID),
			zap.Uint("owner_id", ownerID),
			zap.Error(err))
		return false
	}
	return friends
}

// CanMutate permits updates and deletes only for the resource owner.
func (g *Gate) CanMutate(ownerID, actorID uint) bool {
	return ownerID == actorID
}

// CanDeleteComment permits the comment owner, and additionally the owner of
// the parent post, who may moderate comments on their own content.
func (g *Gate) CanDeleteComment(commentOwnerID, postOwnerID, actorID uint) bool {
	return actorID == commentOwnerID || actorID == postOwnerID
}
