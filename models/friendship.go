package models

import (
	"time"

	"gorm.io/gorm"
)

type FriendshipStatus string

const (
	FriendshipStatusPending  FriendshipStatus = "pending"
	FriendshipStatusAccepted FriendshipStatus = "accepted"
	FriendshipStatusRejected FriendshipStatus = "rejected"
)

// Friendship is a directed request (requester -> addressee) that becomes an
// undirected relationship once accepted. UserLo/UserHi hold the pair in
// sorted order; the composite unique index guarantees at most one row per
// unordered pair even under concurrent create requests.
type Friendship struct {
	ID          uint             `json:"id" gorm:"primaryKey"`
	RequesterID uint             `json:"requester_id" gorm:"not null;index"`
	AddresseeID uint             `json:"addressee_id" gorm:"not null;index"`
	UserLo      uint             `json:"-" gorm:"not null;uniqueIndex:idx_friendship_pair"`
	UserHi      uint             `json:"-" gorm:"not null;uniqueIndex:idx_friendship_pair"`
	Status      FriendshipStatus `json:"status" gorm:"not null;default:'pending';size:20"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// BeforeCreate derives the normalized pair columns from the directed fields.
func (f *Friendship) BeforeCreate(_ *gorm.DB) error {
	f.UserLo, f.UserHi = f.RequesterID, f.AddresseeID
	if f.UserLo > f.UserHi {
		f.UserLo, f.UserHi = f.UserHi, f.UserLo
	}
	return nil
}

// FriendshipWithUserDetails is the list representation enriched with
// usernames fetched from the auth service. The usernames are optional;
// enrichment failures leave them nil rather than failing the request.
type FriendshipWithUserDetails struct {
	Friendship
	RequesterUsername *string `json:"requester_username,omitempty"`
	AddresseeUsername *string `json:"addressee_username,omitempty"`
}
