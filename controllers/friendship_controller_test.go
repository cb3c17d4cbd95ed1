package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"picstream-api/models"
	"picstream-api/services"
)

// friendshipRouter mounts the friendship endpoints with the given caller
// identity injected.
func friendshipRouter(fc *FriendshipController, userID uint, username string) *gin.Engine {
	r := gin.New()
	g := r.Group("/", asUser(userID, username))
	g.POST("/", fc.CreateFriendRequest)
	g.GET("/", fc.GetFriendships)
	g.GET("/pending", fc.GetPendingRequests)
	g.GET("/requests", fc.GetRequests)
	g.GET("/check", fc.CheckFriendship)
	g.PATCH("/:id", fc.UpdateStatus)
	g.DELETE("/:id", fc.DeleteFriendship)
	return r
}

func newFriendshipController(t *testing.T) *FriendshipController {
	db := testDB(t, &models.Friendship{})
	return NewFriendshipController(db, deadAuthClient(), deadEventsClient(), zap.NewNop())
}

func TestCreateFriendRequest(t *testing.T) {
	fc := newFriendshipController(t)
	r := friendshipRouter(fc, 1, "alice")

	w := doJSON(r, http.MethodPost, "/", gin.H{"addressee_id": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created models.Friendship
	decodeBody(t, w, &created)
	assert.Equal(t, uint(1), created.RequesterID)
	assert.Equal(t, uint(2), created.AddresseeID)
	assert.Equal(t, models.FriendshipStatusPending, created.Status)
}

func TestCreateFriendRequestToSelf(t *testing.T) {
	fc := newFriendshipController(t)
	r := friendshipRouter(fc, 1, "alice")

	w := doJSON(r, http.MethodPost, "/", gin.H{"addressee_id": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateFriendRequestDuplicatePair(t *testing.T) {
	fc := newFriendshipController(t)
	alice := friendshipRouter(fc, 1, "alice")
	bob := friendshipRouter(fc, 2, "bob")

	w := doJSON(alice, http.MethodPost, "/", gin.H{"addressee_id": 2})
	require.Equal(t, http.StatusCreated, w.Code)

	// Same direction.
	w = doJSON(alice, http.MethodPost, "/", gin.H{"addressee_id": 2})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Reverse direction hits the same normalized pair.
	w = doJSON(bob, http.MethodPost, "/", gin.H{"addressee_id": 1})
	assert.Equal(t, http.StatusConflict, w.Code)

	var count int64
	fc.db.Model(&models.Friendship{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestUpdateStatusAddresseeOnly(t *testing.T) {
	fc := newFriendshipController(t)
	alice := friendshipRouter(fc, 1, "alice")
	bob := friendshipRouter(fc, 2, "bob")

	w := doJSON(alice, http.MethodPost, "/", gin.H{"addressee_id": 2})
	var created models.Friendship
	decodeBody(t, w, &created)

	path := fmt.Sprintf("/%d", created.ID)

	// The requester cannot decide their own request.
	w = doJSON(alice, http.MethodPatch, path, gin.H{"status": "accepted"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(bob, http.MethodPatch, path, gin.H{"status": "accepted"})
	require.Equal(t, http.StatusOK, w.Code)

	var updated models.Friendship
	decodeBody(t, w, &updated)
	assert.Equal(t, models.FriendshipStatusAccepted, updated.Status)
}

func TestUpdateStatusValidation(t *testing.T) {
	fc := newFriendshipController(t)
	alice := friendshipRouter(fc, 1, "alice")
	bob := friendshipRouter(fc, 2, "bob")

	w := doJSON(alice, http.MethodPost, "/", gin.H{"addressee_id": 2})
	var created models.Friendship
	decodeBody(t, w, &created)

	w = doJSON(bob, http.MethodPatch, fmt.Sprintf("/%d", created.ID), gin.H{"status": "pending"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "cannot move back to pending")

	w = doJSON(bob, http.MethodPatch, "/9999", gin.H{"status": "accepted"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteFriendshipParticipantOnly(t *testing.T) {
	fc := newFriendshipController(t)
	alice := friendshipRouter(fc, 1, "alice")
	carol := friendshipRouter(fc, 3, "carol")

	w := doJSON(alice, http.MethodPost, "/", gin.H{"addressee_id": 2})
	var created models.Friendship
	decodeBody(t, w, &created)
	path := fmt.Sprintf("/%d", created.ID)

	w = doJSON(carol, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(alice, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(alice, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckFriendship(t *testing.T) {
	fc := newFriendshipController(t)
	alice := friendshipRouter(fc, 1, "alice")
	bob := friendshipRouter(fc, 2, "bob")

	w := doJSON(alice, http.MethodPost, "/", gin.H{"addressee_id": 2})
	var created models.Friendship
	decodeBody(t, w, &created)

	check := func(r *gin.Engine, userID, friendID uint) bool {
		w := doJSON(r, http.MethodGet, fmt.Sprintf("/check?user_id=%d&friend_id=%d", userID, friendID), nil)
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			AreFriends bool `json:"are_friends"`
		}
		decodeBody(t, w, &resp)
		return resp.AreFriends
	}

	// Pending is not friends.
	assert.False(t, check(alice, 1, 2))

	w = doJSON(bob, http.MethodPatch, fmt.Sprintf("/%d", created.ID), gin.H{"status": "accepted"})
	require.Equal(t, http.StatusOK, w.Code)

	// Accepted is friends, in both argument orders.
	assert.True(t, check(alice, 1, 2))
	assert.True(t, check(alice, 2, 1))
	assert.False(t, check(alice, 1, 3))
}

func TestCheckFriendshipMissingParams(t *testing.T) {
	fc := newFriendshipController(t)
	r := friendshipRouter(fc, 1, "alice")

	w := doJSON(r, http.MethodGet, "/check?user_id=1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRequestsSplitsByDirection(t *testing.T) {
	fc := newFriendshipController(t)
	alice := friendshipRouter(fc, 1, "alice")
	bob := friendshipRouter(fc, 2, "bob")

	w := doJSON(alice, http.MethodPost, "/", gin.H{"addressee_id": 2})
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(bob, http.MethodPost, "/", gin.H{"addressee_id": 3})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(bob, http.MethodGet, "/requests", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Sent     []models.FriendshipWithUserDetails `json:"sentRequests"`
		Received []models.FriendshipWithUserDetails `json:"receivedRequests"`
	}
	decodeBody(t, w, &resp)
	require.Len(t, resp.Sent, 1)
	require.Len(t, resp.Received, 1)
	assert.Equal(t, uint(3), resp.Sent[0].AddresseeID)
	assert.Equal(t, uint(1), resp.Received[0].RequesterID)
}

// Enrichment must degrade, not fail: when the auth service is unreachable
// the rows still come back, with only the caller's own username filled in.
func TestEnrichmentDegradesWhenAuthServiceDown(t *testing.T) {
	fc := newFriendshipController(t)
	alice := friendshipRouter(fc, 1, "alice")

	w := doJSON(alice, http.MethodPost, "/", gin.H{"addressee_id": 2})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(alice, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list []models.FriendshipWithUserDetails
	decodeBody(t, w, &list)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].RequesterUsername)
	assert.Equal(t, "alice", *list[0].RequesterUsername)
	assert.Nil(t, list[0].AddresseeUsername)
}

// With a live auth service the peer usernames are resolved via the lookup
// endpoint, forwarding the caller's token.
func TestEnrichmentResolvesPeerUsernames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(services.PeerUser{ID: 2, Username: "bob"})
	}))
	defer srv.Close()

	db := testDB(t, &models.Friendship{})
	fc := NewFriendshipController(db,
		services.NewAuthClient(srv.URL, clientTestTimeout), deadEventsClient(), zap.NewNop())
	alice := friendshipRouter(fc, 1, "alice")

	w := doJSON(alice, http.MethodPost, "/", gin.H{"addressee_id": 2})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(alice, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list []models.FriendshipWithUserDetails
	decodeBody(t, w, &list)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].AddresseeUsername)
	assert.Equal(t, "bob", *list[0].AddresseeUsername)
}
