package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"picstream-api/auth"
	"picstream-api/middleware"
	"picstream-api/models"
	"picstream-api/services"
)

type FriendshipController struct {
	db         *gorm.DB
	authClient *services.AuthClient
	events     *services.EventsClient
	logger     *zap.Logger
}

func NewFriendshipController(db *gorm.DB, authClient *services.AuthClient, events *services.EventsClient, logger *zap.Logger) *FriendshipController {
	return &FriendshipController{
		db:         db,
		authClient: authClient,
		events:     events,
		logger:     logger,
	}
}

type CreateFriendshipRequest struct {
	AddresseeID uint `json:"addressee_id" binding:"required"`
}

type StatusUpdateRequest struct {
	Status models.FriendshipStatus `json:"status" binding:"required,oneof=accepted rejected"`
}

// CreateFriendRequest creates a pending relationship. At most one row may
// exist per unordered pair; the normalized-pair unique index settles
// concurrent creates, so two simultaneous requests yield one row and one
// conflict.
func (fc *FriendshipController) CreateFriendRequest(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)

	var req CreateFriendshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.AddresseeID == identity.UserID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot send a friend request to yourself"})
		return
	}

	friendship := models.Friendship{
		RequesterID: identity.UserID,
		AddresseeID: req.AddresseeID,
		Status:      models.FriendshipStatusPending,
	}

	if err := fc.db.Create(&friendship).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "Friendship already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create friend request"})
		return
	}

	fc.events.NotifyFriendshipEvent(services.EventNewFriendRequest, req.AddresseeID, gin.H{
		"requesterId": identity.UserID,
	})

	c.JSON(http.StatusCreated, friendship)
}

// GetFriendships lists every relationship involving the caller, enriched
// with the other party's username.
func (fc *FriendshipController) GetFriendships(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)

	var friendships []models.Friendship
	if err := fc.db.Where("requester_id = ? OR addressee_id = ?", identity.UserID, identity.UserID).
		Order("created_at DESC").Find(&friendships).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch friendships"})
		return
	}

	c.JSON(http.StatusOK, fc.enrich(c.Request.Context(), friendships, identity))
}

// GetPendingRequests lists incoming pending requests.
func (fc *FriendshipController) GetPendingRequests(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)

	var pending []models.Friendship
	if err := fc.db.Where("addressee_id = ? AND status = ?", identity.UserID, models.FriendshipStatusPending).
		Order("created_at DESC").Find(&pending).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch pending requests"})
		return
	}

	c.JSON(http.StatusOK, fc.enrich(c.Request.Context(), pending, identity))
}

// GetRequests returns the caller's open requests grouped by direction.
func (fc *FriendshipController) GetRequests(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)

	var open []models.Friendship
	if err := fc.db.Where("(requester_id = ? OR addressee_id = ?) AND status = ?",
		identity.UserID, identity.UserID, models.FriendshipStatusPending).
		Order("created_at DESC").Find(&open).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch friend requests"})
		return
	}

	enriched := fc.enrich(c.Request.Context(), open, identity)
	sent := make([]models.FriendshipWithUserDetails, 0)
	received := make([]models.FriendshipWithUserDetails, 0)
	for _, f := range enriched {
		if f.RequesterID == identity.UserID {
			sent = append(sent, f)
		} else {
			received = append(received, f)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"sentRequests":     sent,
		"receivedRequests": received,
	})
}

// UpdateStatus accepts or rejects a request. Only the addressee may decide.
func (fc *FriendshipController) UpdateStatus(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)

	friendshipID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid friendship ID"})
		return
	}

	var req StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var friendship models.Friendship
	if err := fc.db.First(&friendship, "id = ?", uint(friendshipID)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Friendship not found"})
		return
	}

	if friendship.AddresseeID != identity.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to update this friendship"})
		return
	}

	friendship.Status = req.Status
	if err := fc.db.Save(&friendship).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update friendship"})
		return
	}

	if req.Status == models.FriendshipStatusAccepted {
		fc.events.NotifyFriendshipEvent(services.EventFriendRequestAccepted, friendship.RequesterID, gin.H{
			"addresseeId": friendship.AddresseeID,
		})
	}

	c.JSON(http.StatusOK, friendship)
}

// DeleteFriendship removes a relationship (unfriend or cancel a request).
// Either participant may delete.
func (fc *FriendshipController) DeleteFriendship(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)

	friendshipID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid friendship ID"})
		return
	}

	var friendship models.Friendship
	if err := fc.db.First(&friendship, "id = ?", uint(friendshipID)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Friendship not found"})
		return
	}

	if friendship.RequesterID != identity.UserID && friendship.AddresseeID != identity.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to delete this friendship"})
		return
	}

	if err := fc.db.Delete(&friendship).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete friendship"})
		return
	}

	c.Status(http.StatusNoContent)
}

// CheckFriendship is the oracle endpoint peer services call to gate private
// resources: are these two users connected by an accepted relationship.
func (fc *FriendshipController) CheckFriendship(c *gin.Context) {
	userID, err1 := strconv.ParseUint(c.Query("user_id"), 10, 64)
	friendID, err2 := strconv.ParseUint(c.Query("friend_id"), 10, 64)
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and friend_id are required"})
		return
	}

	lo, hi := uint(userID), uint(friendID)
	if lo > hi {
		lo, hi = hi, lo
	}

	var count int64
	if err := fc.db.Model(&models.Friendship{}).
		Where("user_lo = ? AND user_hi = ? AND status = ?", lo, hi, models.FriendshipStatusAccepted).
		Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check friendship"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"are_friends": count > 0})
}

// enrich attaches usernames of the other parties via the auth service. A
// failed lookup omits the username; the rows themselves always come back.
func (fc *FriendshipController) enrich(ctx context.Context, friendships []models.Friendship, identity *auth.Identity) []models.FriendshipWithUserDetails {
	result := make([]models.FriendshipWithUserDetails, 0, len(friendships))
	for _, f := range friendships {
		detail := models.FriendshipWithUserDetails{Friendship: f}

		if f.RequesterID == identity.UserID {
			detail.RequesterUsername = &identity.Username
		} else {
			detail.RequesterUsername = fc.lookupUsername(ctx, f.RequesterID, identity.Token)
		}
		if f.AddresseeID == identity.UserID {
			detail.AddresseeUsername = &identity.Username
		} else {
			detail.AddresseeUsername = fc.lookupUsername(ctx, f.AddresseeID, identity.Token)
		}

		result = append(result, detail)
	}
	return result
}

func (fc *FriendshipController) lookupUsername(ctx context.Context, userID uint, token string) *string {
	user, err := fc.authClient.GetUser(ctx, userID, token)
	if err != nil {
		fc.logger.Debug("username enrichment failed", zap.Uint("user_id", userID), zap.Error(err))
		return nil
	}
	return &user.Username
}
