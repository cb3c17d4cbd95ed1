package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"picstream-api/middleware"
	"picstream-api/models"
	"picstream-api/services"
	"picstream-api/visibility"
)

type LikeController struct {
	db     *gorm.DB
	gate   *visibility.Gate
	events *services.EventsClient
}

func NewLikeController(db *gorm.DB, gate *visibility.Gate, events *services.EventsClient) *LikeController {
	return &LikeController{db: db, gate: gate, events: events}
}

type LikeResponse struct {
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likes_count"`
}

// ToggleLike likes the post if the caller has no like on it yet and unlikes
// it otherwise. The unique (post_id, user_id) index makes concurrent toggles
// land on exactly one row, and the counter is adjusted in the same
// transaction so likes_count stays consistent with the like rows.
func (lc *LikeController) ToggleLike(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)

	postID, err := strconv.ParseUint(c.Param("post_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}

	var post models.Post
	if err := lc.db.First(&post, "id = ?", uint(postID)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	if !lc.gate.CanView(c.Request.Context(), post.UserID, post.IsPrivate, identity) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have access to this post"})
		return
	}

	var liked bool
	txErr := lc.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Like
		err := tx.Where("post_id = ? AND user_id = ?", post.ID, identity.UserID).
			First(&existing).Error
		switch {
		case err == nil:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			liked = false
			return tx.Model(&models.Post{}).Where("id = ?", post.ID).
				UpdateColumn("likes_count", gorm.Expr("likes_count - 1")).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			like := models.Like{PostID: post.ID, UserID: identity.UserID}
			if err := tx.Create(&like).Error; err != nil {
				return err
			}
			liked = true
			return tx.Model(&models.Post{}).Where("id = ?", post.ID).
				UpdateColumn("likes_count", gorm.Expr("likes_count + 1")).Error
		default:
			return err
		}
	})
	if txErr != nil {
		if errors.Is(txErr, gorm.ErrDuplicatedKey) {
			// A concurrent request inserted the like first. Treat this toggle
			// as a no-op like rather than failing the caller.
			liked = true
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to toggle like"})
			return
		}
	}

	var count int64
	lc.db.Model(&models.Like{}).Where("post_id = ?", post.ID).Count(&count)

	if liked && post.UserID != identity.UserID {
		lc.events.NotifyPostEvent(services.EventPostLiked, gin.H{
			"postId":     post.ID,
			"userId":     identity.UserID,
			"username":   identity.Username,
			"likesCount": count,
		})
	}

	c.JSON(http.StatusOK, LikeResponse{Liked: liked, LikesCount: count})
}
