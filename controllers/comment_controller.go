package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"picstream-api/middleware"
	"picstream-api/models"
	"picstream-api/services"
	"picstream-api/visibility"
)

type CommentController struct {
	db     *gorm.DB
	gate   *visibility.Gate
	events *services.EventsClient
}

func NewCommentController(db *gorm.DB, gate *visibility.Gate, events *services.EventsClient) *CommentController {
	return &CommentController{db: db, gate: gate, events: events}
}

type CreateCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

func (cc *CommentController) CreateComment(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)

	post, ok := cc.findPost(c)
	if !ok {
		return
	}

	if !cc.gate.CanView(c.Request.Context(), post.UserID, post.IsPrivate, identity) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have access to this post"})
		return
	}

	var req CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment := models.Comment{
		PostID:   post.ID,
		UserID:   identity.UserID,
		Username: identity.Username,
		Content:  req.Content,
	}

	if err := cc.db.Create(&comment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create comment"})
		return
	}

	cc.events.NotifyPostEvent(services.EventNewComment, gin.H{
		"postId":  post.ID,
		"comment": comment,
	})

	c.JSON(http.StatusCreated, comment)
}

func (cc *CommentController) GetComments(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)

	post, ok := cc.findPost(c)
	if !ok {
		return
	}

	if !cc.gate.CanView(c.Request.Context(), post.UserID, post.IsPrivate, identity) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have access to this post"})
		return
	}

	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if skip < 0 {
		skip = 0
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	var comments []models.Comment
	if err := cc.db.Where("post_id = ?", post.ID).
		Order("created_at DESC").Offset(skip).Limit(limit).Find(&comments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comments"})
		return
	}

	c.JSON(http.StatusOK, comments)
}

// DeleteComment is allowed for the comment owner and for the parent post's
// owner, who may moderate comments on their own content.
func (cc *CommentController) DeleteComment(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)

	post, ok := cc.findPost(c)
	if !ok {
		return
	}

	commentID, err := strconv.ParseUint(c.Param("comment_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid comment ID"})
		return
	}

	var comment models.Comment
	if err := cc.db.First(&comment, "id = ? AND post_id = ?", uint(commentID), post.ID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}

	if !cc.gate.CanDeleteComment(comment.UserID, post.UserID, identity.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have permission to delete this comment"})
		return
	}

	if err := cc.db.Delete(&comment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete comment"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (cc *CommentController) findPost(c *gin.Context) (*models.Post, bool) {
	postID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return nil, false
	}

	var post models.Post
	if err := cc.db.First(&post, "id = ?", uint(postID)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return nil, false
	}
	return &post, true
}
