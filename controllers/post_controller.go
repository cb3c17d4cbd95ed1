package controllers

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"picstream-api/auth"
	"picstream-api/middleware"
	"picstream-api/models"
	"picstream-api/services"
	"picstream-api/visibility"
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

type PostController struct {
	db           *gorm.DB
	gate         *visibility.Gate
	storage      services.Storage
	events       *services.EventsClient
	maxImageSize int64
	logger       *zap.Logger
}

func NewPostController(db *gorm.DB, gate *visibility.Gate, storage services.Storage, events *services.EventsClient, maxImageSize int64, logger *zap.Logger) *PostController {
	return &PostController{
		db:           db,
		gate:         gate,
		storage:      storage,
		events:       events,
		maxImageSize: maxImageSize,
		logger:       logger,
	}
}

type UpdatePostRequest struct {
	Caption   *string `json:"caption"`
	IsPrivate *bool   `json:"is_private"`
}

// CreatePost accepts a multipart upload: the image file plus caption and
// privacy flag form fields.
func (pc *PostController) CreatePost(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "An image file is required"})
		return
	}

	contentType := file.Header.Get("Content-Type")
	if !allowedImageTypes[contentType] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image format. Only JPEG, PNG, and GIF are supported."})
		return
	}
	if file.Size > pc.maxImageSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Image file too large. Maximum size is %dMB", pc.maxImageSize/(1024*1024)),
		})
		return
	}

	caption := c.PostForm("caption")
	isPrivate := c.PostForm("is_private") == "true"

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded image"})
		return
	}
	defer src.Close()

	key := uuid.New().String() + strings.ToLower(filepath.Ext(file.Filename))
	imageURL, err := pc.storage.Save(c.Request.Context(), key, src, file.Size, contentType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store image"})
		return
	}

	post := models.Post{
		UserID:     identity.UserID,
		Username:   identity.Username,
		ImageURL:   imageURL,
		StorageKey: key,
		Caption:    caption,
		IsPrivate:  isPrivate,
	}

	if err := pc.db.Create(&post).Error; err != nil {
		if delErr := pc.storage.Delete(c.Request.Context(), key); delErr != nil {
			pc.logger.Warn("failed to clean up image after create failure", zap.String("key", key), zap.Error(delErr))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		return
	}

	pc.events.NotifyPostEvent(services.EventNewPost, post)

	c.JSON(http.StatusCreated, post)
}

// GetPosts returns a page of posts the caller may see, with search over
// caption and author username.
func (pc *PostController) GetPosts(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 50 {
		size = 10
	}
	search := c.Query("search")

	query := pc.baseQuery(search)

	var total int64
	if err := query.Session(&gorm.Session{}).Model(&models.Post{}).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}

	var posts []models.Post
	if err := query.Order("created_at DESC").Offset((page - 1) * size).Limit(size).Find(&posts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}

	items := pc.visibleWithDetails(c.Request.Context(), posts, identity)

	pages := int(math.Ceil(float64(total) / float64(size)))
	if pages < 1 {
		pages = 1
	}

	c.JSON(http.StatusOK, models.PostPage{
		Items: items,
		Total: total,
		Page:  page,
		Size:  size,
		Pages: pages,
	})
}

// GetFeed is the cursor-style variant: skip/limit, bare list.
func (pc *PostController) GetFeed(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)

	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if skip < 0 {
		skip = 0
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}

	var posts []models.Post
	if err := pc.baseQuery(c.Query("search")).
		Order("created_at DESC").Offset(skip).Limit(limit).Find(&posts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}

	c.JSON(http.StatusOK, pc.visibleWithDetails(c.Request.Context(), posts, identity))
}

func (pc *PostController) GetPost(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)

	post, ok := pc.findPost(c)
	if !ok {
		return
	}

	if !pc.gate.CanView(c.Request.Context(), post.UserID, post.IsPrivate, identity) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have access to this post"})
		return
	}

	c.JSON(http.StatusOK, pc.withDetails(*post, identity.UserID))
}

func (pc *PostController) UpdatePost(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)

	post, ok := pc.findPost(c)
	if !ok {
		return
	}

	if !pc.gate.CanMutate(post.UserID, identity.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have permission to update this post"})
		return
	}

	var req UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Caption != nil {
		post.Caption = *req.Caption
	}
	if req.IsPrivate != nil {
		post.IsPrivate = *req.IsPrivate
	}

	if err := pc.db.Save(post).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update post"})
		return
	}

	c.JSON(http.StatusOK, post)
}

// DeletePost removes the post, its comments and likes, and best-effort
// deletes the stored image.
func (pc *PostController) DeletePost(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)

	post, ok := pc.findPost(c)
	if !ok {
		return
	}

	if !pc.gate.CanMutate(post.UserID, identity.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have permission to delete this post"})
		return
	}

	err := pc.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		return tx.Delete(post).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete post"})
		return
	}

	if post.StorageKey != "" {
		if err := pc.storage.Delete(c.Request.Context(), post.StorageKey); err != nil {
			pc.logger.Warn("failed to delete stored image", zap.String("key", post.StorageKey), zap.Error(err))
		}
	}

	c.Status(http.StatusNoContent)
}

// findPost loads the post addressed by the :id route parameter, writing the
// 400/404 response itself when it cannot.
func (pc *PostController) findPost(c *gin.Context) (*models.Post, bool) {
	postID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return nil, false
	}

	var post models.Post
	if err := pc.db.First(&post, "id = ?", uint(postID)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return nil, false
	}
	return &post, true
}

// baseQuery applies the search filter. Visibility is decided per viewer
// afterwards, since friendship is a per-pair lookup.
func (pc *PostController) baseQuery(search string) *gorm.DB {
	query := pc.db.Model(&models.Post{})
	if search != "" {
		term := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(caption) LIKE ? OR LOWER(username) LIKE ?", term, term)
	}
	return query
}

// visibleWithDetails drops posts the viewer may not see and decorates the
// rest with the liked flag.
func (pc *PostController) visibleWithDetails(ctx context.Context, posts []models.Post, identity *auth.Identity) []models.PostWithDetails {
	items := make([]models.PostWithDetails, 0, len(posts))
	for _, post := range posts {
		if !pc.gate.CanView(ctx, post.UserID, post.IsPrivate, identity) {
			continue
		}
		items = append(items, pc.withDetails(post, identity.UserID))
	}
	return items
}

func (pc *PostController) withDetails(post models.Post, viewerID uint) models.PostWithDetails {
	var liked int64
	pc.db.Model(&models.Like{}).Where("post_id = ? AND user_id = ?", post.ID, viewerID).Count(&liked)
	return models.PostWithDetails{Post: post, UserHasLiked: liked > 0}
}
