package controllers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"picstream-api/models"
)

type UserController struct {
	db        *gorm.DB
	uploadDir string
}

func NewUserController(db *gorm.DB, uploadDir string) *UserController {
	return &UserController{db: db, uploadDir: uploadDir}
}

func (uc *UserController) GetMe(c *gin.Context) {
	user, ok := currentActiveUser(c, uc.db)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateMe accepts a multipart form so the profile image can ride along
// with the text fields. Only provided fields change.
func (uc *UserController) UpdateMe(c *gin.Context) {
	user, ok := currentActiveUser(c, uc.db)
	if !ok {
		return
	}

	username := c.PostForm("username")
	email := c.PostForm("email")
	bio := c.PostForm("bio")

	if username != "" && username != user.Username {
		var existing models.User
		if err := uc.db.Where("username = ?", username).First(&existing).Error; err == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username already registered"})
			return
		}
		user.Username = username
	}

	if email != "" && email != user.Email {
		var existing models.User
		if err := uc.db.Where("email = ?", email).First(&existing).Error; err == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email already registered"})
			return
		}
		user.Email = email
	}

	if bio != "" {
		user.Bio = bio
	}

	if file, err := c.FormFile("profile_image"); err == nil {
		ext := strings.ToLower(filepath.Ext(file.Filename))
		dest := filepath.Join(uc.uploadDir, fmt.Sprintf("profile_%d%s", user.ID, ext))
		if err := c.SaveUploadedFile(file, dest); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save profile image"})
			return
		}
		user.ProfileImage = &dest
	}

	if err := uc.db.Save(user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// GetUserByID serves the profile lookups peer services use to enrich their
// own rows with usernames.
func (uc *UserController) GetUserByID(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var user models.User
	if err := uc.db.First(&user, "id = ?", uint(userID)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}
