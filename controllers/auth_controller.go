package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"picstream-api/auth"
	"picstream-api/middleware"
	"picstream-api/models"
)

type AuthController struct {
	db     *gorm.DB
	issuer *auth.Issuer
}

func NewAuthController(db *gorm.DB, issuer *auth.Issuer) *AuthController {
	return &AuthController{db: db, issuer: issuer}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

type JSONLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (ac *AuthController) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var existing models.User
	if err := ac.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A user with this email already exists"})
		return
	}
	if err := ac.db.Where("username = ?", req.Username).First(&existing).Error; err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A user with this username already exists"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	user := models.User{
		Email:          req.Email,
		Username:       req.Username,
		HashedPassword: string(hashed),
		IsActive:       true,
	}

	if err := ac.db.Create(&user).Error; err != nil {
		// The unique indexes back up the lookups above under concurrency.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "A user with this email or username already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Login handles the form-encoded login used by browsers. The username field
// may hold either an email address or a username. On success the token is
// returned in the body and also set as an HttpOnly cookie whose lifetime
// matches the token expiry.
func (ac *AuthController) Login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	if username == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	user, ok := ac.authenticate(c, username, password)
	if !ok {
		return
	}

	token, err := ac.issuer.Issue(user.ID, user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie("access_token", token, int(ac.issuer.TTL().Seconds()), "/", "", false, true)

	c.JSON(http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// JSONLogin is the API variant: JSON credentials, email only, no cookie
// side effect.
func (ac *AuthController) JSONLogin(c *gin.Context) {
	var req JSONLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, ok := ac.authenticate(c, req.Email, req.Password)
	if !ok {
		return
	}

	token, err := ac.issuer.Issue(user.ID, user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Logout clears the cookie. The token itself stays valid until its natural
// expiry; there is no server-side revocation in the stateless design.
func (ac *AuthController) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie("access_token", "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"detail": "Successfully logged out"})
}

// VerifyToken returns the authenticated user's profile. Peer services call
// this endpoint to delegate token verification.
func (ac *AuthController) VerifyToken(c *gin.Context) {
	user, ok := ac.currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user)
}

func (ac *AuthController) authenticate(c *gin.Context, login, password string) (*models.User, bool) {
	var user models.User
	err := ac.db.Where("email = ?", login).First(&user).Error
	if err != nil {
		err = ac.db.Where("username = ?", login).First(&user).Error
	}
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)) != nil {
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Incorrect email/username or password"})
		return nil, false
	}
	return &user, true
}

// currentUser resolves the verified identity to a live user row and applies
// the is_active check.
func (ac *AuthController) currentUser(c *gin.Context) (*models.User, bool) {
	return currentActiveUser(c, ac.db)
}

func currentActiveUser(c *gin.Context, db *gorm.DB) (*models.User, bool) {
	identity := middleware.CurrentIdentity(c)

	var user models.User
	if err := db.First(&user, "id = ?", identity.UserID).Error; err != nil {
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Could not validate credentials"})
		return nil, false
	}
	if !user.IsActive {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Inactive user"})
		return nil, false
	}
	return &user, true
}
