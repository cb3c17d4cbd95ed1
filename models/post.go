package models

import "time"

// Post is the content resource owned by the image service. Username is
// denormalized from the identity claim at creation time so listings never
// need a cross-service lookup. LikesCount mirrors the number of Like rows
// and is only adjusted inside the like-toggle transaction.
type Post struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserID     uint      `json:"user_id" gorm:"not null;index"`
	Username   string    `json:"username" gorm:"not null;size:50"`
	ImageURL   string    `json:"image_url" gorm:"not null;size:500"`
	StorageKey string    `json:"-" gorm:"size:255"`
	Caption    string    `json:"caption" gorm:"type:text"`
	LikesCount int       `json:"likes_count" gorm:"default:0"`
	IsPrivate  bool      `json:"is_private" gorm:"default:false"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Comments []Comment `json:"-" gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
	Likes    []Like    `json:"-" gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
}

type Comment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PostID    uint      `json:"post_id" gorm:"not null;index"`
	UserID    uint      `json:"user_id" gorm:"not null"`
	Username  string    `json:"username" gorm:"not null;size:50"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`
}

// Like rows are unique per (post, user); the index makes a double-like race
// lose at insert time instead of corrupting the counter.
type Like struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PostID    uint      `json:"post_id" gorm:"not null;uniqueIndex:idx_like_post_user"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_like_post_user"`
	CreatedAt time.Time `json:"created_at"`
}

// PostWithDetails is a post plus the caller-specific liked flag.
type PostWithDetails struct {
	Post
	UserHasLiked bool `json:"user_has_liked"`
}

// PostPage is the paginated envelope the listing endpoint returns.
type PostPage struct {
	Items []PostWithDetails `json:"items"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Size  int               `json:"size"`
	Pages int               `json:"pages"`
}
