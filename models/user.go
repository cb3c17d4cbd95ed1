package models

import "time"

// User is the credential record owned by the auth service. Other services
// never touch this table; they learn about users through verified tokens or
// the /api/users/:user_id lookup.
type User struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Email          string    `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Username       string    `json:"username" gorm:"uniqueIndex;not null;size:50"`
	HashedPassword string    `json:"-" gorm:"not null;size:255"`
	FullName       string    `json:"full_name" gorm:"size:255"`
	Bio            string    `json:"bio" gorm:"size:500"`
	ProfileImage   *string   `json:"profile_image" gorm:"size:500"`
	IsActive       bool      `json:"is_active" gorm:"default:true"`
	IsSuperuser    bool      `json:"is_superuser" gorm:"default:false"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
