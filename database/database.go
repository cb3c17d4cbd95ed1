package database

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"picstream-api/config"
	"picstream-api/models"
)

func Initialize(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// MigrateAuth sets up the auth service schema.
func MigrateAuth(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}); err != nil {
		return fmt.Errorf("failed to migrate auth schema: %w", err)
	}
	return nil
}

// MigrateFriendship sets up the friendship service schema.
func MigrateFriendship(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Friendship{}); err != nil {
		return fmt.Errorf("failed to migrate friendship schema: %w", err)
	}
	return nil
}

// MigrateImage sets up the image service schema.
func MigrateImage(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Post{}, &models.Comment{}, &models.Like{}); err != nil {
		return fmt.Errorf("failed to migrate image schema: %w", err)
	}
	return nil
}

// SeedFirstSuperuser creates the bootstrap admin account on an empty users
// table. Safe to run on every boot.
func SeedFirstSuperuser(db *gorm.DB, cfg *config.Config) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.FirstSuperuserPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash superuser password: %w", err)
	}

	admin := models.User{
		Email:          cfg.FirstSuperuserEmail,
		Username:       cfg.FirstSuperuserUsername,
		HashedPassword: string(hashed),
		IsActive:       true,
		IsSuperuser:    true,
	}

	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create first superuser: %w", err)
	}
	return nil
}
