package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/fynbos-digital/invoiceflow/internal/models"
)

// UserByUsername loads an active user, or (nil, nil) when none matches.
func (s *Store) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ? AND is_active = ?", username, true).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser persists a new user. The password must already be hashed.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

// CountUsers returns the number of users, including inactive ones. The
// startup seed only creates the admin account on a completely empty table.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}

// TouchUserLogin stamps a successful login.
func (s *Store) TouchUserLogin(ctx context.Context, userID string) error {
	now := time.Now()
	return s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_login", &now).Error
}

// CreateExtractionLog records one vision-model call.
func (s *Store) CreateExtractionLog(ctx context.Context, entry *models.ExtractionLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

// PruneExtractionLogs deletes log rows older than the cutoff and returns how
// many were removed. Called by the retention loop.
func (s *Store) PruneExtractionLogs(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.ExtractionLog{})
	return res.RowsAffected, res.Error
}
