package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	examcodedomain "github.com/prelimth/examgate/internal/examcode/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() examcodedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, code *examcodedomain.ExamCode) error {
	return db.WithContext(ctx).Create(code).Error
}

func (r *repo) Exists(ctx context.Context, db *gorm.DB, code string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&examcodedomain.ExamCode{}).
		Where("code = ?", code).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*examcodedomain.ExamCode, error) {
	var record examcodedomain.ExamCode
	err := db.WithContext(ctx).Where("code = ?", code).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// MarkUsed stamps used_at exactly once; the guard keeps a double check-in
// from overwriting the first stamp.
func (r *repo) MarkUsed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error) {
	result := db.WithContext(ctx).
		Model(&examcodedomain.ExamCode{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
