// Package domain contains the persistence model for issued exam codes.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prelimth/examgate/internal/exam"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ExamCode is one issued admission credential. The code string is globally
// unique across the full history of the table and immutable once created.
type ExamCode struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	Code        string            `gorm:"type:text;not null;uniqueIndex"`
	PackageType exam.PackageType  `gorm:"type:text;not null"`
	Subject     *exam.Subject     `gorm:"type:text"`
	UserID      snowflake.ID      `gorm:"not null;index"`
	SessionTime exam.SessionTime  `gorm:"type:text;not null"`
	ExamDate    time.Time         `gorm:"type:date;not null"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UsedAt      *time.Time        `gorm:""`
}

// TableName sets the database table name.
func (ExamCode) TableName() string { return "exam_codes" }

var (
	ErrGenerationExhausted = errors.New("code_generation_exhausted")
	ErrCodeNotFound        = errors.New("code_not_found")
	ErrCodeAlreadyUsed     = errors.New("code_already_used")
	ErrMalformedCode       = errors.New("malformed_code")
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, code *ExamCode) error
	Exists(ctx context.Context, db *gorm.DB, code string) (bool, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*ExamCode, error)
	MarkUsed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error)
}
