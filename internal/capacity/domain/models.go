// Package domain contains the persistence model and pure evaluation rules
// for per-session seat accounting.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prelimth/examgate/internal/exam"
)

// CapacityRecord is the authoritative seat counter for one
// (session_time, exam_date) pair. Counts are mutated only through
// Repository.Reserve; availability is always recomputed from counts.
type CapacityRecord struct {
	ID            snowflake.ID     `gorm:"primaryKey"`
	SessionTime   exam.SessionTime `gorm:"type:text;not null;uniqueIndex:idx_capacity_session_date"`
	ExamDate      time.Time        `gorm:"type:date;not null;uniqueIndex:idx_capacity_session_date"`
	TotalCount    int              `gorm:"not null;default:0"`
	FreeCount     int              `gorm:"not null;default:0"`
	AdvancedCount int              `gorm:"not null;default:0"`
	MaxCapacity   int              `gorm:"not null"`
	FreeLimit     int              `gorm:"not null"`
	Closed        bool             `gorm:"not null;default:false"`
	CreatedAt     time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CapacityRecord) TableName() string { return "capacity_records" }

var (
	ErrCapacityExceeded = errors.New("capacity_exceeded")
	ErrSessionClosed    = errors.New("session_closed")
)
