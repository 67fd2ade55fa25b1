package domain

import (
	"context"
	"time"

	"github.com/prelimth/examgate/internal/exam"
	"gorm.io/gorm"
)

// RecordDefaults seeds the ceilings of a lazily created capacity row.
type RecordDefaults struct {
	MaxCapacity int
	FreeLimit   int
}

// Repository is the capacity ledger. Reserve must run inside the caller's
// transaction: it locks the row, creates it on first use, and applies the
// guarded increment, failing with ErrCapacityExceeded (or
// ErrSessionClosed) without mutation.
type Repository interface {
	Reserve(ctx context.Context, tx *gorm.DB, sessionTime exam.SessionTime, examDate time.Time, packageType exam.PackageType, defaults RecordDefaults) (*CapacityRecord, error)
	Find(ctx context.Context, db *gorm.DB, sessionTime exam.SessionTime, examDate time.Time) (*CapacityRecord, error)
	SetClosed(ctx context.Context, db *gorm.DB, sessionTime exam.SessionTime, examDate time.Time, closed bool, defaults RecordDefaults) (*CapacityRecord, error)
}
