package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	capacitydomain "github.com/prelimth/examgate/internal/capacity/domain"
	"github.com/prelimth/examgate/internal/clock"
	"github.com/prelimth/examgate/internal/exam"
	"github.com/prelimth/examgate/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	genID *snowflake.Node
	clock clock.Clock
}

func Provide(genID *snowflake.Node, clk clock.Clock) capacitydomain.Repository {
	return &repo{genID: genID, clock: clk}
}

func (r *repo) Reserve(ctx context.Context, tx *gorm.DB, sessionTime exam.SessionTime, examDate time.Time, packageType exam.PackageType, defaults capacitydomain.RecordDefaults) (*capacitydomain.CapacityRecord, error) {
	record, err := r.lockOrCreate(ctx, tx, sessionTime, examDate, defaults)
	if err != nil {
		return nil, err
	}
	if record.Closed {
		return nil, capacitydomain.ErrSessionClosed
	}

	// The WHERE clause re-checks the ceilings at write time, so the
	// increment stays safe even where FOR UPDATE is unavailable.
	stmt := tx.WithContext(ctx).
		Model(&capacitydomain.CapacityRecord{}).
		Where("id = ? AND total_count < max_capacity", record.ID)

	updates := map[string]any{
		"total_count": gorm.Expr("total_count + 1"),
		"updated_at":  r.clock.Now(),
	}
	switch packageType {
	case exam.PackageFree:
		stmt = stmt.Where("free_count < free_limit")
		updates["free_count"] = gorm.Expr("free_count + 1")
	case exam.PackageAdvanced:
		updates["advanced_count"] = gorm.Expr("advanced_count + 1")
	default:
		return nil, exam.ErrInvalidPackageType
	}

	result := stmt.Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, capacitydomain.ErrCapacityExceeded
	}

	return r.findByID(ctx, tx, record.ID)
}

func (r *repo) Find(ctx context.Context, dbh *gorm.DB, sessionTime exam.SessionTime, examDate time.Time) (*capacitydomain.CapacityRecord, error) {
	var record capacitydomain.CapacityRecord
	err := dbh.WithContext(ctx).
		Where("session_time = ? AND exam_date = ?", sessionTime, exam.NormalizeDate(examDate)).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repo) SetClosed(ctx context.Context, dbh *gorm.DB, sessionTime exam.SessionTime, examDate time.Time, closed bool, defaults capacitydomain.RecordDefaults) (*capacitydomain.CapacityRecord, error) {
	record, err := r.lockOrCreate(ctx, dbh, sessionTime, examDate, defaults)
	if err != nil {
		return nil, err
	}

	err = dbh.WithContext(ctx).
		Model(&capacitydomain.CapacityRecord{}).
		Where("id = ?", record.ID).
		Updates(map[string]any{
			"closed":     closed,
			"updated_at": r.clock.Now(),
		}).Error
	if err != nil {
		return nil, err
	}

	return r.findByID(ctx, dbh, record.ID)
}

// lockOrCreate returns the row under a write lock, creating it with zero
// counts on first use for the (session_time, exam_date) pair. A racing
// creator loses on the unique index and both settle on the same row.
func (r *repo) lockOrCreate(ctx context.Context, tx *gorm.DB, sessionTime exam.SessionTime, examDate time.Time, defaults capacitydomain.RecordDefaults) (*capacitydomain.CapacityRecord, error) {
	record, err := r.findLocked(ctx, tx, sessionTime, examDate)
	if err != nil {
		return nil, err
	}
	if record != nil {
		return record, nil
	}

	now := r.clock.Now()
	fresh := &capacitydomain.CapacityRecord{
		ID:          r.genID.Generate(),
		SessionTime: sessionTime,
		ExamDate:    exam.NormalizeDate(examDate),
		MaxCapacity: defaults.MaxCapacity,
		FreeLimit:   defaults.FreeLimit,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = tx.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(fresh).Error
	if err != nil && !db.IsDuplicateKeyErr(err) {
		return nil, err
	}

	record, err = r.findLocked(ctx, tx, sessionTime, examDate)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return record, nil
}

func (r *repo) findLocked(ctx context.Context, tx *gorm.DB, sessionTime exam.SessionTime, examDate time.Time) (*capacitydomain.CapacityRecord, error) {
	stmt := tx.WithContext(ctx).
		Where("session_time = ? AND exam_date = ?", sessionTime, exam.NormalizeDate(examDate))

	// sqlite has no FOR UPDATE; its single-writer transactions serialize
	// the increment anyway.
	if tx.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var record capacitydomain.CapacityRecord
	if err := stmt.First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repo) findByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*capacitydomain.CapacityRecord, error) {
	var record capacitydomain.CapacityRecord
	if err := tx.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}
