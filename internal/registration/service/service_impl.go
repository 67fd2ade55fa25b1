// Package service implements the admission coordinator: capacity
// reservation and code issuance committed as one transaction.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prelimth/examgate/internal/cache"
	capacitydomain "github.com/prelimth/examgate/internal/capacity/domain"
	"github.com/prelimth/examgate/internal/clock"
	"github.com/prelimth/examgate/internal/config"
	"github.com/prelimth/examgate/internal/exam"
	examcodedomain "github.com/prelimth/examgate/internal/examcode/domain"
	examcodeservice "github.com/prelimth/examgate/internal/examcode/service"
	obsmetrics "github.com/prelimth/examgate/internal/observability/metrics"
	registrationdomain "github.com/prelimth/examgate/internal/registration/domain"
	pkgrepository "github.com/prelimth/examgate/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type registrationService struct {
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	policy       *config.ExamPolicyHolder
	capacityRepo capacitydomain.Repository
	codeRepo     examcodedomain.Repository
	codes        pkgrepository.Repository[examcodedomain.ExamCode]
	issuer       *examcodeservice.Issuer
	statusCache  cache.StatusCache
	metrics      *obsmetrics.Metrics
}

type ServiceParam struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	Policy       *config.ExamPolicyHolder
	CapacityRepo capacitydomain.Repository
	CodeRepo     examcodedomain.Repository
	Codes        pkgrepository.Repository[examcodedomain.ExamCode]
	Issuer       *examcodeservice.Issuer
	StatusCache  cache.StatusCache
	Metrics      *obsmetrics.Metrics `optional:"true"`
}

func New(p ServiceParam) registrationdomain.Service {
	return &registrationService{
		db:           p.DB,
		log:          p.Log.Named("registration.service"),
		clock:        p.Clock,
		policy:       p.Policy,
		capacityRepo: p.CapacityRepo,
		codeRepo:     p.CodeRepo,
		codes:        p.Codes,
		issuer:       p.Issuer,
		statusCache:  p.StatusCache,
		metrics:      p.Metrics,
	}
}

// Admit validates the request, then reserves a seat and mints a code inside
// a single transaction. Either both effects commit or neither does; a full
// session, a closed session, or an exhausted generator all roll the seat
// back.
func (s *registrationService) Admit(ctx context.Context, req registrationdomain.AdmitRequest) (registrationdomain.AdmitResponse, error) {
	if err := s.validateAdmit(req); err != nil {
		return registrationdomain.AdmitResponse{}, err
	}

	policy := s.policy.Current()
	defaults := capacitydomain.RecordDefaults{
		MaxCapacity: policy.MaxCapacity,
		FreeLimit:   policy.FreeLimit,
	}

	var issued *examcodedomain.ExamCode
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.capacityRepo.Reserve(ctx, tx, req.SessionTime, req.ExamDate, req.Package.Type(), defaults); err != nil {
			return err
		}

		record, err := s.issuer.Issue(ctx, tx, examcodeservice.IssueRequest{
			UserID:      req.UserID,
			SessionTime: req.SessionTime,
			ExamDate:    req.ExamDate,
			Package:     req.Package,
			Metadata:    req.Metadata,
			MaxAttempts: policy.CodeMaxAttempts,
		})
		if err != nil {
			return err
		}
		issued = record
		return nil
	})
	if err != nil {
		return registrationdomain.AdmitResponse{}, s.admitFailure(ctx, req, err)
	}

	s.statusCache.Invalidate(req.SessionTime, req.ExamDate)
	s.metrics.RecordAdmission(ctx, string(req.Package.Type()), string(req.SessionTime))
	s.log.Info("registration admitted",
		zap.String("package_type", string(req.Package.Type())),
		zap.String("session_time", string(req.SessionTime)),
		zap.String("exam_date", issued.ExamDate.Format("2006-01-02")),
	)

	return registrationdomain.AdmitResponse{
		Code:        issued.Code,
		PackageType: issued.PackageType,
		Subject:     issued.Subject,
		SessionTime: issued.SessionTime,
		ExamDate:    issued.ExamDate,
		CreatedAt:   issued.CreatedAt,
	}, nil
}

func (s *registrationService) validateAdmit(req registrationdomain.AdmitRequest) error {
	if _, err := exam.ParseSessionTime(string(req.SessionTime)); err != nil {
		return err
	}
	if req.ExamDate.IsZero() {
		return exam.ErrInvalidExamDate
	}
	if req.Package == nil {
		return exam.ErrInvalidPackageType
	}
	return req.Package.Validate()
}

// admitFailure classifies a rolled-back admission: business rejections pass
// through untouched, anything else is surfaced as transient storage.
func (s *registrationService) admitFailure(ctx context.Context, req registrationdomain.AdmitRequest, err error) error {
	switch {
	case errors.Is(err, capacitydomain.ErrCapacityExceeded),
		errors.Is(err, capacitydomain.ErrSessionClosed):
		s.metrics.RecordCapacityRejection(ctx, string(req.Package.Type()), string(req.SessionTime))
		s.log.Info("registration rejected",
			zap.String("package_type", string(req.Package.Type())),
			zap.String("session_time", string(req.SessionTime)),
			zap.Error(err),
		)
		return err
	case errors.Is(err, examcodedomain.ErrGenerationExhausted),
		errors.Is(err, exam.ErrInvalidSubject),
		errors.Is(err, exam.ErrInvalidPackageType):
		return err
	default:
		s.log.Error("registration transaction failed", zap.Error(err))
		return fmt.Errorf("%w: %v", registrationdomain.ErrTransientStorage, err)
	}
}

// GetStatus projects a session's availability for display. Sessions that
// have no row yet report the policy ceilings with zero counts. The result
// is cached briefly; admissions invalidate it on commit.
func (s *registrationService) GetStatus(ctx context.Context, sessionTime exam.SessionTime, examDate time.Time) (registrationdomain.SessionStatus, error) {
	if _, err := exam.ParseSessionTime(string(sessionTime)); err != nil {
		return registrationdomain.SessionStatus{}, err
	}
	if examDate.IsZero() {
		return registrationdomain.SessionStatus{}, exam.ErrInvalidExamDate
	}

	if status, ok := s.statusCache.Get(sessionTime, examDate); ok {
		return status, nil
	}

	record, err := s.capacityRepo.Find(ctx, s.db, sessionTime, examDate)
	if err != nil {
		return registrationdomain.SessionStatus{}, fmt.Errorf("%w: %v", registrationdomain.ErrTransientStorage, err)
	}

	policy := s.policy.Current()
	if record == nil {
		record = &capacitydomain.CapacityRecord{
			SessionTime: sessionTime,
			ExamDate:    exam.NormalizeDate(examDate),
			MaxCapacity: policy.MaxCapacity,
			FreeLimit:   policy.FreeLimit,
		}
	}

	status := projectStatus(*record, policy.WarningRatio)
	s.statusCache.Set(sessionTime, examDate, status)
	return status, nil
}

func projectStatus(record capacitydomain.CapacityRecord, warningRatio float64) registrationdomain.SessionStatus {
	availability := capacitydomain.Evaluate(record, warningRatio)

	status := registrationdomain.SessionStatus{
		SessionTime:         record.SessionTime,
		ExamDate:            record.ExamDate,
		Status:              availability.Status,
		CanRegisterFree:     availability.FreeSlotsAvailable,
		CanRegisterAdvanced: availability.AdvancedSlotsAvailable,
	}
	if record.Closed {
		status.Status = capacitydomain.StatusClosed
		status.CanRegisterFree = false
		status.CanRegisterAdvanced = false
	}
	return status
}

// CheckIn redeems a code at the venue. Format rejects are answered without
// touching storage; redemption is single-use, enforced by a guarded update.
func (s *registrationService) CheckIn(ctx context.Context, code string) (registrationdomain.CheckinResult, error) {
	if !examcodedomain.IsValidCode(code) {
		return registrationdomain.CheckinResult{}, examcodedomain.ErrMalformedCode
	}

	record, err := s.codeRepo.FindByCode(ctx, s.db, code)
	if err != nil {
		return registrationdomain.CheckinResult{}, fmt.Errorf("%w: %v", registrationdomain.ErrTransientStorage, err)
	}
	if record == nil {
		return registrationdomain.CheckinResult{}, examcodedomain.ErrCodeNotFound
	}

	usedAt := s.clock.Now()
	ok, err := s.codeRepo.MarkUsed(ctx, s.db, record.ID, usedAt)
	if err != nil {
		return registrationdomain.CheckinResult{}, fmt.Errorf("%w: %v", registrationdomain.ErrTransientStorage, err)
	}
	if !ok {
		return registrationdomain.CheckinResult{}, examcodedomain.ErrCodeAlreadyUsed
	}

	s.metrics.RecordCheckin(ctx, string(record.PackageType))
	s.log.Info("exam code checked in",
		zap.String("package_type", string(record.PackageType)),
		zap.String("session_time", string(record.SessionTime)),
	)

	return registrationdomain.CheckinResult{
		Code:        record.Code,
		PackageType: record.PackageType,
		Subject:     record.Subject,
		SessionTime: record.SessionTime,
		UsedAt:      usedAt,
	}, nil
}

// SetSessionClosed flips the administrative override for a session and
// returns the resulting projection.
func (s *registrationService) SetSessionClosed(ctx context.Context, sessionTime exam.SessionTime, examDate time.Time, closed bool) (registrationdomain.SessionStatus, error) {
	if _, err := exam.ParseSessionTime(string(sessionTime)); err != nil {
		return registrationdomain.SessionStatus{}, err
	}
	if examDate.IsZero() {
		return registrationdomain.SessionStatus{}, exam.ErrInvalidExamDate
	}

	policy := s.policy.Current()
	record, err := s.capacityRepo.SetClosed(ctx, s.db, sessionTime, examDate, closed, capacitydomain.RecordDefaults{
		MaxCapacity: policy.MaxCapacity,
		FreeLimit:   policy.FreeLimit,
	})
	if err != nil {
		return registrationdomain.SessionStatus{}, fmt.Errorf("%w: %v", registrationdomain.ErrTransientStorage, err)
	}

	s.statusCache.Invalidate(sessionTime, examDate)
	s.log.Info("session closed flag updated",
		zap.String("session_time", string(sessionTime)),
		zap.String("exam_date", record.ExamDate.Format("2006-01-02")),
		zap.Bool("closed", closed),
	)

	return projectStatus(*record, policy.WarningRatio), nil
}

func (s *registrationService) ListUserCodes(ctx context.Context, userID snowflake.ID) ([]*examcodedomain.ExamCode, error) {
	records, err := s.codes.Find(ctx, &examcodedomain.ExamCode{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", registrationdomain.ErrTransientStorage, err)
	}
	return records, nil
}
