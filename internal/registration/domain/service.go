// Package domain defines the admission coordinator contract. Everything
// above it consumes typed outcomes; nothing above it touches the counters
// directly.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	capacitydomain "github.com/prelimth/examgate/internal/capacity/domain"
	"github.com/prelimth/examgate/internal/exam"
	examcodedomain "github.com/prelimth/examgate/internal/examcode/domain"
	"gorm.io/datatypes"
)

// AdmitRequest is one admission attempt. Package is the tagged union; the
// subject-presence rule is carried by the variant, not by optional fields.
type AdmitRequest struct {
	UserID      snowflake.ID
	SessionTime exam.SessionTime
	ExamDate    time.Time
	Package     exam.PackageRequest
	Metadata    datatypes.JSONMap
}

// AdmitResponse is the committed outcome: the issued code plus the session
// it is good for. Counts are deliberately absent.
type AdmitResponse struct {
	Code        string           `json:"code"`
	PackageType exam.PackageType `json:"package_type"`
	Subject     *exam.Subject    `json:"subject,omitempty"`
	SessionTime exam.SessionTime `json:"session_time"`
	ExamDate    time.Time        `json:"exam_date"`
	CreatedAt   time.Time        `json:"created_at"`
}

// SessionStatus is the display projection of a session's availability.
// Only booleans and the status enum cross this boundary, never counts.
type SessionStatus struct {
	SessionTime         exam.SessionTime                  `json:"session_time"`
	ExamDate            time.Time                         `json:"exam_date"`
	Status              capacitydomain.AvailabilityStatus `json:"status"`
	CanRegisterFree     bool                              `json:"can_register_free"`
	CanRegisterAdvanced bool                              `json:"can_register_advanced"`
}

// CheckinResult reports a successful exam-day check-in.
type CheckinResult struct {
	Code        string           `json:"code"`
	PackageType exam.PackageType `json:"package_type"`
	Subject     *exam.Subject    `json:"subject,omitempty"`
	SessionTime exam.SessionTime `json:"session_time"`
	UsedAt      time.Time        `json:"used_at"`
}

// ErrTransientStorage marks data-store failures unrelated to business
// rules; callers may retry, the engine has already rolled back.
var ErrTransientStorage = errors.New("transient_storage")

type Service interface {
	Admit(ctx context.Context, req AdmitRequest) (AdmitResponse, error)
	GetStatus(ctx context.Context, sessionTime exam.SessionTime, examDate time.Time) (SessionStatus, error)
	CheckIn(ctx context.Context, code string) (CheckinResult, error)
	SetSessionClosed(ctx context.Context, sessionTime exam.SessionTime, examDate time.Time, closed bool) (SessionStatus, error)
	ListUserCodes(ctx context.Context, userID snowflake.ID) ([]*examcodedomain.ExamCode, error)
}
