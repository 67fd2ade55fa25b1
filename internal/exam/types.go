// Package exam defines the shared vocabulary of the registration engine:
// session slots, package types, subjects, and the package request variants.
package exam

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SessionTime is one of the two fixed exam slots on a given date.
type SessionTime string

const (
	SessionMorning   SessionTime = "MORNING"
	SessionAfternoon SessionTime = "AFTERNOON"
)

var ErrInvalidSessionTime = errors.New("invalid_session_time")

func ParseSessionTime(raw string) (SessionTime, error) {
	switch SessionTime(strings.ToUpper(strings.TrimSpace(raw))) {
	case SessionMorning:
		return SessionMorning, nil
	case SessionAfternoon:
		return SessionAfternoon, nil
	default:
		return "", ErrInvalidSessionTime
	}
}

// PackageType discriminates the two admission packages.
type PackageType string

const (
	PackageFree     PackageType = "FREE"
	PackageAdvanced PackageType = "ADVANCED"
)

// Subject is the single subject a FREE registration sits for.
type Subject string

const (
	SubjectMath    Subject = "MATH"
	SubjectScience Subject = "SCIENCE"
	SubjectEnglish Subject = "ENGLISH"
)

var ErrInvalidSubject = errors.New("invalid_subject")

func ParseSubject(raw string) (Subject, error) {
	switch Subject(strings.ToUpper(strings.TrimSpace(raw))) {
	case SubjectMath:
		return SubjectMath, nil
	case SubjectScience:
		return SubjectScience, nil
	case SubjectEnglish:
		return SubjectEnglish, nil
	default:
		return "", ErrInvalidSubject
	}
}

func (s Subject) Valid() bool {
	_, err := ParseSubject(string(s))
	return err == nil
}

// PackageRequest is the tagged union of admissible package variants. The
// subject-presence rule (FREE carries exactly one subject, ADVANCED none)
// is enforced by the variant types themselves.
type PackageRequest interface {
	Type() PackageType
	Validate() error
}

// FreePackage is a single-subject registration bounded by the free
// sub-allocation.
type FreePackage struct {
	Subject Subject
}

func (p FreePackage) Type() PackageType { return PackageFree }

func (p FreePackage) Validate() error {
	if !p.Subject.Valid() {
		return ErrInvalidSubject
	}
	return nil
}

// AdvancedPackage is an all-subjects registration bounded only by total
// capacity.
type AdvancedPackage struct{}

func (p AdvancedPackage) Type() PackageType { return PackageAdvanced }

func (p AdvancedPackage) Validate() error { return nil }

var ErrInvalidPackageType = errors.New("invalid_package_type")

// ParsePackageRequest builds the union variant from wire-level fields,
// rejecting FREE without a subject and ADVANCED with one.
func ParsePackageRequest(packageType, subject string) (PackageRequest, error) {
	switch PackageType(strings.ToUpper(strings.TrimSpace(packageType))) {
	case PackageFree:
		parsed, err := ParseSubject(subject)
		if err != nil {
			return nil, err
		}
		return FreePackage{Subject: parsed}, nil
	case PackageAdvanced:
		if strings.TrimSpace(subject) != "" {
			return nil, ErrSubjectNotAllowed
		}
		return AdvancedPackage{}, nil
	default:
		return nil, ErrInvalidPackageType
	}
}

var ErrSubjectNotAllowed = errors.New("subject_not_allowed")

// NormalizeDate truncates a timestamp to the calendar date in UTC, the
// granularity capacity rows are keyed on.
func NormalizeDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

var ErrInvalidExamDate = errors.New("invalid_exam_date")

// ParseExamDate parses a YYYY-MM-DD date string.
func ParseExamDate(raw string) (time.Time, error) {
	parsed, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidExamDate, raw)
	}
	return NormalizeDate(parsed), nil
}
