package exam

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseSessionTime(t *testing.T) {
	parsed, err := ParseSessionTime(" morning ")
	assert.NoError(t, err)
	assert.Equal(t, SessionMorning, parsed)

	parsed, err = ParseSessionTime("AFTERNOON")
	assert.NoError(t, err)
	assert.Equal(t, SessionAfternoon, parsed)

	_, err = ParseSessionTime("EVENING")
	assert.ErrorIs(t, err, ErrInvalidSessionTime)

	_, err = ParseSessionTime("")
	assert.ErrorIs(t, err, ErrInvalidSessionTime)
}

func TestParsePackageRequest_Free(t *testing.T) {
	pkg, err := ParsePackageRequest("FREE", "math")
	assert.NoError(t, err)
	assert.Equal(t, PackageFree, pkg.Type())

	free, ok := pkg.(FreePackage)
	assert.True(t, ok)
	assert.Equal(t, SubjectMath, free.Subject)
}

func TestParsePackageRequest_FreeRequiresSubject(t *testing.T) {
	_, err := ParsePackageRequest("FREE", "")
	assert.ErrorIs(t, err, ErrInvalidSubject)

	_, err = ParsePackageRequest("FREE", "HISTORY")
	assert.ErrorIs(t, err, ErrInvalidSubject)
}

func TestParsePackageRequest_AdvancedRejectsSubject(t *testing.T) {
	pkg, err := ParsePackageRequest("advanced", "")
	assert.NoError(t, err)
	assert.Equal(t, PackageAdvanced, pkg.Type())

	_, err = ParsePackageRequest("ADVANCED", "MATH")
	assert.ErrorIs(t, err, ErrSubjectNotAllowed)
}

func TestParsePackageRequest_UnknownType(t *testing.T) {
	_, err := ParsePackageRequest("PREMIUM", "")
	assert.ErrorIs(t, err, ErrInvalidPackageType)
}

func TestNormalizeDate(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	stamp := time.Date(2026, 3, 14, 2, 30, 0, 0, loc)

	normalized := NormalizeDate(stamp)
	assert.Equal(t, time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC), normalized)
}

func TestParseExamDate(t *testing.T) {
	parsed, err := ParseExamDate("2026-03-14")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), parsed)

	_, err = ParseExamDate("14/03/2026")
	assert.True(t, errors.Is(err, ErrInvalidExamDate))
}
