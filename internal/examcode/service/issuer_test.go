package service

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/prelimth/examgate/internal/clock"
	"github.com/prelimth/examgate/internal/exam"
	examcodedomain "github.com/prelimth/examgate/internal/examcode/domain"
	"github.com/prelimth/examgate/internal/examcode/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var examDay = time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

// zeroReader yields endless zero bytes, so every drawn token is "AAAA".
type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

// alwaysExists forces the pre-check collision path on every attempt.
type alwaysExists struct {
	examcodedomain.Repository
}

func (alwaysExists) Exists(context.Context, *gorm.DB, string) (bool, error) {
	return true, nil
}

func setupIssuer(t *testing.T, source *bytes.Reader) (*gorm.DB, *Issuer) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(testDSN(t)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&examcodedomain.ExamCode{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	issuer := NewIssuerWithSource(zap.NewNop(), node, clock.NewFakeClock(examDay), repository.Provide(), source)
	return db, issuer
}

// testDSN keeps the pool's connections on one in-memory database.
func testDSN(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
}

func TestIssue_FreeCodeMatchesTemplate(t *testing.T) {
	// Bytes 0..3 index straight into the alphabet: "ABCD".
	db, issuer := setupIssuer(t, bytes.NewReader([]byte{0, 1, 2, 3}))

	record, err := issuer.Issue(context.Background(), db, IssueRequest{
		UserID:      snowflake.ID(42),
		SessionTime: exam.SessionMorning,
		ExamDate:    examDay,
		Package:     exam.FreePackage{Subject: exam.SubjectMath},
	})
	require.NoError(t, err)

	assert.Equal(t, "FREE-ABCD-MATH", record.Code)
	assert.Equal(t, exam.PackageFree, record.PackageType)
	require.NotNil(t, record.Subject)
	assert.Equal(t, exam.SubjectMath, *record.Subject)
	assert.True(t, examcodedomain.IsValidCode(record.Code))
	assert.Nil(t, record.UsedAt)
}

func TestIssue_AdvancedCodeMatchesTemplate(t *testing.T) {
	db, issuer := setupIssuer(t, bytes.NewReader([]byte{26, 27, 28, 29}))

	record, err := issuer.Issue(context.Background(), db, IssueRequest{
		UserID:      snowflake.ID(42),
		SessionTime: exam.SessionAfternoon,
		ExamDate:    examDay,
		Package:     exam.AdvancedPackage{},
	})
	require.NoError(t, err)

	assert.Equal(t, "ADV-0123", record.Code)
	assert.Nil(t, record.Subject)
	assert.True(t, examcodedomain.IsValidCode(record.Code))
}

func TestIssue_RetriesPastCollision(t *testing.T) {
	// First draw "ABCD" collides with the seeded row, second draw "EFGH"
	// lands.
	db, issuer := setupIssuer(t, bytes.NewReader([]byte{0, 1, 2, 3, 4, 5, 6, 7}))

	seeded := &examcodedomain.ExamCode{
		ID:          snowflake.ID(1),
		Code:        "FREE-ABCD-MATH",
		PackageType: exam.PackageFree,
		UserID:      snowflake.ID(7),
		SessionTime: exam.SessionMorning,
		ExamDate:    examDay,
		CreatedAt:   examDay,
	}
	require.NoError(t, db.Create(seeded).Error)

	record, err := issuer.Issue(context.Background(), db, IssueRequest{
		UserID:      snowflake.ID(42),
		SessionTime: exam.SessionMorning,
		ExamDate:    examDay,
		Package:     exam.FreePackage{Subject: exam.SubjectMath},
	})
	require.NoError(t, err)
	assert.Equal(t, "FREE-EFGH-MATH", record.Code)
}

func TestIssue_RejectionSamplingSkipsBiasedBytes(t *testing.T) {
	// 252..255 fall outside the unbiased range and are discarded.
	db, issuer := setupIssuer(t, bytes.NewReader([]byte{255, 254, 253, 252, 0, 1, 2, 3}))

	record, err := issuer.Issue(context.Background(), db, IssueRequest{
		UserID:      snowflake.ID(42),
		SessionTime: exam.SessionMorning,
		ExamDate:    examDay,
		Package:     exam.AdvancedPackage{},
	})
	require.NoError(t, err)
	assert.Equal(t, "ADV-ABCD", record.Code)
}

// duplicateOnceRepo reports a unique-index violation on the first insert,
// as when a racing admission committed the same candidate after the
// pre-check passed.
type duplicateOnceRepo struct {
	examcodedomain.Repository
	failures int
}

func (r *duplicateOnceRepo) Insert(ctx context.Context, db *gorm.DB, code *examcodedomain.ExamCode) error {
	if r.failures > 0 {
		r.failures--
		return gorm.ErrDuplicatedKey
	}
	return r.Repository.Insert(ctx, db, code)
}

func TestIssue_InsertConflictRetriesWithFreshCandidate(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(testDSN(t)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&examcodedomain.ExamCode{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	repo := &duplicateOnceRepo{Repository: repository.Provide(), failures: 1}
	source := bytes.NewReader([]byte{0, 1, 2, 3, 4, 5, 6, 7})
	issuer := NewIssuerWithSource(zap.NewNop(), node, clock.NewFakeClock(examDay), repo, source)

	// Run inside a transaction as admissions do; the failed first insert
	// must not poison the second attempt.
	var issued *examcodedomain.ExamCode
	err = db.Transaction(func(tx *gorm.DB) error {
		issued, err = issuer.Issue(context.Background(), tx, IssueRequest{
			UserID:      snowflake.ID(42),
			SessionTime: exam.SessionMorning,
			ExamDate:    examDay,
			Package:     exam.AdvancedPackage{},
		})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "ADV-EFGH", issued.Code)

	var count int64
	require.NoError(t, db.Model(&examcodedomain.ExamCode{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestIssue_ExhaustsAfterBoundedAttempts(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(testDSN(t)), &gorm.Config{})
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	issuer := NewIssuerWithSource(zap.NewNop(), node, clock.NewFakeClock(examDay), alwaysExists{}, zeroReader{})

	_, err = issuer.Issue(context.Background(), db, IssueRequest{
		UserID:      snowflake.ID(42),
		SessionTime: exam.SessionMorning,
		ExamDate:    examDay,
		Package:     exam.AdvancedPackage{},
		MaxAttempts: 3,
	})
	assert.ErrorIs(t, err, examcodedomain.ErrGenerationExhausted)
}

func TestIssue_InvalidPackageFailsFast(t *testing.T) {
	db, issuer := setupIssuer(t, bytes.NewReader([]byte{0, 1, 2, 3}))

	_, err := issuer.Issue(context.Background(), db, IssueRequest{
		UserID:      snowflake.ID(42),
		SessionTime: exam.SessionMorning,
		ExamDate:    examDay,
		Package:     exam.FreePackage{Subject: exam.Subject("HISTORY")},
	})
	assert.ErrorIs(t, err, exam.ErrInvalidSubject)

	var count int64
	require.NoError(t, db.Model(&examcodedomain.ExamCode{}).Count(&count).Error)
	assert.Zero(t, count)
}
