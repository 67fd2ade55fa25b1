// Package service issues unique exam codes inside an admission transaction.
package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prelimth/examgate/internal/clock"
	"github.com/prelimth/examgate/internal/exam"
	examcodedomain "github.com/prelimth/examgate/internal/examcode/domain"
	obsmetrics "github.com/prelimth/examgate/internal/observability/metrics"
	"github.com/prelimth/examgate/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Issuer draws candidate codes from a cryptographically secure source and
// persists them under the unique constraint. The code doubles as the
// admission credential at the venue, so predictability matters.
type Issuer struct {
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    examcodedomain.Repository
	metrics *obsmetrics.Metrics
	rand    io.Reader
}

type IssuerParam struct {
	fx.In

	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    examcodedomain.Repository
	Metrics *obsmetrics.Metrics `optional:"true"`
}

func NewIssuer(p IssuerParam) *Issuer {
	return &Issuer{
		log:     p.Log.Named("examcode.issuer"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
		rand:    rand.Reader,
	}
}

// NewIssuerWithSource injects a random source and repository directly,
// used by tests.
func NewIssuerWithSource(log *zap.Logger, genID *snowflake.Node, clk clock.Clock, repo examcodedomain.Repository, source io.Reader) *Issuer {
	return &Issuer{
		log:   log.Named("examcode.issuer"),
		genID: genID,
		clock: clk,
		repo:  repo,
		rand:  source,
	}
}

// IssueRequest describes one code to mint. The package variant fixes the
// template; MaxAttempts bounds collision retries.
type IssueRequest struct {
	UserID      snowflake.ID
	SessionTime exam.SessionTime
	ExamDate    time.Time
	Package     exam.PackageRequest
	Metadata    datatypes.JSONMap
	MaxAttempts int
}

// issueOutcome is the typed result of a single attempt: either the row
// stuck, or the candidate collided and the attempt may be retried.
type issueOutcome int

const (
	outcomeIssued issueOutcome = iota
	outcomeCollision
)

// Issue mints and persists a unique code within the caller's transaction.
// A duplicate-key failure on insert is treated exactly like a pre-check
// collision: retry with a fresh candidate until the attempt bound is
// spent, then fail with ErrGenerationExhausted.
func (i *Issuer) Issue(ctx context.Context, tx *gorm.DB, req IssueRequest) (*examcodedomain.ExamCode, error) {
	if err := req.Package.Validate(); err != nil {
		return nil, err
	}

	attempts := req.MaxAttempts
	if attempts <= 0 {
		attempts = 10
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		record, outcome, err := i.attempt(ctx, tx, req)
		if err != nil {
			return nil, err
		}
		if outcome == outcomeIssued {
			return record, nil
		}

		i.metrics.RecordCodeCollision(ctx, string(req.Package.Type()))
		i.log.Debug("code candidate collided",
			zap.Int("attempt", attempt),
			zap.String("package_type", string(req.Package.Type())),
		)
	}

	// 36^4 candidates per template make this effectively unreachable;
	// reaching it suggests alphabet exhaustion or a broken uniqueness
	// check, so it is logged loudly.
	i.metrics.RecordGenerationExhausted(ctx, string(req.Package.Type()))
	i.log.Error("exam code generation exhausted",
		zap.Int("attempts", attempts),
		zap.String("package_type", string(req.Package.Type())),
	)
	return nil, examcodedomain.ErrGenerationExhausted
}

func (i *Issuer) attempt(ctx context.Context, tx *gorm.DB, req IssueRequest) (*examcodedomain.ExamCode, issueOutcome, error) {
	token, err := i.randomToken(tokenLength)
	if err != nil {
		return nil, outcomeCollision, fmt.Errorf("draw code token: %w", err)
	}
	candidate := examcodedomain.ComposeCode(token, req.Package)

	exists, err := i.repo.Exists(ctx, tx, candidate)
	if err != nil {
		return nil, outcomeCollision, err
	}
	if exists {
		return nil, outcomeCollision, nil
	}

	record := &examcodedomain.ExamCode{
		ID:          i.genID.Generate(),
		Code:        candidate,
		PackageType: req.Package.Type(),
		UserID:      req.UserID,
		SessionTime: req.SessionTime,
		ExamDate:    exam.NormalizeDate(req.ExamDate),
		Metadata:    req.Metadata,
		CreatedAt:   i.clock.Now(),
	}
	if free, ok := req.Package.(exam.FreePackage); ok {
		subject := free.Subject
		record.Subject = &subject
	}

	// The insert runs under a savepoint: postgres aborts the surrounding
	// transaction on a unique violation, and the next attempt's queries
	// must still be able to run after a failed candidate.
	insertErr := tx.Transaction(func(attemptTx *gorm.DB) error {
		return i.repo.Insert(ctx, attemptTx, record)
	})
	if insertErr != nil {
		// Two admissions raced to the same candidate; the unique index
		// decided, the loser retries.
		if db.IsDuplicateKeyErr(insertErr) {
			return nil, outcomeCollision, nil
		}
		return nil, outcomeCollision, insertErr
	}

	return record, outcomeIssued, nil
}

const tokenLength = 4

// randomToken samples uniformly from the 36-symbol alphabet using
// rejection sampling to avoid modulo bias.
func (i *Issuer) randomToken(length int) (string, error) {
	out := make([]byte, 0, length)
	buf := make([]byte, 1)

	// Largest multiple of len(codeAlphabet) below 256.
	limit := byte(256 - (256 % len(codeAlphabet)))

	for len(out) < length {
		if _, err := io.ReadFull(i.rand, buf); err != nil {
			return "", err
		}
		if buf[0] >= limit {
			continue
		}
		out = append(out, codeAlphabet[int(buf[0])%len(codeAlphabet)])
	}
	return string(out), nil
}
