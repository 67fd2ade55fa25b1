package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writePolicyFile(t *testing.T, dir string, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "exam.yml"), []byte(body), 0o644))
}

func TestExamPolicyHolder_LoadsFromFile(t *testing.T) {
	dir := t.TempDir()
	writePolicyFile(t, dir, `exam:
  maxCapacity: 120
  freeLimit: 60
  warningRatio: 0.75
  codeMaxAttempts: 5
`)

	holder, err := newExamPolicyHolder(zap.NewNop(), []string{dir})
	require.NoError(t, err)

	policy := holder.Current()
	assert.Equal(t, 120, policy.MaxCapacity)
	assert.Equal(t, 60, policy.FreeLimit)
	assert.Equal(t, 0.75, policy.WarningRatio)
	assert.Equal(t, 5, policy.CodeMaxAttempts)
}

func TestExamPolicyHolder_FallsBackToDefaults(t *testing.T) {
	holder, err := newExamPolicyHolder(zap.NewNop(), []string{t.TempDir()})
	require.NoError(t, err)

	assert.Equal(t, DefaultExamPolicy(), holder.Current())
}

func TestExamPolicyHolder_ReloadsOnFileChange(t *testing.T) {
	dir := t.TempDir()
	writePolicyFile(t, dir, `exam:
  maxCapacity: 300
  freeLimit: 150
`)

	holder, err := newExamPolicyHolder(zap.NewNop(), []string{dir})
	require.NoError(t, err)
	require.Equal(t, 300, holder.Current().MaxCapacity)

	writePolicyFile(t, dir, `exam:
  maxCapacity: 450
  freeLimit: 200
`)

	assert.Eventually(t, func() bool {
		return holder.Current().MaxCapacity == 450
	}, 3*time.Second, 50*time.Millisecond)
	assert.Equal(t, 200, holder.Current().FreeLimit)
}

func TestExamPolicyHolder_RejectsInvalidReload(t *testing.T) {
	dir := t.TempDir()
	writePolicyFile(t, dir, `exam:
  maxCapacity: 300
  freeLimit: 150
`)

	holder, err := newExamPolicyHolder(zap.NewNop(), []string{dir})
	require.NoError(t, err)

	// freeLimit above maxCapacity fails validation; the running policy
	// must survive a bad edit.
	writePolicyFile(t, dir, `exam:
  maxCapacity: 100
  freeLimit: 500
`)

	assert.Never(t, func() bool {
		return holder.Current().MaxCapacity != 300
	}, time.Second, 50*time.Millisecond)
	assert.Equal(t, 150, holder.Current().FreeLimit)
}

func TestExamPolicyValidate(t *testing.T) {
	assert.NoError(t, DefaultExamPolicy().Validate())

	policy := DefaultExamPolicy()
	policy.MaxCapacity = 0
	assert.Error(t, policy.Validate())

	policy = DefaultExamPolicy()
	policy.FreeLimit = policy.MaxCapacity + 1
	assert.Error(t, policy.Validate())

	policy = DefaultExamPolicy()
	policy.WarningRatio = 1.5
	assert.Error(t, policy.Validate())

	policy = DefaultExamPolicy()
	policy.CodeMaxAttempts = 0
	assert.Error(t, policy.Validate())
}
