package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ExamPolicy carries the tunable admission parameters. Capacity ceilings
// are published numbers and change between exam rounds, so they live in a
// reloadable file instead of code.
type ExamPolicy struct {
	MaxCapacity     int     `mapstructure:"maxCapacity"`
	FreeLimit       int     `mapstructure:"freeLimit"`
	WarningRatio    float64 `mapstructure:"warningRatio"`
	CodeMaxAttempts int     `mapstructure:"codeMaxAttempts"`
}

func DefaultExamPolicy() ExamPolicy {
	return ExamPolicy{
		MaxCapacity:     300,
		FreeLimit:       150,
		WarningRatio:    0.8,
		CodeMaxAttempts: 10,
	}
}

func (p ExamPolicy) Validate() error {
	if p.MaxCapacity <= 0 {
		return errors.New("maxCapacity must be positive")
	}
	if p.FreeLimit < 0 || p.FreeLimit > p.MaxCapacity {
		return errors.New("freeLimit must be within [0, maxCapacity]")
	}
	if p.WarningRatio <= 0 || p.WarningRatio > 1 {
		return errors.New("warningRatio must be within (0, 1]")
	}
	if p.CodeMaxAttempts <= 0 {
		return errors.New("codeMaxAttempts must be positive")
	}
	return nil
}

// ExamPolicyHolder exposes the current policy and hot-reloads it when the
// backing file changes.
type ExamPolicyHolder struct {
	current atomic.Value // holds ExamPolicy
}

func NewExamPolicyHolder(log *zap.Logger) (*ExamPolicyHolder, error) {
	return newExamPolicyHolder(log, []string{"/var/lib/examgate/config", "/etc/examgate", "."})
}

func newExamPolicyHolder(log *zap.Logger, paths []string) (*ExamPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("exam")
	v.SetConfigType("yml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix("EXAMGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultExamPolicy()
	v.SetDefault("exam.maxCapacity", defaults.MaxCapacity)
	v.SetDefault("exam.freeLimit", defaults.FreeLimit)
	v.SetDefault("exam.warningRatio", defaults.WarningRatio)
	v.SetDefault("exam.codeMaxAttempts", defaults.CodeMaxAttempts)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	holder := &ExamPolicyHolder{}
	policy, err := unmarshalPolicy(v)
	if err != nil {
		return nil, err
	}
	holder.current.Store(policy)

	v.OnConfigChange(func(_ fsnotify.Event) {
		reloaded, err := unmarshalPolicy(v)
		if err != nil {
			log.Warn("exam policy reload rejected", zap.Error(err))
			return
		}
		holder.current.Store(reloaded)
		log.Info("exam policy reloaded",
			zap.Int("max_capacity", reloaded.MaxCapacity),
			zap.Int("free_limit", reloaded.FreeLimit),
		)
	})
	v.WatchConfig()

	return holder, nil
}

// NewStaticExamPolicyHolder wraps a fixed policy, used by tests.
func NewStaticExamPolicyHolder(policy ExamPolicy) *ExamPolicyHolder {
	holder := &ExamPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func (h *ExamPolicyHolder) Current() ExamPolicy {
	if policy, ok := h.current.Load().(ExamPolicy); ok {
		return policy
	}
	return DefaultExamPolicy()
}

func unmarshalPolicy(v *viper.Viper) (ExamPolicy, error) {
	var policy ExamPolicy
	if err := v.UnmarshalKey("exam", &policy); err != nil {
		return ExamPolicy{}, err
	}
	if err := policy.Validate(); err != nil {
		return ExamPolicy{}, err
	}
	return policy, nil
}
