package runner

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/brightloop/geoscore-backend/internal/types"
)

// StagePolicy bounds one job type: how many executions may run at once in
// this runner instance, and how a failing execution retries.
type StagePolicy struct {
	MaxConcurrency    int           `yaml:"max_concurrency"`
	MaxAttempts       int           `yaml:"max_attempts"`
	BaseDelay         time.Duration `yaml:"base_delay"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
	MaxDelay          time.Duration `yaml:"max_delay"`
	Timeout           time.Duration `yaml:"timeout"`
}

func DefaultPolicies() map[string]StagePolicy {
	base := StagePolicy{
		MaxConcurrency:    2,
		MaxAttempts:       3,
		BaseDelay:         2 * time.Second,
		BackoffMultiplier: 2,
		MaxDelay:          60 * time.Second,
		Timeout:           5 * time.Minute,
	}
	policies := map[string]StagePolicy{
		types.JobTypeCrawl:          base,
		types.JobTypeNormalize:      base,
		types.JobTypeEmbed:          base,
		types.JobTypeSample:         base,
		types.JobTypeScore:          base,
		types.JobTypeAssembleReport: base,
	}
	// Embedding and sampling hold external connections for a while.
	embed := base
	embed.Timeout = 15 * time.Minute
	policies[types.JobTypeEmbed] = embed
	sample := base
	sample.Timeout = 15 * time.Minute
	sample.MaxConcurrency = 1
	policies[types.JobTypeSample] = sample
	return policies
}

// LoadPolicies overlays a YAML policy file onto the defaults. Only the job
// types present in the file are touched; zero fields keep their default.
func LoadPolicies(path string) (map[string]StagePolicy, error) {
	policies := DefaultPolicies()
	if path == "" {
		return policies, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	var overrides map[string]StagePolicy
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}
	for jobType, o := range overrides {
		if !types.ValidJobType(jobType) {
			return nil, fmt.Errorf("policy file: unknown job type %q", jobType)
		}
		p := policies[jobType]
		if o.MaxConcurrency > 0 {
			p.MaxConcurrency = o.MaxConcurrency
		}
		if o.MaxAttempts > 0 {
			p.MaxAttempts = o.MaxAttempts
		}
		if o.BaseDelay > 0 {
			p.BaseDelay = o.BaseDelay
		}
		if o.BackoffMultiplier > 0 {
			p.BackoffMultiplier = o.BackoffMultiplier
		}
		if o.MaxDelay > 0 {
			p.MaxDelay = o.MaxDelay
		}
		if o.Timeout > 0 {
			p.Timeout = o.Timeout
		}
		policies[jobType] = p
	}
	return policies, nil
}

// Backoff returns the delay before attempt+1, given that attempt (1-based)
// just failed: min(base * multiplier^(attempt-1), max).
func Backoff(p StagePolicy, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(p.BaseDelay) * math.Pow(p.BackoffMultiplier, float64(attempt-1))
	if maxDelay := float64(p.MaxDelay); delay > maxDelay {
		delay = maxDelay
	}
	return time.Duration(delay)
}
