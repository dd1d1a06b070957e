// internal/workers/recruitment/score-applicant/config.go
package scoreapplicant

import (
	"time"

	"hris-cloud/internal/common/config"
)

type Config struct {
	PassThreshold int
	ModelTimeout  time.Duration
	Timeout       time.Duration
}

func LoadConfig(cfg config.ScoringConfig) *Config {
	c := &Config{
		PassThreshold: 50,
		ModelTimeout:  30 * time.Second,
		Timeout:       60 * time.Second,
	}
	if cfg.PassThreshold > 0 {
		c.PassThreshold = cfg.PassThreshold
	}
	if cfg.Timeout > 0 {
		c.ModelTimeout = config.GetDuration(cfg.Timeout)
		c.Timeout = 2 * c.ModelTimeout
	}
	return c
}
