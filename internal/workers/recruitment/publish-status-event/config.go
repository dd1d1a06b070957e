// internal/workers/recruitment/publish-status-event/config.go
package publishstatusevent

import (
	"time"

	"hris-cloud/internal/common/config"
)

type Config struct {
	TopicARN string
	Timeout  time.Duration
}

func LoadConfig(cfg config.NotificationConfig) *Config {
	return &Config{
		TopicARN: cfg.Events.TopicARN,
		Timeout:  10 * time.Second,
	}
}
