// internal/workers/notification/send-broadcast/config.go
package sendbroadcast

import (
	"time"

	"edumatch-notifications/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

// LoadConfig reads the worker's timeout from the workers map, falling back to
// two minutes since a broadcast fans out to every recipient before completing.
func LoadConfig(cfg *config.Config) *Config {
	c := &Config{Timeout: 2 * time.Minute}
	if cfg == nil {
		return c
	}
	if wc, ok := cfg.Workers[TaskType]; ok && wc.Timeout > 0 {
		c.Timeout = time.Duration(wc.Timeout) * time.Millisecond
	}
	return c
}
