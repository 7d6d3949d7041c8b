package conf

import (
	"github.com/rbramwell/crate/breaker"
	"github.com/rbramwell/crate/errors"
	"github.com/rbramwell/crate/logger"
)

const (
	DefaultQueryBreakerName  = "query"
	DefaultQueryBreakerLimit = 1024 * 1024 * 1024
)

// Config carries the runtime settings for query-side grouping: the shared
// memory breaker and logging. A zero limit disables the breaker ceiling.
type Config struct {
	QueryBreakerName  string        `help:"Name of the shared query memory breaker" default:"query"`
	QueryBreakerLimit int64         `help:"Maximum bytes the query breaker will admit before tripping, 0 disables the limit" default:"1073741824"`
	LogConfig         logger.Config `embed:"" prefix:"log-"`
}

func (c *Config) ApplyDefaults() {
	if c.QueryBreakerName == "" {
		c.QueryBreakerName = DefaultQueryBreakerName
	}
	if c.QueryBreakerLimit == 0 {
		c.QueryBreakerLimit = DefaultQueryBreakerLimit
	}
	if c.LogConfig.Format == "" {
		c.LogConfig.Format = "console"
	}
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "info"
	}
}

func (c *Config) Validate() error {
	if c.QueryBreakerName == "" {
		return errors.NewInvalidConfigurationError("query breaker name must be specified")
	}
	if c.QueryBreakerLimit < 0 {
		return errors.NewInvalidConfigurationError("query breaker limit must be >= 0")
	}
	return nil
}

// NewBreaker creates the process-wide breaker that all grouping operations
// charge against.
func (c *Config) NewBreaker() *breaker.Breaker {
	return breaker.NewBreaker(c.QueryBreakerName, c.QueryBreakerLimit)
}
