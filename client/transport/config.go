package transport

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/adamwoolhether/netreq/client/throttle"
)

// Config holds the environment driven settings of an [HTTP] session.
// With prefix "NETREQ" the variables are NETREQ_TIMEOUT, NETREQ_USER_AGENT,
// NETREQ_THROTTLE_RPS, NETREQ_THROTTLE_BURST, NETREQ_NO_FOLLOW_REDIRECTS and
// NETREQ_REQUEST_ID_HEADER.
type Config struct {
	Timeout           time.Duration `envconfig:"TIMEOUT"`
	UserAgent         string        `envconfig:"USER_AGENT"`
	ThrottleRPS       int           `envconfig:"THROTTLE_RPS"`
	ThrottleBurst     int           `envconfig:"THROTTLE_BURST"`
	NoFollowRedirects bool          `envconfig:"NO_FOLLOW_REDIRECTS" default:"false"`
	RequestIDHeader   string        `envconfig:"REQUEST_ID_HEADER"`
}

// LoadConfig reads Config from environment variables under prefix.
func LoadConfig(prefix string) (Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("loading transport config: %w", err)
	}
	return cfg, nil
}

// Options converts the config into [Option] values for [NewHTTP]. The
// throttle is enabled when either limit is set, and both must then be
// positive or NewHTTP fails.
func (c Config) Options() []Option {
	var opts []Option

	if c.Timeout > 0 {
		opts = append(opts, WithTimeout(c.Timeout))
	}
	if c.UserAgent != "" {
		opts = append(opts, WithUserAgent(c.UserAgent))
	}
	if c.ThrottleRPS != 0 || c.ThrottleBurst != 0 {
		opts = append(opts, WithThrottle(throttle.Config{RPS: c.ThrottleRPS, Burst: c.ThrottleBurst}))
	}
	if c.NoFollowRedirects {
		opts = append(opts, WithNoFollowRedirects())
	}
	if c.RequestIDHeader != "" {
		opts = append(opts, WithRequestID(c.RequestIDHeader))
	}

	return opts
}
