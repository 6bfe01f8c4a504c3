package resilience

import (
	"time"

	"github.com/sells-group/outreach-cli/internal/config"
)

// PolicyFromConfig converts the retry section of the configuration to a Policy.
// Zero values keep the defaults.
func PolicyFromConfig(c config.RetryConfig) Policy {
	p := DefaultPolicy()
	if c.MaxAttempts > 0 {
		p.MaxAttempts = c.MaxAttempts
	}
	if c.InitialBackoffMs > 0 {
		p.InitialBackoff = time.Duration(c.InitialBackoffMs) * time.Millisecond
	}
	if c.MaxBackoffMs > 0 {
		p.MaxBackoff = time.Duration(c.MaxBackoffMs) * time.Millisecond
	}
	if c.Multiplier > 0 {
		p.Multiplier = c.Multiplier
	}
	if c.JitterFraction >= 0 {
		p.JitterFraction = c.JitterFraction
	}
	return p
}

// BreakerFromConfig builds the circuit breaker that guards model calls.
func BreakerFromConfig(c config.RetryConfig) *Breaker {
	bc := DefaultBreakerConfig()
	if c.CircuitThreshold > 0 {
		bc.FailureThreshold = c.CircuitThreshold
	}
	if c.CircuitResetSecs > 0 {
		bc.ResetTimeout = time.Duration(c.CircuitResetSecs) * time.Second
	}
	return NewBreaker(bc)
}
