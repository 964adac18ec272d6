package classify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"

	contractx "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/contract"
	statex "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/state"
)

const (
	defaultBreakerMaxFailures uint32 = 5
	defaultBreakerTimeout            = 30 * time.Second
	defaultBreakerInterval           = 60 * time.Second
)

type BreakerConfig struct {
	MaxFailures uint32        `envconfig:"MAX_FAILURES" split_words:"true" default:"5"`
	Timeout     time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	Interval    time.Duration `envconfig:"INTERVAL" split_words:"true" default:"60s"`
}

// Breaker wraps a Classifier with a circuit breaker. After repeated
// failures the circuit opens and calls fail fast; an open circuit reads
// as ErrClassifierUnavailable so the orchestrator's fallback rule kicks
// in without waiting on a dead upstream.
type Breaker struct {
	inner   contractx.Classifier
	breaker *gobreaker.CircuitBreaker[statex.IntentLabel]
}

func NewBreaker(inner contractx.Classifier, cfg BreakerConfig) *Breaker {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultBreakerMaxFailures
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultBreakerTimeout
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultBreakerInterval
	}

	cb := gobreaker.NewCircuitBreaker[statex.IntentLabel](gobreaker.Settings{
		Name:        "classifier",
		MaxRequests: 1, // one probe in half-open state
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("classifier breaker state change")
		},
	})

	return &Breaker{
		inner:   inner,
		breaker: cb,
	}
}

func (b *Breaker) Classify(
	ctx context.Context,
	utterance string,
	snapshot *statex.SessionState,
) (statex.IntentLabel, error) {
	label, err := b.breaker.Execute(func() (statex.IntentLabel, error) {
		return b.inner.Classify(ctx, utterance, snapshot)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: circuit open: %v", contractx.ErrClassifierUnavailable, err)
		}
		return "", err
	}
	return label, nil
}
