// Package retry envuelve una llamada con reintentos y backoff exponencial acotado.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

var (
	ErrInvalidPolicy = errors.New("retry: invalid policy")
)

// Policy es un valor reutilizable: se arma una vez y se aplica a cualquier llamada.
type Policy struct {
	// MaxAttempts cuenta el intento inicial. Default: 3
	MaxAttempts int

	// InitialDelay es la espera antes del primer reintento. Default: 100ms
	InitialDelay time.Duration

	// MaxDelay acota la espera entre reintentos. Default: 2s
	MaxDelay time.Duration

	// Multiplier crece la espera tras cada reintento. Default: 2
	Multiplier float64

	// Jitter en [0,1): fracción aleatoria +/- sobre cada espera. Default: 0
	Jitter float64

	// OnAttempt se invoca tras cada intento (nil = sin hook).
	OnAttempt func(attempt int, err error)

	sleep func(ctx context.Context, d time.Duration) error
	rnd   func() float64
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2,
	}
}

func (p Policy) Validate() error {
	switch {
	case p.MaxAttempts < 1:
		return fmt.Errorf("%w: max attempts must be >= 1", ErrInvalidPolicy)
	case p.InitialDelay < 0:
		return fmt.Errorf("%w: initial delay must be >= 0", ErrInvalidPolicy)
	case p.MaxDelay < p.InitialDelay:
		return fmt.Errorf("%w: max delay below initial delay", ErrInvalidPolicy)
	case p.Multiplier < 1:
		return fmt.Errorf("%w: multiplier must be >= 1", ErrInvalidPolicy)
	case p.Jitter < 0 || p.Jitter >= 1:
		return fmt.Errorf("%w: jitter must be in [0,1)", ErrInvalidPolicy)
	}
	return nil
}

// Delays devuelve las esperas que aplicaría la política sin jitter:
// una por reintento, MaxAttempts-1 en total.
func (p Policy) Delays() []time.Duration {
	if p.MaxAttempts <= 1 {
		return nil
	}
	out := make([]time.Duration, 0, p.MaxAttempts-1)
	d := p.InitialDelay
	for i := 1; i < p.MaxAttempts; i++ {
		out = append(out, d)
		d = p.next(d)
	}
	return out
}

// ExhaustedError se devuelve cuando se agotan los intentos. Err es la última falla.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Do ejecuta fn hasta que devuelva nil o se agoten los intentos.
// Cualquier error dispara reintento, salvo la cancelación del ctx.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	if err := p.Validate(); err != nil {
		return err
	}

	sleep := p.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	delay := p.InitialDelay
	var last error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if last != nil {
				return fmt.Errorf("%w (last failure: %v)", err, last)
			}
			return err
		}

		err := fn(ctx, attempt)
		if p.OnAttempt != nil {
			p.OnAttempt(attempt, err)
		}
		if err == nil {
			return nil
		}
		last = err

		// el ctx del caller se canceló durante la llamada: no tiene sentido reintentar
		if ctx.Err() != nil {
			return err
		}
		if attempt == p.MaxAttempts {
			break
		}

		if err := sleep(ctx, p.jittered(delay)); err != nil {
			return fmt.Errorf("%w (last failure: %v)", err, last)
		}
		delay = p.next(delay)
	}

	return &ExhaustedError{Attempts: p.MaxAttempts, Err: last}
}

// Value es Do para llamadas que devuelven un valor.
func Value[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, func(ctx context.Context, _ int) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func (p Policy) next(d time.Duration) time.Duration {
	n := time.Duration(float64(d) * p.Multiplier)
	if n > p.MaxDelay {
		return p.MaxDelay
	}
	return n
}

func (p Policy) jittered(d time.Duration) time.Duration {
	if p.Jitter <= 0 || d <= 0 {
		return d
	}
	rnd := p.rnd
	if rnd == nil {
		rnd = rand.Float64
	}
	// rango [d*(1-j), d*(1+j)]
	f := 1 + (rnd()*2-1)*p.Jitter
	return time.Duration(float64(d) * f)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
