// Package fanout ejecuta "para cada X, traer B(X)" con concurrencia acotada.
//
// Map lanza una goroutine por elemento (con techo opcional) y corta al primer
// error: el ctx derivado se cancela y los resultados que lleguen después se
// descartan. Limiter es un semáforo que varias Map anidadas de un mismo
// reporte pueden compartir, de modo que el techo aplica a todas las llamadas
// en vuelo de ese reporte y no por nivel.
package fanout

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Map aplica fn a cada elemento de items con a lo sumo limit llamadas
// concurrentes (limit <= 0 => sin techo). El resultado respeta el orden de
// items, no el de llegada.
func Map[In, Out any](ctx context.Context, limit int, items []In, fn func(ctx context.Context, item In) (Out, error)) ([]Out, error) {
	out := make([]Out, len(items))
	if len(items) == 0 {
		return out, ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, item := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			v, err := fn(gctx, item)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	// el ctx padre pudo cancelarse sin que ninguna fn fallara
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Gauge lo cumple prometheus.Gauge.
type Gauge interface {
	Inc()
	Dec()
}

// Limiter admite a lo sumo N llamadas en vuelo.
type Limiter struct {
	sem   *semaphore.Weighted
	size  int64
	gauge Gauge

	inflight atomic.Int64
	peak     atomic.Int64
}

func NewLimiter(size int) (*Limiter, error) {
	if size < 1 {
		return nil, fmt.Errorf("fanout: limiter size must be >= 1, got %d", size)
	}
	return &Limiter{
		sem:  semaphore.NewWeighted(int64(size)),
		size: int64(size),
	}, nil
}

// WithGauge refleja las llamadas en vuelo en g (p.ej. una métrica por reporte).
func (l *Limiter) WithGauge(g Gauge) *Limiter {
	l.gauge = g
	return l
}

func (l *Limiter) Size() int { return int(l.size) }

// Peak es el máximo de llamadas simultáneas observado.
func (l *Limiter) Peak() int64 { return l.peak.Load() }

// Do espera un slot (o la cancelación de ctx) y ejecuta fn.
func (l *Limiter) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.sem.Release(1)

	n := l.inflight.Add(1)
	for {
		p := l.peak.Load()
		if n <= p || l.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if l.gauge != nil {
		l.gauge.Inc()
	}
	defer func() {
		l.inflight.Add(-1)
		if l.gauge != nil {
			l.gauge.Dec()
		}
	}()

	return fn(ctx)
}

// Call es Do para funciones que devuelven un valor.
func Call[T any](ctx context.Context, l *Limiter, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := l.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		out = v
		return err
	})
	return out, err
}
