// Package runner lanza todos los reportes de una corrida en paralelo sobre
// feeds compartidos y espera en una barrera a que cada uno termine.
//
// Un reporte que falla (o entra en pánico) no frena a los demás: su error
// queda en el Outcome y su salida queda vacía.
package runner

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"pet-owner-reports/internal/fanout"
	"pet-owner-reports/internal/platform/logger"
	"pet-owner-reports/internal/platform/metrics"
	"pet-owner-reports/internal/reports"
	"pet-owner-reports/internal/retry"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNotConfigured = errors.New("runner: source and sink are required")
	ErrPanic         = errors.New("runner: report panicked")
	ErrAbandoned     = errors.New("runner: report did not stop after cancellation")
)

// Sink recibe la salida de cada reporte. Por nombre hay un solo escritor y
// Clear ocurre antes que Append.
type Sink interface {
	Clear(name string) error
	Append(name, text string) error
}

// PanicError envuelve el valor de un pánico recuperado. errors.Is(err, ErrPanic) es true.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("%v: %v", ErrPanic, e.Value) }

func (e *PanicError) Is(target error) bool { return target == ErrPanic }

type Status string

const (
	StatusOK        Status = "ok"
	StatusFailed    Status = "failed"
	StatusPanic     Status = "panic"
	StatusAbandoned Status = "abandoned"
)

type Outcome struct {
	Name     string
	Status   Status
	Err      error
	Bytes    int
	Duration time.Duration
}

type Summary struct {
	RunID    string
	Outcomes []Outcome
	Duration time.Duration
}

// Failed devuelve los outcomes que no terminaron ok, en orden de reporte.
func (s Summary) Failed() []Outcome {
	var out []Outcome
	for _, o := range s.Outcomes {
		if o.Status != StatusOK {
			out = append(out, o)
		}
	}
	return out
}

// Err junta los errores de los reportes fallidos (nil si todos ok).
func (s Summary) Err() error {
	var errs []error
	for _, o := range s.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", o.Name, o.Err))
	}
	return errors.Join(errs...)
}

type Options struct {
	Source reports.Source
	Sink   Sink

	// Reports a ejecutar; nil => reports.All().
	Reports []reports.Report

	Limits reports.Limits
	Lookup retry.Policy

	// Timeout acota la corrida completa (0 => sin límite).
	Timeout time.Duration

	// Grace es cuánto se espera tras la cancelación antes de abandonar
	// reportes que no respondieron. Default: 1s
	Grace time.Duration

	Logger  logger.Logger
	Metrics *metrics.Metrics
}

type Runner struct {
	source  reports.Source
	sink    Sink
	reports []reports.Report

	limits  reports.Limits
	lookup  retry.Policy
	timeout time.Duration
	grace   time.Duration

	log     logger.Logger
	metrics *metrics.Metrics

	now   func() time.Time
	newID func() string
}

func New(opts Options) (*Runner, error) {
	if opts.Source == nil || opts.Sink == nil {
		return nil, ErrNotConfigured
	}

	rs := opts.Reports
	if rs == nil {
		rs = reports.All()
	}

	limits := opts.Limits
	if limits == (reports.Limits{}) {
		limits = reports.DefaultLimits()
	}

	lookup := opts.Lookup
	if lookup.MaxAttempts == 0 {
		lookup = retry.DefaultPolicy()
	}
	if err := lookup.Validate(); err != nil {
		return nil, err
	}

	grace := opts.Grace
	if grace <= 0 {
		grace = time.Second
	}

	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Runner{
		source:  opts.Source,
		sink:    opts.Sink,
		reports: rs,
		limits:  limits,
		lookup:  lookup,
		timeout: opts.Timeout,
		grace:   grace,
		log:     log,
		metrics: opts.Metrics,
		now:     time.Now,
		newID:   uuid.NewString,
	}, nil
}

// Run ejecuta la corrida y vuelve cuando todos los reportes terminaron
// (o, si el ctx se canceló, cuando venció el margen de gracia).
func (r *Runner) Run(ctx context.Context) Summary {
	runID := r.newID()
	start := r.now()
	log := r.log.With(map[string]any{"run_id": runID})

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	env := r.env(ctx)

	log.Info("run started", map[string]any{"reports": len(r.reports)})

	b := newBarrier(len(r.reports))

	// ningún g.Go devuelve error: la falla de un reporte no cancela a los demás
	var g errgroup.Group
	for i, rep := range r.reports {
		g.Go(func() error {
			r.runOne(ctx, env, b, i, rep, log)
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		select {
		case <-done:
		case <-time.After(r.grace):
			log.Warn("barrier gave up waiting", map[string]any{"error": ctx.Err()})
		}
	}

	out, pending := b.close()
	for _, i := range pending {
		o := Outcome{
			Name:     r.reports[i].Name,
			Status:   StatusAbandoned,
			Err:      fmt.Errorf("%w: %v", ErrAbandoned, ctx.Err()),
			Duration: r.now().Sub(start),
		}
		out[i] = o
		r.observe(o)
	}

	s := Summary{RunID: runID, Outcomes: out, Duration: r.now().Sub(start)}
	log.Info("run finished", map[string]any{
		"duration_ms": s.Duration.Milliseconds(),
		"failed":      len(s.Failed()),
	})
	return s
}

func (r *Runner) env(ctx context.Context) *reports.Env {
	env := reports.NewEnv(ctx, r.source)
	env.Limits = r.limits
	env.Lookup = r.lookup

	if m := r.metrics; m != nil {
		next := r.lookup.OnAttempt
		env.Lookup.OnAttempt = func(attempt int, err error) {
			outcome := "ok"
			if err != nil {
				outcome = "failed"
			}
			m.LookupAttempts.WithLabelValues(outcome).Inc()
			if next != nil {
				next(attempt, err)
			}
		}
		env.Gauge = func(report string) fanout.Gauge {
			return m.FanoutInflight.WithLabelValues(report)
		}
	}
	return env
}

// barrier junta los outcomes de una corrida. Una vez cerrada no acepta más
// escrituras: lo que llega tarde se descarta y no toca el sink.
type barrier struct {
	mu       sync.Mutex
	closed   bool
	outcomes []Outcome
	settled  []bool
}

func newBarrier(n int) *barrier {
	return &barrier{outcomes: make([]Outcome, n), settled: make([]bool, n)}
}

// do ejecuta fn bajo el lock de la barrera. false => ya cerrada, fn no corrió.
func (b *barrier) do(fn func()) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	fn()
	return true
}

// settle hace commit del resultado i (write incluido) de forma atómica
// respecto del cierre.
func (b *barrier) settle(i int, commit func() Outcome) (Outcome, bool) {
	var o Outcome
	ok := b.do(func() {
		o = commit()
		b.outcomes[i] = o
		b.settled[i] = true
	})
	return o, ok
}

// close deja de aceptar resultados y devuelve los outcomes y los índices sin resolver.
func (b *barrier) close() ([]Outcome, []int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true

	out := make([]Outcome, len(b.outcomes))
	copy(out, b.outcomes)
	var pending []int
	for i, ok := range b.settled {
		if !ok {
			pending = append(pending, i)
		}
	}
	return out, pending
}

func (r *Runner) runOne(ctx context.Context, env *reports.Env, b *barrier, i int, rep reports.Report, log logger.Logger) {
	start := r.now()
	log = log.With(map[string]any{"report": rep.Name})
	log.Debug("report started", nil)

	// la salida anterior se borra siempre: un reporte fallido deja salida vacía
	var clearErr error
	if !b.do(func() { clearErr = r.sink.Clear(rep.Name) }) {
		log.Warn("report skipped, run already closed", nil)
		return
	}

	var (
		text   string
		runErr error
	)
	if clearErr == nil {
		text, runErr = safeRun(ctx, env, rep)
	}

	o, ok := b.settle(i, func() Outcome {
		o := Outcome{Name: rep.Name, Status: StatusOK}
		switch {
		case clearErr != nil:
			o.Status, o.Err = StatusFailed, fmt.Errorf("clear output: %w", clearErr)
		case errors.Is(runErr, ErrPanic):
			o.Status, o.Err = StatusPanic, runErr
		case runErr != nil:
			o.Status, o.Err = StatusFailed, runErr
		default:
			if err := r.sink.Append(rep.Name, text); err != nil {
				o.Status, o.Err = StatusFailed, fmt.Errorf("write output: %w", err)
			} else {
				o.Bytes = len(text)
			}
		}
		o.Duration = r.now().Sub(start)
		return o
	})
	if !ok {
		log.Warn("late result discarded", map[string]any{
			"duration_ms": r.now().Sub(start).Milliseconds(),
		})
		return
	}

	r.observe(o)

	fields := map[string]any{
		"duration_ms": o.Duration.Milliseconds(),
		"status":      string(o.Status),
	}
	if o.Err != nil {
		fields["error"] = o.Err
		var pe *PanicError
		if errors.As(o.Err, &pe) {
			fields["stack"] = string(pe.Stack)
		}
		log.Error("report failed", fields)
	} else {
		fields["bytes"] = o.Bytes
		log.Info("report finished", fields)
	}
}

func (r *Runner) observe(o Outcome) {
	if r.metrics == nil {
		return
	}
	r.metrics.ReportRuns.WithLabelValues(o.Name, string(o.Status)).Inc()
	r.metrics.ReportDuration.WithLabelValues(o.Name).Observe(o.Duration.Seconds())
}

func safeRun(ctx context.Context, env *reports.Env, rep reports.Report) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &PanicError{Value: rec, Stack: debug.Stack()}
		}
	}()
	return rep.Run(ctx, env)
}
