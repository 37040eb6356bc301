package fanout

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tracker cuenta llamadas simultáneas y guarda el máximo.
type tracker struct {
	cur, max atomic.Int64
}

func (t *tracker) enter() {
	n := t.cur.Add(1)
	for {
		m := t.max.Load()
		if n <= m || t.max.CompareAndSwap(m, n) {
			return
		}
	}
}

func (t *tracker) leave() { t.cur.Add(-1) }

func TestMap_PreservesInputOrder(t *testing.T) {
	items := []int{5, 1, 4, 2, 3}

	out, err := Map(context.Background(), 2, items, func(ctx context.Context, n int) (int, error) {
		// los más grandes terminan más tarde; el orden de salida no debe cambiar
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * 10, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{50, 10, 40, 20, 30}, out)
}

func TestMap_NeverExceedsLimit(t *testing.T) {
	var tr tracker
	items := make([]int, 40)

	_, err := Map(context.Background(), 4, items, func(ctx context.Context, _ int) (struct{}, error) {
		tr.enter()
		defer tr.leave()
		time.Sleep(2 * time.Millisecond)
		return struct{}{}, nil
	})

	require.NoError(t, err)
	assert.LessOrEqual(t, tr.max.Load(), int64(4))
	assert.GreaterOrEqual(t, tr.max.Load(), int64(1))
}

func TestMap_FailFastCancelsSiblings(t *testing.T) {
	boom := errors.New("boom")
	var canceled atomic.Int64

	_, err := Map(context.Background(), 0, []int{1, 2, 3, 0}, func(ctx context.Context, n int) (int, error) {
		if n == 0 {
			return 0, boom
		}
		select {
		case <-ctx.Done():
			canceled.Add(1)
			return 0, ctx.Err()
		case <-time.After(5 * time.Second):
			return n, nil
		}
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, int64(3), canceled.Load())
}

func TestMap_EmptyInput(t *testing.T) {
	out, err := Map(context.Background(), 3, []string(nil), func(ctx context.Context, s string) (int, error) {
		t.Fatalf("fn must not be called")
		return 0, nil
	})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestLimiter_SharedAcrossNestedMaps(t *testing.T) {
	const ceiling = 3

	lim, err := NewLimiter(ceiling)
	require.NoError(t, err)

	var tr tracker
	outer := make([]int, 8)

	_, err = Map(context.Background(), 0, outer, func(ctx context.Context, _ int) ([]int, error) {
		inner := []int{1, 2, 3, 4, 5}
		return Map(ctx, 0, inner, func(ctx context.Context, n int) (int, error) {
			return Call(ctx, lim, func(ctx context.Context) (int, error) {
				tr.enter()
				defer tr.leave()
				time.Sleep(time.Millisecond)
				return n, nil
			})
		})
	})

	require.NoError(t, err)
	assert.LessOrEqual(t, tr.max.Load(), int64(ceiling))
	assert.LessOrEqual(t, lim.Peak(), int64(ceiling))
	assert.Equal(t, ceiling, lim.Size())
}

type countingGauge struct{ inc, dec atomic.Int64 }

func (g *countingGauge) Inc() { g.inc.Add(1) }
func (g *countingGauge) Dec() { g.dec.Add(1) }

func TestLimiter_GaugeBalanced(t *testing.T) {
	g := &countingGauge{}
	lim, err := NewLimiter(2)
	require.NoError(t, err)
	lim.WithGauge(g)

	for i := 0; i < 5; i++ {
		_ = lim.Do(context.Background(), func(ctx context.Context) error { return nil })
	}
	assert.Equal(t, int64(5), g.inc.Load())
	assert.Equal(t, int64(5), g.dec.Load())
}

func TestLimiter_AcquireRespectsContext(t *testing.T) {
	lim, err := NewLimiter(1)
	require.NoError(t, err)

	release := make(chan struct{})
	go func() {
		_ = lim.Do(context.Background(), func(ctx context.Context) error {
			<-release
			return nil
		})
	}()
	defer close(release)

	// esperar a que la goroutine tome el único slot
	require.Eventually(t, func() bool { return lim.Peak() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err = lim.Do(ctx, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewLimiter_RejectsZero(t *testing.T) {
	_, err := NewLimiter(0)
	assert.Error(t, err)
}
