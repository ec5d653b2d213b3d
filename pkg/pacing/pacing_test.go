package pacing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSleeper struct {
	calls []time.Duration
}

func (r *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	r.calls = append(r.calls, d)
	return nil
}

func TestPolicy_AfterSkipsLastItem(t *testing.T) {
	rec := &recordingSleeper{}
	p := Policy{Delay: PageImageDelay, Sleeper: rec}

	const total = 16
	paused := 0
	for i := 0; i < total; i++ {
		ok, err := p.After(context.Background(), i, total)
		require.NoError(t, err)
		if ok {
			paused++
		}
	}

	assert.Equal(t, total-1, paused)
	require.Len(t, rec.calls, total-1)
	for _, d := range rec.calls {
		assert.Equal(t, 5*time.Second, d)
	}
}

func TestPolicy_SingleItemNeverPauses(t *testing.T) {
	rec := &recordingSleeper{}
	p := Policy{Delay: VideoDelay, Sleeper: rec}

	ok, err := p.After(context.Background(), 0, 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, rec.calls)
}

func TestPause(t *testing.T) {
	t.Run("短い待機は完了すること", func(t *testing.T) {
		start := time.Now()
		require.NoError(t, Pause(context.Background(), 10*time.Millisecond))
		assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
	})

	t.Run("キャンセルされたら早期に戻ること", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Pause(ctx, time.Hour)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("0以下は即座に戻ること", func(t *testing.T) {
		assert.NoError(t, Pause(context.Background(), 0))
	})
}
