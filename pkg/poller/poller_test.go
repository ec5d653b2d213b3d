package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shouni/go-comic-movie-kit/pkg/apperr"
	"github.com/shouni/go-comic-movie-kit/pkg/pacing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedChecker struct {
	responses []Job
	err       error
	calls     int
}

func (s *scriptedChecker) CheckJob(_ context.Context, job Job) (Job, error) {
	if s.err != nil {
		return job, s.err
	}
	r := s.responses[s.calls]
	s.calls++
	return r, nil
}

type stubFetcher struct {
	data []byte
	err  error
	uri  string
}

func (f *stubFetcher) Fetch(_ context.Context, uri string) ([]byte, string, error) {
	f.uri = uri
	return f.data, "video/mp4", f.err
}

func recordSleeps(calls *[]time.Duration) pacing.Sleeper {
	return pacing.SleeperFunc(func(_ context.Context, d time.Duration) error {
		*calls = append(*calls, d)
		return nil
	})
}

func TestPoller_Run(t *testing.T) {
	t.Run("完了まで間隔を空けて確認し、成果物を取得すること", func(t *testing.T) {
		var sleeps []time.Duration
		checker := &scriptedChecker{responses: []Job{
			{ID: "op-1"},
			{ID: "op-1"},
			{ID: "op-1", Done: true, ResultURI: "https://example.com/v.mp4"},
		}}
		fetcher := &stubFetcher{data: []byte("mp4")}
		p, err := New(checker, fetcher, WithSleeper(recordSleeps(&sleeps)))
		require.NoError(t, err)

		data, mime, err := p.Run(context.Background(), Job{ID: "op-1"})

		require.NoError(t, err)
		assert.Equal(t, []byte("mp4"), data)
		assert.Equal(t, "video/mp4", mime)
		assert.Equal(t, 3, checker.calls)
		assert.Equal(t, []time.Duration{DefaultInterval, DefaultInterval, DefaultInterval}, sleeps)
		assert.Equal(t, "https://example.com/v.mp4", fetcher.uri)
	})

	t.Run("所在がなければ ResultMissing になること", func(t *testing.T) {
		var sleeps []time.Duration
		checker := &scriptedChecker{responses: []Job{{ID: "op", Done: true}}}
		p, err := New(checker, &stubFetcher{}, WithSleeper(recordSleeps(&sleeps)))
		require.NoError(t, err)

		_, _, err = p.Run(context.Background(), Job{ID: "op"})
		assert.ErrorIs(t, err, apperr.ErrResultMissing)
	})

	t.Run("取得失敗は Fetch になること", func(t *testing.T) {
		var sleeps []time.Duration
		checker := &scriptedChecker{responses: []Job{{Done: true, ResultURI: "u"}}}
		p, err := New(checker, &stubFetcher{err: errors.New("403")}, WithSleeper(recordSleeps(&sleeps)))
		require.NoError(t, err)

		_, _, err = p.Run(context.Background(), Job{})
		assert.ErrorIs(t, err, apperr.ErrFetch)
	})

	t.Run("プロバイダの失敗報告は Provider になること", func(t *testing.T) {
		var sleeps []time.Duration
		checker := &scriptedChecker{responses: []Job{{Done: true, Failure: "safety filter"}}}
		p, err := New(checker, &stubFetcher{}, WithSleeper(recordSleeps(&sleeps)))
		require.NoError(t, err)

		_, _, err = p.Run(context.Background(), Job{})
		assert.ErrorIs(t, err, apperr.ErrProvider)
		assert.Equal(t, "safety filter", apperr.Classify(err))
	})

	t.Run("状態確認の失敗は Provider になること", func(t *testing.T) {
		var sleeps []time.Duration
		p, err := New(&scriptedChecker{err: errors.New("503")}, &stubFetcher{}, WithSleeper(recordSleeps(&sleeps)))
		require.NoError(t, err)

		_, _, err = p.Run(context.Background(), Job{})
		assert.ErrorIs(t, err, apperr.ErrProvider)
	})

	t.Run("ctx のキャンセルで待機を打ち切ること", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		p, err := New(&scriptedChecker{}, &stubFetcher{}, WithInterval(time.Hour))
		require.NoError(t, err)

		_, _, err = p.Run(ctx, Job{ID: "op"})
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, apperr.ErrProvider)
	})

	t.Run("期限切れは利用者向けの Provider エラーになること", func(t *testing.T) {
		ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
		defer cancel()
		p, err := New(&scriptedChecker{}, &stubFetcher{}, WithInterval(time.Hour))
		require.NoError(t, err)

		_, _, err = p.Run(ctx, Job{ID: "operations/video-1"})
		assert.ErrorIs(t, err, apperr.ErrProvider)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, MsgTimedOut, apperr.Classify(err))
	})

	t.Run("状態確認中の期限切れも同じ扱いになること", func(t *testing.T) {
		var sleeps []time.Duration
		checker := &scriptedChecker{err: context.DeadlineExceeded}
		p, err := New(checker, &stubFetcher{}, WithSleeper(recordSleeps(&sleeps)))
		require.NoError(t, err)

		_, _, err = p.Run(context.Background(), Job{ID: "op"})
		assert.ErrorIs(t, err, apperr.ErrProvider)
		assert.Equal(t, MsgTimedOut, apperr.Classify(err))
	})
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(nil, &stubFetcher{})
	assert.Error(t, err)
	_, err = New(&scriptedChecker{}, nil)
	assert.Error(t, err)
}
