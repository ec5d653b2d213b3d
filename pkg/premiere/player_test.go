package premiere

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shouni/go-comic-movie-kit/pkg/domain"
	"github.com/shouni/go-comic-movie-kit/pkg/pacing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	kind string
	page int
	text string
	gap  time.Duration
}

type recorder struct {
	mu     sync.Mutex
	events []event
	onPage func(int)
	err    error
}

func (r *recorder) Speak(_ context.Context, pageNumber int, text string) error {
	r.mu.Lock()
	r.events = append(r.events, event{kind: "speak", page: pageNumber, text: text})
	hook := r.onPage
	r.mu.Unlock()
	if hook != nil {
		hook(pageNumber)
	}
	return r.err
}

func (r *recorder) sleeper() pacing.Sleeper {
	return pacing.SleeperFunc(func(ctx context.Context, d time.Duration) error {
		r.mu.Lock()
		r.events = append(r.events, event{kind: "gap", gap: d})
		r.mu.Unlock()
		return ctx.Err()
	})
}

func samplePages() domain.Pages {
	return domain.Pages{
		{PageNumber: 2, Text: "Second text", NarrationScript: "Second narration"},
		{PageNumber: 1, Text: "First text", NarrationScript: "First narration"},
		{PageNumber: 3, Text: "Third text"},
	}
}

func TestPlayer_Play(t *testing.T) {
	rec := &recorder{}
	var hooked []int
	p, err := NewPlayer(rec, WithSleeper(rec.sleeper()), WithPageHook(func(pg domain.Page) {
		hooked = append(hooked, pg.PageNumber)
	}))
	require.NoError(t, err)

	require.NoError(t, p.Play(context.Background(), samplePages()))

	assert.Equal(t, []event{
		{kind: "speak", page: 1, text: "First narration"},
		{kind: "gap", gap: time.Second},
		{kind: "speak", page: 2, text: "Second narration"},
		{kind: "gap", gap: time.Second},
		{kind: "speak", page: 3, text: "Third text"},
	}, rec.events)
	assert.Equal(t, []int{1, 2, 3}, hooked)
}

func TestPlayer_Stop(t *testing.T) {
	rec := &recorder{}
	p, err := NewPlayer(rec, WithSleeper(rec.sleeper()))
	require.NoError(t, err)
	rec.onPage = func(page int) {
		if page == 2 {
			p.Stop()
		}
	}

	err = p.Play(context.Background(), samplePages())
	assert.ErrorIs(t, err, ErrStopped)

	var spoken []int
	for _, e := range rec.events {
		if e.kind == "speak" {
			spoken = append(spoken, e.page)
		}
	}
	assert.Equal(t, []int{1, 2}, spoken)

	// 停止後は再び再生できること
	rec.onPage = nil
	require.NoError(t, p.Play(context.Background(), samplePages()))
}

func TestPlayer_KeepsPageNumbers(t *testing.T) {
	rec := &recorder{}
	p, err := NewPlayer(rec, WithSleeper(rec.sleeper()), WithGap(0))
	require.NoError(t, err)

	pages := domain.Pages{
		{PageNumber: 9, NarrationScript: "Nine"},
		{PageNumber: 4, NarrationScript: "Four"},
	}
	require.NoError(t, p.Play(context.Background(), pages))

	var spoken []int
	for _, e := range rec.events {
		if e.kind == "speak" {
			spoken = append(spoken, e.page)
		}
	}
	assert.Equal(t, []int{4, 9}, spoken)
	assert.Equal(t, 9, pages[0].PageNumber)
}

func TestPlayer_ParentCancel(t *testing.T) {
	rec := &recorder{}
	p, err := NewPlayer(rec, WithSleeper(rec.sleeper()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	rec.onPage = func(page int) {
		if page == 1 {
			cancel()
		}
	}

	err = p.Play(ctx, samplePages())
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrStopped)
}

func TestPlayer_NarratorError(t *testing.T) {
	rec := &recorder{err: errors.New("no voice")}
	p, err := NewPlayer(rec, WithSleeper(rec.sleeper()))
	require.NoError(t, err)

	err = p.Play(context.Background(), samplePages())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrStopped)
	assert.Len(t, rec.events, 1)
}

func TestNewPlayer_RequiresNarrator(t *testing.T) {
	_, err := NewPlayer(nil)
	assert.Error(t, err)
}

func TestTextNarrator(t *testing.T) {
	var buf bytes.Buffer
	n := TextNarrator{W: &buf}
	require.NoError(t, n.Speak(context.Background(), 7, "Nutty lands."))
	assert.Equal(t, "[Page 7] Nutty lands.\n", buf.String())
}
