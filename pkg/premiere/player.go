// Package premiere は完成したページを順番に読み上げる再生機能を提供します。
package premiere

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shouni/go-comic-movie-kit/pkg/domain"
	"github.com/shouni/go-comic-movie-kit/pkg/pacing"
)

// DefaultGap はページとページの読み上げの間に挟む間隔です。
const DefaultGap = time.Second

// ErrStopped は Stop によって再生が中断されたことを表します。
var ErrStopped = errors.New("playback stopped")

// Narrator は1ページ分の文章を読み上げます。読み上げが終わるまで戻りません。
type Narrator interface {
	Speak(ctx context.Context, pageNumber int, text string) error
}

// Player はページを1つずつ読み上げ、間に固定の間隔を挟みます。
type Player struct {
	narrator Narrator
	sleeper  pacing.Sleeper
	gap      time.Duration
	onPage   func(domain.Page)

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
}

// Option は Player の設定を変更します。
type Option func(*Player)

// WithSleeper は間隔の待機に使う Sleeper を差し替えます。
func WithSleeper(s pacing.Sleeper) Option {
	return func(p *Player) {
		if s != nil {
			p.sleeper = s
		}
	}
}

// WithGap はページ間の間隔を変更します。
func WithGap(d time.Duration) Option {
	return func(p *Player) {
		if d >= 0 {
			p.gap = d
		}
	}
}

// WithPageHook は各ページの読み上げ直前に呼ばれる関数を設定します。
func WithPageHook(fn func(domain.Page)) Option {
	return func(p *Player) {
		p.onPage = fn
	}
}

// NewPlayer は Player を生成します。
func NewPlayer(narrator Narrator, opts ...Option) (*Player, error) {
	if narrator == nil {
		return nil, fmt.Errorf("narrator は必須です")
	}
	p := &Player{
		narrator: narrator,
		sleeper:  pacing.TimerSleeper{},
		gap:      DefaultGap,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Play はページ番号順にナレーションを読み上げます。ナレーションが空のページは本文を読み上げます。
// ページ番号は振り直さずにそのまま読み上げます。
// Stop が呼ばれた場合は ErrStopped を返し、ctx のキャンセルではその原因をそのまま返します。
func (p *Player) Play(ctx context.Context, pages domain.Pages) error {
	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		cancel()
		return fmt.Errorf("すでに再生中です")
	}
	p.cancel = cancel
	p.stopped = false
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.cancel = nil
		p.mu.Unlock()
		cancel()
	}()

	ordered := pages.Clone()
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].PageNumber < ordered[j].PageNumber })
	for i, page := range ordered {
		if p.onPage != nil {
			p.onPage(page)
		}
		if err := p.narrator.Speak(ctx, page.PageNumber, narrationFor(page)); err != nil {
			return p.interrupted(fmt.Errorf("ページ %d の読み上げに失敗しました: %w", page.PageNumber, err))
		}
		if i == len(ordered)-1 {
			break
		}
		if err := p.sleeper.Sleep(ctx, p.gap); err != nil {
			return p.interrupted(err)
		}
	}
	slog.DebugContext(ctx, "再生が完了しました", "pages", len(ordered))
	return nil
}

// Stop は再生中であれば中断します。
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.stopped = true
		p.cancel()
	}
}

func (p *Player) interrupted(err error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrStopped
	}
	return err
}

func narrationFor(page domain.Page) string {
	if s := strings.TrimSpace(page.NarrationScript); s != "" {
		return s
	}
	return strings.TrimSpace(page.Text)
}

// TextNarrator は読み上げの代わりに文章を書き出す Narrator です。
type TextNarrator struct {
	W io.Writer
}

// Speak は "[Page n] text" の形式で1行書き出します。
func (n TextNarrator) Speak(ctx context.Context, pageNumber int, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(n.W, "[Page %d] %s\n", pageNumber, text)
	return err
}
