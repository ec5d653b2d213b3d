// Package pacing は、クォータ制限のある呼び出しの間に挟む固定の待機を提供します。
package pacing

import (
	"context"
	"time"
)

const (
	// PageImageDelay はページ画像の生成呼び出しの間に挟む待機時間です。
	PageImageDelay = 5 * time.Second
	// VideoDelay は動画生成呼び出しの間に挟む待機時間です。
	VideoDelay = 60 * time.Second
)

// Sleeper は指定時間だけ呼び出し元を停止させます。
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc は関数を Sleeper として扱うためのアダプタです。
type SleeperFunc func(ctx context.Context, d time.Duration) error

// Sleep は f(ctx, d) を呼び出します。
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// TimerSleeper は実時間で待機する Sleeper です。
type TimerSleeper struct{}

// Sleep は d が経過するか ctx がキャンセルされるまで待機します。
func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	return Pause(ctx, d)
}

// Pause は d だけ待機します。d が 0 以下なら即座に戻ります。
// 待機中に ctx がキャンセルされた場合は ctx.Err() を返します。
func Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Policy はバッチ内の各要素の間に挟む待機の方針です。
type Policy struct {
	Delay   time.Duration
	Sleeper Sleeper
}

// NewPolicy は実時間の Sleeper を使う Policy を生成します。
func NewPolicy(delay time.Duration) Policy {
	return Policy{Delay: delay, Sleeper: TimerSleeper{}}
}

// After は index 番目（0 始まり）の要素が終わった後に待機します。
// total 個のうち最後の要素の後では待機しません。待機した場合は true を返します。
func (p Policy) After(ctx context.Context, index, total int) (bool, error) {
	if index >= total-1 {
		return false, nil
	}
	s := p.Sleeper
	if s == nil {
		s = TimerSleeper{}
	}
	if err := s.Sleep(ctx, p.Delay); err != nil {
		return false, err
	}
	return true, nil
}
