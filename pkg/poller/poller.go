// Package poller は、非同期の動画生成ジョブが完了するまで状態確認を繰り返し、成果物を取得します。
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-comic-movie-kit/pkg/apperr"
	"github.com/shouni/go-comic-movie-kit/pkg/pacing"
)

// DefaultInterval はジョブの状態確認の間隔です。
const DefaultInterval = 10 * time.Second

const (
	opPoll = "pollVideoJob"

	// MsgTimedOut は待機の期限切れを表す利用者向けメッセージです。
	MsgTimedOut = "Video generation timed out. Please try again."
)

// Job は1回の動画生成リクエストの間だけ存在するジョブの状態です。
type Job struct {
	// ID はプロバイダ側のジョブ識別子です。
	ID string
	// Done はプロバイダが完了を報告したかどうかです。
	Done bool
	// ResultURI は完了時に得られる成果物のダウンロード先です。
	ResultURI string
	// Failure はプロバイダがジョブの失敗を報告した場合のメッセージです。
	Failure string
	// Handle はアダプタ固有のオペレーション値です。
	Handle any
}

// Checker はジョブの最新状態を問い合わせます。
type Checker interface {
	CheckJob(ctx context.Context, job Job) (Job, error)
}

// Fetcher は成果物の所在からバイト列を取得します。認証情報の付与は実装側の責務です。
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, string, error)
}

// Poller は固定間隔でジョブを確認し、完了後に成果物を取得します。
// 試行回数の上限は持たないため、打ち切りは呼び出し元の ctx で行います。
type Poller struct {
	checker  Checker
	fetcher  Fetcher
	interval time.Duration
	sleeper  pacing.Sleeper
}

// Option は Poller の設定を変更します。
type Option func(*Poller)

// WithInterval は状態確認の間隔を設定します。
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithSleeper は待機に使う Sleeper を差し替えます。
func WithSleeper(s pacing.Sleeper) Option {
	return func(p *Poller) {
		if s != nil {
			p.sleeper = s
		}
	}
}

// New は Poller を生成します。
func New(checker Checker, fetcher Fetcher, opts ...Option) (*Poller, error) {
	if checker == nil {
		return nil, fmt.Errorf("checker は必須です")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher は必須です")
	}
	p := &Poller{
		checker:  checker,
		fetcher:  fetcher,
		interval: DefaultInterval,
		sleeper:  pacing.TimerSleeper{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Wait はジョブが完了を報告するまで「待機してから確認」を繰り返します。
func (p *Poller) Wait(ctx context.Context, job Job) (Job, error) {
	attempts := 0
	for !job.Done {
		if err := p.sleeper.Sleep(ctx, p.interval); err != nil {
			return job, interrupted(job, err)
		}
		attempts++

		next, err := p.checker.CheckJob(ctx, job)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return job, interrupted(job, err)
			}
			return job, apperr.Provider(opPoll, "failed to check the video job status", err)
		}
		job = next
		slog.DebugContext(ctx, "動画ジョブの状態を確認しました", "job", job.ID, "attempt", attempts, "done", job.Done)
	}
	return job, nil
}

// interrupted は待機の中断を表すエラーを返します。
// 期限切れは利用者向けメッセージを持つ ErrProvider、それ以外の中断は原因をそのまま包みます。
func interrupted(job Job, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Provider(opPoll, MsgTimedOut, err)
	}
	return fmt.Errorf("ジョブ %s の待機が中断されました: %w", job.ID, err)
}

// Run はジョブの完了を待ち、成果物のバイト列と MIME タイプを返します。
func (p *Poller) Run(ctx context.Context, job Job) ([]byte, string, error) {
	done, err := p.Wait(ctx, job)
	if err != nil {
		return nil, "", err
	}

	// 1. プロバイダ側の失敗
	if done.Failure != "" {
		return nil, "", apperr.Provider(opPoll, done.Failure, nil)
	}

	// 2. 結果の所在
	if done.ResultURI == "" {
		return nil, "", apperr.ResultMissing(opPoll, "Video generation completed, but no download link was found.")
	}

	// 3. 成果物の取得
	data, mimeType, err := p.fetcher.Fetch(ctx, done.ResultURI)
	if err != nil {
		return nil, "", apperr.Fetch(opPoll, "Failed to download the generated video.", err)
	}
	if len(data) == 0 {
		return nil, "", apperr.Fetch(opPoll, "The generated video was empty.", nil)
	}
	return data, mimeType, nil
}
