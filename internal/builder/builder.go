package builder

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/shouni/go-comic-movie-kit/internal/config"
	"github.com/shouni/go-comic-movie-kit/pkg/adapters"
	"github.com/shouni/go-comic-movie-kit/pkg/asset"
	"github.com/shouni/go-comic-movie-kit/pkg/generator"
	"github.com/shouni/go-comic-movie-kit/pkg/pacing"
	"github.com/shouni/go-comic-movie-kit/pkg/poller"
	"github.com/shouni/go-comic-movie-kit/pkg/premiere"
	"github.com/shouni/go-comic-movie-kit/pkg/publisher"
	"github.com/shouni/go-comic-movie-kit/pkg/workflow"

	"github.com/shouni/go-remote-io/pkg/remoteio"
	"google.golang.org/genai"
)

// Option は BuildAppContext の既定の依存関係を差し替えるのだ。
type Option func(*buildOptions)

type buildOptions struct {
	provider adapters.Provider
	fetcher  poller.Fetcher
	reader   remoteio.InputReader
	writer   remoteio.OutputWriter
	sleeper  pacing.Sleeper
	runner   publisher.CommandRunner
}

// WithProvider は Gemini の代わりに使うプロバイダを指定するのだ。
func WithProvider(p adapters.Provider, f poller.Fetcher) Option {
	return func(o *buildOptions) {
		o.provider = p
		o.fetcher = f
	}
}

// WithWriter は出力先を差し替えるのだ。
func WithWriter(w remoteio.OutputWriter) Option {
	return func(o *buildOptions) { o.writer = w }
}

// WithReader は画像や録音の読み込み元を差し替えるのだ。
func WithReader(r remoteio.InputReader) Option {
	return func(o *buildOptions) { o.reader = r }
}

// WithSleeper は生成の間の待機を差し替えるのだ。
func WithSleeper(s pacing.Sleeper) Option {
	return func(o *buildOptions) { o.sleeper = s }
}

// WithCommandRunner はムービー作成で呼ぶ ffmpeg を差し替えるのだ。
func WithCommandRunner(r publisher.CommandRunner) Option {
	return func(o *buildOptions) { o.runner = r }
}

// BuildAppContext は設定からプロバイダ、ストア、Generator を組み立てるのだ。
func BuildAppContext(ctx context.Context, cfg *config.Config, opts ...Option) (*AppContext, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config は必須です")
	}
	o := buildOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	// 1. プロバイダ
	if o.provider == nil {
		gemini, err := InitializeGemini(ctx, cfg)
		if err != nil {
			return nil, err
		}
		o.provider = gemini
		o.fetcher = adapters.NewHTTPFetcher(adapters.NewDownloadClient(adapters.DefaultFetchTimeout), cfg.GeminiAPIKey)
	}
	if o.fetcher == nil {
		return nil, fmt.Errorf("プロバイダを差し替えるときは fetcher も必須なのだ")
	}

	// 2. 入出力（ローカル / gs:// / s3://）
	var remote *RemoteIO
	if o.reader == nil || o.writer == nil {
		var err error
		remote, err = OpenRemoteIO(ctx, cfg.OutputDir, cfg.Options.ImageFile, cfg.Options.AudioFile)
		if err != nil {
			return nil, err
		}
		if o.reader == nil {
			o.reader = remote.Reader
		}
		if o.writer == nil {
			o.writer = remote.Writer
		}
	}

	// 3. 生成パイプライン
	store := asset.NewStore(0)
	gen, err := generator.New(generator.Args{
		Provider:       o.provider,
		Store:          store,
		Fetcher:        o.fetcher,
		Sleeper:        o.sleeper,
		PageImageDelay: cfg.Kit.PageImageDelay,
		PollInterval:   cfg.Kit.PollInterval,
		VideoTimeout:   cfg.Kit.VideoTimeout,
	})
	if err != nil {
		_ = remote.Close()
		return nil, fmt.Errorf("Generatorの初期化に失敗したのだ: %w", err)
	}

	appCtx := NewAppContext(cfg, store, o.reader, o.writer, gen, o.sleeper)
	appCtx.runner = o.runner
	appCtx.remote = remote
	return &appCtx, nil
}

// BuildController は6工程の Controller を構築するのだ。onChange には状態が変わるたびにスナップショットが届くのだ。
func BuildController(appCtx *AppContext, onChange func(workflow.Snapshot)) (*workflow.Controller, error) {
	ctrl, err := workflow.New(workflow.Args{
		Client:        appCtx.Generator,
		Sleeper:       appCtx.Sleeper,
		VideoDelay:    appCtx.Config.Kit.VideoDelay,
		FinalizeDelay: appCtx.Config.Kit.FinalizeDelay,
		OnChange:      onChange,
	})
	if err != nil {
		return nil, fmt.Errorf("Controllerの初期化に失敗したのだ: %w", err)
	}
	return ctrl, nil
}

// BuildPublisher は成果物の書き出しを担当する ComicPublisher を構築するのだ。
func BuildPublisher(appCtx *AppContext) (*publisher.ComicPublisher, error) {
	var showOpts []publisher.SlideshowOption
	if appCtx.runner != nil {
		showOpts = append(showOpts, publisher.WithCommandRunner(appCtx.runner))
	}
	show, err := publisher.NewSlideshow(appCtx.Store, showOpts...)
	if err != nil {
		return nil, fmt.Errorf("Slideshowの初期化に失敗したのだ: %w", err)
	}
	pub, err := publisher.NewComicPublisher(appCtx.Writer, appCtx.Store, show)
	if err != nil {
		return nil, fmt.Errorf("ComicPublisherの初期化に失敗したのだ: %w", err)
	}
	return pub, nil
}

// BuildPlayer は完成した本を w に読み上げるプレイヤーを構築するのだ。
func BuildPlayer(appCtx *AppContext, w io.Writer) (*premiere.Player, error) {
	var opts []premiere.Option
	if appCtx.Sleeper != nil {
		opts = append(opts, premiere.WithSleeper(appCtx.Sleeper))
	}
	return premiere.NewPlayer(premiere.TextNarrator{W: w}, opts...)
}

// InitializeGemini は Gemini アダプタを初期化するのだ。
func InitializeGemini(ctx context.Context, cfg *config.Config) (*adapters.Gemini, error) {
	client, err := adapters.NewGeminiClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}
	gemini, err := adapters.NewGemini(client, adapters.GeminiConfig{
		TextModel:       cfg.Kit.TextModel,
		ImageModel:      cfg.Kit.ImageModel,
		VideoModel:      cfg.Kit.VideoModel,
		RequestInterval: cfg.Kit.RequestInterval,
		Temperature:     genai.Ptr(cfg.Kit.Temperature),
	})
	if err != nil {
		return nil, fmt.Errorf("Geminiアダプタの初期化に失敗しました: %w", err)
	}
	slog.Debug("Geminiアダプタを初期化したのだ",
		"text_model", cfg.Kit.TextModel,
		"image_model", cfg.Kit.ImageModel,
		"video_model", cfg.Kit.VideoModel,
	)
	return gemini, nil
}
