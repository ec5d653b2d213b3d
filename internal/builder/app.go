package builder

import (
	"context"

	"github.com/shouni/go-comic-movie-kit/internal/config"
	"github.com/shouni/go-comic-movie-kit/pkg/asset"
	"github.com/shouni/go-comic-movie-kit/pkg/generator"
	"github.com/shouni/go-comic-movie-kit/pkg/pacing"
	"github.com/shouni/go-comic-movie-kit/pkg/publisher"

	"github.com/shouni/go-remote-io/pkg/remoteio"
)

// AppContext は、アプリケーション実行に必要な共通コンテキストを保持する
// これを各Build関数に渡すことで、依存関係の注入を簡素化します。
type AppContext struct {
	Config    *config.Config          // Configは、設定ファイルと環境変数から読み込まれた設定です（APIキー、モデル名、待機時間など）。
	Options   config.GenerateOptions  // Optionsは、コマンドラインから渡された実行時の設定です。
	Store     *asset.Store            // Storeは、生成された画像や動画のバイト列を保持します。
	Reader    remoteio.InputReader    // Readerは、画像や録音などの入力を読み込む入力元です。
	Writer    remoteio.OutputWriter   // Writerは、生成された内容を保存するための出力先です。
	Generator *generator.Generator    // Generatorは、プロバイダの上に載る生成パイプラインです。
	Sleeper   pacing.Sleeper          // Sleeperは、生成の間の待機に使います。nil なら実時間で待つのだ。
	runner    publisher.CommandRunner // runner はムービー作成で呼ぶ外部コマンド。nil なら ffmpeg を直接呼ぶのだ
	remote    *RemoteIO               // remote はクラウドのクライアントを持つ場合があるので Close で解放するのだ
}

// NewAppContext は AppContext の新しいインスタンスを生成する
func NewAppContext(
	cfg *config.Config,
	store *asset.Store,
	reader remoteio.InputReader,
	writer remoteio.OutputWriter,
	gen *generator.Generator,
	sleeper pacing.Sleeper,
) AppContext {
	return AppContext{
		Config:    cfg,
		Options:   cfg.Options,
		Store:     store,
		Reader:    reader,
		Writer:    writer,
		Generator: gen,
		Sleeper:   sleeper,
	}
}

// ReadAll は Reader から path の内容をすべて読み込むのだ。
func (a *AppContext) ReadAll(ctx context.Context, path string) ([]byte, error) {
	return (&RemoteIO{Reader: a.Reader}).ReadAll(ctx, path)
}

// Close は BuildAppContext が用意したストレージクライアントを解放するのだ。
func (a *AppContext) Close() error {
	return a.remote.Close()
}
