package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/shouni/go-comic-movie-kit/internal/config"

	"github.com/joho/godotenv"
	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"
)

const (
	appName = "comic-movie"

	// annotationOffline が付いたコマンドは設定と API キーを必要としないのだ。
	annotationOffline = "offline"
)

var (
	// opts は、すべてのサブコマンドで共有する CLI フラグの値なのだ。
	opts config.GenerateOptions

	logLevel  string
	logFormat string

	// cfg は preRunAppE で読み込まれた設定なのだ。
	cfg *config.Config
)

// newRootCmd は、clibase の共通フラグ（--verbose, --config）を持つルートコマンドにサブコマンドを組み立てるのだ。
func newRootCmd() *cobra.Command {
	rootCmd := clibase.NewRootCmd(appName, addAppFlags, preRunAppE)
	rootCmd.Short = "アイデアからコミックブック・ムービーを作るのだ。"
	rootCmd.Long = `ひとつのアイデア（テキスト、画像、録音）から、キャラクター、物語、16 ページのコミック、
4 本のアニメーションまでを順番に作り上げるのだ。`
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.AddCommand(newCreateCmd(), newCharacterCmd(), newTranscribeCmd(), newPremiereCmd(), newConfigCmd())
	return rootCmd
}

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	// --- ログ（設定ファイルは clibase の --config で指定するのだ。省略時は comic-movie.toml があれば読むのだ） ---
	flags.StringVar(&logLevel, "log-level", "info", "ログレベル（debug, info, warn, error）なのだ。--verbose なら debug になるのだ。")
	flags.StringVar(&logFormat, "log-format", "text", "ログ形式（text, json）なのだ。")

	// --- 生成結果の出力設定 ---
	flags.StringVarP(&opts.OutputDir, "output-dir", "o", "", "成果物を保存するディレクトリなのだ。")

	// --- AIモデル・挙動設定 ---
	flags.StringVar(&opts.TextModel, "model", "", "テキスト生成に使う Gemini モデル名なのだ。")
	flags.StringVar(&opts.ImageModel, "image-model", "", "画像生成に使うモデル名なのだ。")
	flags.StringVar(&opts.VideoModel, "video-model", "", "動画生成に使うモデル名なのだ。")
	flags.DurationVar(&opts.VideoTimeout, "video-timeout", 0, "1本の動画を待つ上限なのだ。")
}

// addIdeaFlags は、アイデアの入力を受け取るフラグを定義するのだ。
func addIdeaFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&opts.Idea, "idea", "i", "", "物語の種になるアイデアなのだ。")
	cmd.Flags().StringVar(&opts.ImageFile, "image", "", "アイデアにする画像ファイルなのだ。")
	cmd.Flags().StringVar(&opts.AudioFile, "audio", "", "アイデアを話した録音ファイルなのだ。")
}

// preRunAppE は、コマンド実行前にログと設定を準備し、必須チェックを行うのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	// .env があれば読むのだ。無くても困らないのだ。
	_ = godotenv.Load()

	level := logLevel
	if clibase.Flags.Verbose {
		level = "debug"
	}
	logger, err := newLogger(cmd.ErrOrStderr(), level, logFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if cmd.Annotations[annotationOffline] == "true" {
		return nil
	}

	loaded, err := config.LoadConfig(clibase.Flags.ConfigFile)
	if err != nil {
		return fmt.Errorf("設定の読み込みに失敗したのだ: %w", err)
	}
	loaded.ApplyOptions(opts)

	// Gemini APIを利用するため、APIキーの存在チェックは欠かせないのだ！
	if loaded.GeminiAPIKey == "" {
		return fmt.Errorf("エラー: 環境変数 GEMINI_API_KEY が設定されていません。Gemini APIの利用には必須なのだ")
	}
	if err := loaded.Kit.Validate(); err != nil {
		return fmt.Errorf("フラグの指定が不正なのだ: %w", err)
	}

	cfg = loaded
	slog.Debug("設定を読み込んだのだ", "source", loaded.SourcePath, "output_dir", loaded.OutputDir)
	return nil
}

// newLogger は、レベルと形式を指定して slog のロガーを作るのだ。
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("ログレベルが不正なのだ (%q): %w", level, err)
	}
	handlerOpts := &slog.HandlerOptions{Level: lvl, AddSource: lvl <= slog.LevelDebug}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("ログ形式が不正なのだ: %q", format)
	}
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute(ctx context.Context) int {
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("コマンドの実行に失敗したのだ", "error", err)
		return 1
	}
	return 0
}
