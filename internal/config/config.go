package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	kitconfig "github.com/shouni/go-comic-movie-kit/pkg/config"

	"github.com/pelletier/go-toml/v2"
	"github.com/shouni/go-utils/envutil"
)

// デフォルト値の定義なのだ
const (
	DefaultConfigFile = "comic-movie.toml" // カレントディレクトリにあれば自動で読むのだ
	DefaultOutputDir  = "output"
)

//go:embed sample_config.toml
var sampleConfig string

// SampleConfig は設定ファイルのひな形を返すのだ。
func SampleConfig() string {
	return sampleConfig
}

// Models は TOML の [models] セクションなのだ。
type Models struct {
	Text  string `toml:"text"`
	Image string `toml:"image"`
	Video string `toml:"video"`
}

// Pacing は TOML の [pacing] セクションなのだ。時間は "5s" のような文字列で書くのだ。
type Pacing struct {
	RequestInterval string `toml:"request_interval"`
	PageImageDelay  string `toml:"page_image_delay"`
	VideoDelay      string `toml:"video_delay"`
	PollInterval    string `toml:"poll_interval"`
	VideoTimeout    string `toml:"video_timeout"`
}

// fileConfig は設定ファイルの形なのだ。
type fileConfig struct {
	OutputDir string `toml:"output_dir"`
	Models    Models `toml:"models"`
	Pacing    Pacing `toml:"pacing"`
}

// Config はアプリケーション全体の環境設定を保持する構造体なのだ。
type Config struct {
	GeminiAPIKey string
	OutputDir    string
	Kit          kitconfig.Config

	// SourcePath は読み込んだ設定ファイルのパスなのだ。読んでいなければ空なのだ。
	SourcePath string

	Options GenerateOptions
}

// LoadConfig はデフォルト値、設定ファイル、環境変数の順に重ねて設定を作るのだ！
// path が空なら DefaultConfigFile があるときだけ読むのだ。
func LoadConfig(path string) (*Config, error) {
	// 1. デフォルト値
	cfg := &Config{
		OutputDir: DefaultOutputDir,
		Kit:       kitconfig.DefaultConfig(),
	}

	// 2. 設定ファイル
	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, err
	}
	if exists {
		if err := cfg.applyFile(resolved); err != nil {
			return nil, err
		}
		cfg.SourcePath = resolved
	}

	// 3. 環境変数
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Kit.Validate(); err != nil {
		return nil, fmt.Errorf("設定が不正なのだ: %w", err)
	}
	return cfg, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return "", false, nil
		}
		return "", false, fmt.Errorf("設定ファイルを確認できませんでした %s: %w", path, err)
	}
	return path, true, nil
}

func (c *Config) applyFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("設定ファイルを開けませんでした: %w", err)
	}
	defer file.Close()

	var fc fileConfig
	if err := toml.NewDecoder(file).DisallowUnknownFields().Decode(&fc); err != nil {
		return fmt.Errorf("設定ファイルの解析に失敗しました: %w", err)
	}

	setString(&c.OutputDir, fc.OutputDir)
	setString(&c.Kit.TextModel, fc.Models.Text)
	setString(&c.Kit.ImageModel, fc.Models.Image)
	setString(&c.Kit.VideoModel, fc.Models.Video)

	durations := []struct {
		key  string
		raw  string
		dest *time.Duration
	}{
		{"pacing.request_interval", fc.Pacing.RequestInterval, &c.Kit.RequestInterval},
		{"pacing.page_image_delay", fc.Pacing.PageImageDelay, &c.Kit.PageImageDelay},
		{"pacing.video_delay", fc.Pacing.VideoDelay, &c.Kit.VideoDelay},
		{"pacing.poll_interval", fc.Pacing.PollInterval, &c.Kit.PollInterval},
		{"pacing.video_timeout", fc.Pacing.VideoTimeout, &c.Kit.VideoTimeout},
	}
	for _, d := range durations {
		if err := setDuration(d.dest, d.key, d.raw); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.GeminiAPIKey = envutil.GetEnv("GEMINI_API_KEY", c.GeminiAPIKey)
	c.OutputDir = envutil.GetEnv("OUTPUT_DIR", c.OutputDir)
	c.Kit.TextModel = envutil.GetEnv("GEMINI_MODEL", c.Kit.TextModel)
	c.Kit.ImageModel = envutil.GetEnv("IMAGE_GEMINI_MODEL", c.Kit.ImageModel)
	c.Kit.VideoModel = envutil.GetEnv("VIDEO_GEMINI_MODEL", c.Kit.VideoModel)
	c.Kit.GeminiAPIKey = c.GeminiAPIKey

	durations := []struct {
		key  string
		dest *time.Duration
	}{
		{"REQUEST_INTERVAL", &c.Kit.RequestInterval},
		{"PAGE_IMAGE_DELAY", &c.Kit.PageImageDelay},
		{"VIDEO_DELAY", &c.Kit.VideoDelay},
		{"POLL_INTERVAL", &c.Kit.PollInterval},
		{"VIDEO_TIMEOUT", &c.Kit.VideoTimeout},
	}
	for _, d := range durations {
		if err := setDuration(d.dest, d.key, envutil.GetEnv(d.key, "")); err != nil {
			return err
		}
	}
	return nil
}

// ApplyOptions は CLI フラグで指定された値を最後に重ねるのだ。
func (c *Config) ApplyOptions(opts GenerateOptions) {
	setString(&c.OutputDir, opts.OutputDir)
	setString(&c.Kit.TextModel, opts.TextModel)
	setString(&c.Kit.ImageModel, opts.ImageModel)
	setString(&c.Kit.VideoModel, opts.VideoModel)
	if opts.VideoTimeout > 0 {
		c.Kit.VideoTimeout = opts.VideoTimeout
	}
	c.Options = opts
}

func setString(dest *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dest = v
	}
}

func setDuration(dest *time.Duration, key, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s の時間指定が不正なのだ (%q): %w", key, raw, err)
	}
	*dest = d
	return nil
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータなのだ。
type GenerateOptions struct {
	// アイデア入力関連
	Idea      string // --idea
	ImageFile string // --image
	AudioFile string // --audio

	// 出力関連
	OutputDir string // --output-dir
	Movie     bool   // --movie

	// AI挙動設定
	TextModel  string // --model
	ImageModel string // --image-model
	VideoModel string // --video-model

	// 実行制御
	VideoTimeout time.Duration // --video-timeout
	AutoApprove  bool          // --yes: 確認をすべて承認して進めるのだ
	Animate      []int         // --animate: 動画化するページ番号（1 始まり）
}
