package config

import (
	"fmt"
	"time"
)

// デフォルト値の定義
const (
	DefaultTextModel       = "gemini-2.5-flash"
	DefaultImageModel      = "imagen-4.0-generate-001"
	DefaultVideoModel      = "veo-2.0-generate-001"
	DefaultTemperature     = float32(0.7)
	DefaultRequestInterval = 500 * time.Millisecond
	DefaultPageImageDelay  = 5 * time.Second
	DefaultVideoDelay      = 60 * time.Second
	DefaultPollInterval    = 10 * time.Second
	DefaultVideoTimeout    = 10 * time.Minute
	DefaultFinalizeDelay   = 3 * time.Second
)

// Config は Controller と Generator を動作させるための基本設定です。
type Config struct {
	// --- AI Model Settings ---
	TextModel  string // 説明文・会話・ページ本文・文字起こし
	ImageModel string // 設定画・ページ画像
	VideoModel string // ページ動画

	// --- Google AI (Gemini API) Settings ---
	GeminiAPIKey string
	Temperature  float32

	// --- Pacing ---
	RequestInterval time.Duration // プロバイダへのリクエスト間隔の下限
	PageImageDelay  time.Duration // ページ画像の生成の間
	VideoDelay      time.Duration // 動画生成の間
	PollInterval    time.Duration // 動画ジョブの状態確認の間隔
	VideoTimeout    time.Duration // 1本の動画を待つ上限。0 なら上限なし
	FinalizeDelay   time.Duration
}

// DefaultConfig は推奨されるデフォルト設定を返すヘルパー関数です。
func DefaultConfig() Config {
	return Config{
		TextModel:       DefaultTextModel,
		ImageModel:      DefaultImageModel,
		VideoModel:      DefaultVideoModel,
		Temperature:     DefaultTemperature,
		RequestInterval: DefaultRequestInterval,
		PageImageDelay:  DefaultPageImageDelay,
		VideoDelay:      DefaultVideoDelay,
		PollInterval:    DefaultPollInterval,
		VideoTimeout:    DefaultVideoTimeout,
		FinalizeDelay:   DefaultFinalizeDelay,
	}
}

// Validate は必須のモデル名と待機時間の範囲を検証します。
func (c Config) Validate() error {
	if c.TextModel == "" || c.ImageModel == "" || c.VideoModel == "" {
		return fmt.Errorf("テキスト・画像・動画のモデル名は必須です")
	}
	for name, d := range map[string]time.Duration{
		"RequestInterval": c.RequestInterval,
		"PageImageDelay":  c.PageImageDelay,
		"VideoDelay":      c.VideoDelay,
		"PollInterval":    c.PollInterval,
		"VideoTimeout":    c.VideoTimeout,
		"FinalizeDelay":   c.FinalizeDelay,
	} {
		if d < 0 {
			return fmt.Errorf("%s に負の値は指定できません: %s", name, d)
		}
	}
	return nil
}
