package config

import (
	"testing"
	"time"
)

func TestDefaultConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig は有効であるべきです: %v", err)
	}
	if cfg.PageImageDelay != 5*time.Second || cfg.VideoDelay != 60*time.Second {
		t.Errorf("待機時間のデフォルトが想定と異なります: %s, %s", cfg.PageImageDelay, cfg.VideoDelay)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"動画モデルなし", func(c *Config) { c.VideoModel = "" }},
		{"負のポーリング間隔", func(c *Config) { c.PollInterval = -time.Second }},
		{"負のタイムアウト", func(c *Config) { c.VideoTimeout = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("エラーが返されるべきです")
			}
		})
	}
}
