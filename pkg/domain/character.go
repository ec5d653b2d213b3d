package domain

import (
	"fmt"
	"strings"
)

// Character は生成された主人公の詳細な説明と設定画を保持します。
// 「やり直し」では部分的に更新せず、丸ごと置き換えます。
type Character struct {
	Description string   `json:"detailedDescription"`
	Sheet       Artifact `json:"imageArtifact"`
}

// Validate はキャラクターが次の工程に進める状態かを検証します。
func (c Character) Validate() error {
	if strings.TrimSpace(c.Description) == "" {
		return fmt.Errorf("キャラクターの説明が空です")
	}
	if c.Sheet.IsZero() {
		return fmt.Errorf("キャラクターの設定画がありません")
	}
	return nil
}

// String はログ出力向けに説明の冒頭を返します。
func (c Character) String() string {
	const maxLen = 48
	desc := []rune(strings.TrimSpace(c.Description))
	if len(desc) > maxLen {
		return string(desc[:maxLen]) + "..."
	}
	return string(desc)
}
