package domain

import (
	"fmt"
	"sort"
)

// Page はコミックの1ページ（1コマ）です。
// ページ番号は 1 始まりで連番、並び順は PageNumber の昇順と一致します。
type Page struct {
	PageNumber      int      `json:"pageNumber"`
	Chapter         int      `json:"chapter"`
	Text            string   `json:"text"`
	NarrationScript string   `json:"narrationScript"`
	SFX             string   `json:"sfx"`
	Image           Artifact `json:"image"`
	Animate         bool     `json:"animate"`
	Video           Artifact `json:"video"`
}

// Pages はページ列に対する補助メソッドを提供します。
type Pages []Page

// Clone はページ列のコピーを返します。
func (ps Pages) Clone() Pages {
	if ps == nil {
		return nil
	}
	return append(Pages(nil), ps...)
}

// Normalize は PageNumber で安定ソートした上で 1 から振り直し、欠けた章番号を補完します。
func (ps Pages) Normalize() Pages {
	out := ps.Clone()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PageNumber < out[j].PageNumber
	})
	for i := range out {
		out[i].PageNumber = i + 1
		if out[i].Chapter <= 0 {
			out[i].Chapter = i/PagesPerChapter + 1
		}
	}
	return out
}

// Validate はページ列がちょうど PageCount 枚で、番号が 1 からの連番であることを検証します。
func (ps Pages) Validate() error {
	if len(ps) != PageCount {
		return fmt.Errorf("ページ数が %d ではありません: %d", PageCount, len(ps))
	}
	for i, p := range ps {
		if p.PageNumber != i+1 {
			return fmt.Errorf("ページ番号が連番ではありません: index=%d, pageNumber=%d", i, p.PageNumber)
		}
	}
	return nil
}

// Animated はアニメーションが付いたページだけを返します。
func (ps Pages) Animated() Pages {
	var out Pages
	for _, p := range ps {
		if !p.Video.IsZero() {
			out = append(out, p)
		}
	}
	return out
}

// ValidateSelection はアニメーション対象のインデックス集合を検証します。
// ちょうど AnimationSelectionSize 個で、重複がなく、範囲内である必要があります。
func (ps Pages) ValidateSelection(indices []int) error {
	if len(indices) != AnimationSelectionSize {
		return fmt.Errorf("アニメーション対象はちょうど %d ページを選択してください: %d", AnimationSelectionSize, len(indices))
	}
	seen := make(map[int]struct{}, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(ps) {
			return fmt.Errorf("ページインデックスが範囲外です: %d", idx)
		}
		if _, dup := seen[idx]; dup {
			return fmt.Errorf("ページインデックスが重複しています: %d", idx)
		}
		seen[idx] = struct{}{}
	}
	return nil
}
