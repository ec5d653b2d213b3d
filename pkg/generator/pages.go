package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shouni/go-comic-movie-kit/pkg/adapters"
	"github.com/shouni/go-comic-movie-kit/pkg/apperr"
	"github.com/shouni/go-comic-movie-kit/pkg/domain"
	"github.com/shouni/go-comic-movie-kit/pkg/progress"
	"github.com/shouni/go-comic-movie-kit/pkg/prompts"

	"google.golang.org/genai"
)

const opRenderStoryPages = "renderStoryPages"

// pageBatch は構造化出力で受け取るページ一覧です。
type pageBatch struct {
	Pages []domain.Page `json:"pages"`
}

// pageBatchSchema はページ番号・章番号の整数と3つの文字列を持つオブジェクト配列を要求します。
var pageBatchSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"pages": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"pageNumber":      {Type: genai.TypeInteger},
					"chapter":         {Type: genai.TypeInteger},
					"text":            {Type: genai.TypeString, Description: "The dialogue or story text for this comic panel."},
					"narrationScript": {Type: genai.TypeString, Description: "The script for a narrator to read for this panel."},
					"sfx":             {Type: genai.TypeString, Description: "A simple sound effect cue, e.g., [SOUND of wind howling]."},
				},
				Required: []string{"pageNumber", "chapter", "text", "narrationScript", "sfx"},
			},
		},
	},
	Required: []string{"pages"},
}

// RenderStoryPages は1回の構造化出力で 16 ページ分の本文を得た後、ページ画像を1枚ずつ順番に生成します。
// 各ページの画像生成の前後で進捗を通知し、最後のページ以外の後には固定の待機を挟みます。
func (g *Generator) RenderStoryPages(ctx context.Context, story domain.Story, characterDescription string, onProgress progress.Func) (domain.Pages, error) {
	notify := func(u progress.Update) {
		if onProgress != nil {
			onProgress(u)
		}
	}

	// 1. ページ本文の一括生成
	notify(progress.Update{Percent: 0, Status: "Writing the story pages..."})
	pages, err := g.writePages(ctx, story, characterDescription)
	if err != nil {
		return nil, err
	}

	// 2. ページ画像の逐次生成
	total := len(pages)
	for i := range pages {
		notify(progress.Report(i, total, progress.Starting, fmt.Sprintf("Generating image for page %d...", i+1)))

		prompt, err := g.build(prompts.ModePageImage, func(d *prompts.TemplateData) {
			d.Description = characterDescription
			d.Page = pages[i]
		})
		if err != nil {
			return nil, err
		}

		img, err := g.renderImage(ctx, opRenderStoryPages, prompt, pageAspectRatio)
		if err != nil {
			return nil, fmt.Errorf("ページ %d の画像生成に失敗しました: %w", i+1, err)
		}
		pages[i].Image = img
		done := progress.Report(i, total, progress.Complete, fmt.Sprintf("Page %d complete.", i+1))
		notify(done)
		slog.InfoContext(ctx, "ページ画像を生成しました", "page", i+1, "total", total)

		// 3. クォータ保護のための待機（最後のページの後は待たない）
		if i < total-1 {
			notify(progress.Update{Percent: done.Percent, Status: fmt.Sprintf("Pausing for %s to respect API limits...", formatSeconds(g.pagePacing.Delay))})
		}
		if _, err := g.pagePacing.After(ctx, i, total); err != nil {
			return nil, fmt.Errorf("ページ生成の待機が中断されました: %w", err)
		}
	}

	return pages, nil
}

// writePages はページ本文を構造化出力で取得し、1..16 の連番に整えます。
func (g *Generator) writePages(ctx context.Context, story domain.Story, characterDescription string) (domain.Pages, error) {
	prompt, err := g.build(prompts.ModePages, func(d *prompts.TemplateData) {
		d.Story = story
		d.Description = characterDescription
	})
	if err != nil {
		return nil, err
	}

	raw, err := g.provider.GenerateText(ctx, adapters.TextRequest{Prompt: prompt, Schema: pageBatchSchema})
	if err != nil {
		return nil, apperr.Provider(opRenderStoryPages, "failed to write the story pages", err)
	}

	var batch pageBatch
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &batch); err != nil {
		return nil, apperr.Provider(opRenderStoryPages, "the story pages could not be read", err)
	}
	inRange := pagesInRange(batch.Pages)
	if len(inRange) < domain.PageCount {
		return nil, apperr.Provider(opRenderStoryPages,
			fmt.Sprintf("expected %d pages but received %d", domain.PageCount, len(inRange)), nil)
	}

	pages := inRange[:domain.PageCount].Normalize()
	for i := range pages {
		pages[i].Image = domain.Artifact{}
		pages[i].Video = domain.Artifact{}
		pages[i].Animate = false
	}
	if err := pages.Validate(); err != nil {
		return nil, apperr.Provider(opRenderStoryPages, err.Error(), nil)
	}
	return pages, nil
}

// pagesInRange は 1..PageCount のページ番号を持つページを番号順に並べて返します。
// 範囲外の番号と重複した番号（2 つ目以降）は捨てます。
func pagesInRange(raw []domain.Page) domain.Pages {
	out := make(domain.Pages, 0, len(raw))
	seen := make(map[int]bool, len(raw))
	for _, p := range raw {
		if p.PageNumber < 1 || p.PageNumber > domain.PageCount || seen[p.PageNumber] {
			continue
		}
		seen[p.PageNumber] = true
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PageNumber < out[j].PageNumber
	})
	return out
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%gs", d.Seconds())
}
