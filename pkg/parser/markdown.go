package parser

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/shouni/go-comic-movie-kit/pkg/domain"
)

const (
	fieldKeyText      = "text"
	fieldKeyNarration = "narration"
	fieldKeySFX       = "sfx"
	fieldKeyAnimated  = "animated"
)

// Parser はストーリーボードを解析するためのインターフェースなのだ。
type Parser interface {
	// Parse はストーリーボードの場所と内容を受け取り、構造化された Storyboard を返すのだ。
	Parse(storyboardPath string, input string) (*Storyboard, error)
}

// Storyboard は書き出されたストーリーボードから復元したプロジェクトです。
// 画像や動画のバイト列は持たず、ImagePaths で場所だけを示します。
type Storyboard struct {
	Project domain.ProjectState
	// ImagePaths は Project.Pages と同じ順番の画像の場所です。無いページは空文字です。
	ImagePaths []string
}

// MarkdownParser は Markdown 形式のストーリーボードを解析し、構造化データに変換する構造体です。
type MarkdownParser struct{}

// NewMarkdownParser は MarkdownParser を初期化するのだ。
func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{}
}

// Parse は storyboardPath を基に画像の参照パスを解決し、Markdown テキストを Storyboard に変換します。
func (p *MarkdownParser) Parse(storyboardPath string, input string) (*Storyboard, error) {
	// 1. ストーリーボードの場所から画像のベースを算出する
	baseURL := resolveBaseURL(storyboardPath)

	story := &domain.Story{}
	var character *domain.Character
	chapterTitles := map[int]string{}
	chapter := 0

	var pages domain.Pages
	var images []string
	var current *domain.Page
	currentImage := ""

	flush := func() {
		if current != nil {
			pages = append(pages, *current)
			images = append(images, currentImage)
		}
		current, currentImage = nil, ""
	}

	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		// 2. 見出しと前書き
		if m := PageRegex.FindStringSubmatch(trimmed); m != nil {
			flush()
			n, _ := strconv.Atoi(m[1])
			current = &domain.Page{PageNumber: n, Chapter: chapter}
			continue
		}
		if m := ChapterRegex.FindStringSubmatch(trimmed); m != nil {
			flush()
			chapter, _ = strconv.Atoi(m[1])
			chapterTitles[chapter] = strings.TrimSpace(m[2])
			continue
		}
		if m := TitleRegex.FindStringSubmatch(trimmed); m != nil && story.Title == "" {
			story.Title = strings.TrimSpace(m[1])
			continue
		}
		if m := CoverRegex.FindStringSubmatch(trimmed); m != nil {
			story.CoverConcept = strings.TrimSpace(m[1])
			continue
		}
		if m := CharacterRegex.FindStringSubmatch(trimmed); m != nil {
			character = &domain.Character{Description: strings.TrimSpace(m[1])}
			continue
		}
		if current == nil {
			continue
		}

		// 3. ページの画像とフィールド行 (- key: value)
		if m := ImageRegex.FindStringSubmatch(trimmed); m != nil {
			currentImage = resolveFullPath(baseURL, strings.TrimSpace(m[1]))
			continue
		}
		if m := FieldRegex.FindStringSubmatch(trimmed); m != nil {
			key, val := strings.ToLower(m[1]), strings.TrimSpace(m[2])
			switch key {
			case fieldKeyText:
				current.Text = val
			case fieldKeyNarration:
				current.NarrationScript = val
			case fieldKeySFX:
				current.SFX = val
			case fieldKeyAnimated:
				current.Animate = strings.EqualFold(val, "yes")
			default:
				slog.Debug("ストーリーボード内に未知のフィールドキーが見つかりました", "key", key)
			}
		}
	}
	flush()

	if len(pages) == 0 {
		return nil, fmt.Errorf("有効なページ情報が見つかりませんでした")
	}

	story.Chapters = chaptersFrom(chapterTitles)
	return &Storyboard{
		Project: domain.ProjectState{
			Character: character,
			Story:     story,
			Pages:     pages,
		},
		ImagePaths: images,
	}, nil
}

// chaptersFrom は章番号の昇順に章の一覧を作るのだ。
func chaptersFrom(titles map[int]string) []domain.Chapter {
	numbers := make([]int, 0, len(titles))
	for n := range titles {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	chapters := make([]domain.Chapter, 0, len(numbers))
	for _, n := range numbers {
		chapters = append(chapters, domain.Chapter{Title: titles[n]})
	}
	return chapters
}
