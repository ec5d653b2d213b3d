package prompts

import (
	_ "embed"

	"github.com/shouni/go-comic-movie-kit/pkg/domain"
)

const (
	ModeCharacterText  = "character_text"
	ModeCharacterImage = "character_image"
	ModeCharacterSheet = "character_sheet"
	ModeStoryPersona   = "story_persona"
	ModeStorySeed      = "story_seed"
	ModeStoryExtract   = "story_extract"
	ModePages          = "pages"
	ModePageImage      = "page_image"
	ModePageVideo      = "page_video"
	ModeTranscribe     = "transcribe"
)

// DefaultPageStyle はページ画像の画風指定です。
const DefaultPageStyle = "vibrant, colorful, clean lines, friendly cartoon style"

// TemplateData はプロンプトテンプレートに渡すデータ構造です。
type TemplateData struct {
	Idea            string
	Description     string
	Story           domain.Story
	Page            domain.Page
	Style           string
	Language        string
	PageCount       int
	ChapterCount    int
	PagesPerChapter int
}

// NewTemplateData は固定の構成値を埋めた TemplateData を返します。
func NewTemplateData() TemplateData {
	return TemplateData{
		Style:           DefaultPageStyle,
		Language:        "English",
		PageCount:       domain.PageCount,
		ChapterCount:    domain.ChapterCount,
		PagesPerChapter: domain.PagesPerChapter,
	}
}

var (
	//go:embed character_text.md
	CharacterTextPrompt string
	//go:embed character_image.md
	CharacterImagePrompt string
	//go:embed character_sheet.md
	CharacterSheetPrompt string
	//go:embed story_persona.md
	StoryPersonaPrompt string
	//go:embed story_seed.md
	StorySeedPrompt string
	//go:embed story_extract.md
	StoryExtractPrompt string
	//go:embed pages.md
	PagesPrompt string
	//go:embed page_image.md
	PageImagePrompt string
	//go:embed page_video.md
	PageVideoPrompt string
	//go:embed transcribe.md
	TranscribePrompt string
)

// allTemplates はモードとテンプレート文字列を紐づけるマップです。
var allTemplates = map[string]string{
	ModeCharacterText:  CharacterTextPrompt,
	ModeCharacterImage: CharacterImagePrompt,
	ModeCharacterSheet: CharacterSheetPrompt,
	ModeStoryPersona:   StoryPersonaPrompt,
	ModeStorySeed:      StorySeedPrompt,
	ModeStoryExtract:   StoryExtractPrompt,
	ModePages:          PagesPrompt,
	ModePageImage:      PageImagePrompt,
	ModePageVideo:      PageVideoPrompt,
	ModeTranscribe:     TranscribePrompt,
}
