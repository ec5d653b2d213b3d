package parser

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/shouni/go-comic-movie-kit/pkg/domain"
	"github.com/shouni/go-comic-movie-kit/pkg/publisher"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProject() (domain.ProjectState, []string) {
	pages := make(domain.Pages, domain.PageCount)
	paths := make([]string, domain.PageCount)
	for i := range pages {
		pages[i] = domain.Page{
			PageNumber:      i + 1,
			Chapter:         i/domain.PagesPerChapter + 1,
			Text:            fmt.Sprintf("Scene %d", i+1),
			NarrationScript: fmt.Sprintf("Narration %d", i+1),
			SFX:             "[SOUND of wind]",
		}
		if i != 3 {
			paths[i] = fmt.Sprintf("images/page_%02d.png", i+1)
		}
	}
	pages[5].Animate = true

	return domain.ProjectState{
		Character: &domain.Character{Description: "A small red squirrel"},
		Story: &domain.Story{
			Title:        "Nutty in Space",
			CoverConcept: "Nutty waving from a rocket",
			Chapters:     []domain.Chapter{{Title: "Liftoff"}, {Title: "Moon"}, {Title: "Asteroids"}, {Title: "Home"}},
		},
		Pages: pages,
	}, paths
}

func TestMarkdownParser_ParsePublishedStoryboard(t *testing.T) {
	project, paths := sampleProject()
	md := publisher.BuildStoryboard(project, paths)
	base := filepath.Join("out", "book")

	sb, err := NewMarkdownParser().Parse(filepath.Join(base, "comic_book.md"), md)
	require.NoError(t, err)

	t.Run("物語と章立てが復元されること", func(t *testing.T) {
		assert.Equal(t, *project.Story, *sb.Project.Story)
		require.NotNil(t, sb.Project.Character)
		assert.Equal(t, "A small red squirrel", sb.Project.Character.Description)
	})

	t.Run("ページの本文と指示が復元されること", func(t *testing.T) {
		require.Len(t, sb.Project.Pages, domain.PageCount)
		require.NoError(t, sb.Project.Pages.Validate())
		p := sb.Project.Pages[5]
		assert.Equal(t, 6, p.PageNumber)
		assert.Equal(t, 2, p.Chapter)
		assert.Equal(t, "Scene 6", p.Text)
		assert.Equal(t, "Narration 6", p.NarrationScript)
		assert.Equal(t, "SOUND of wind", p.SFX)
		assert.True(t, p.Animate)
	})

	t.Run("画像のパスはストーリーボードの場所から解決されること", func(t *testing.T) {
		require.Len(t, sb.ImagePaths, domain.PageCount)
		assert.Equal(t, filepath.Join(base, "images", "page_01.png"), sb.ImagePaths[0])
		assert.Empty(t, sb.ImagePaths[3])
	})
}

func TestMarkdownParser_Errors(t *testing.T) {
	_, err := NewMarkdownParser().Parse("comic_book.md", "# Only a title\n\nNo pages here.\n")
	assert.Error(t, err)
}

func TestResolveFullPath(t *testing.T) {
	tests := []struct {
		name       string
		storyboard string
		ref        string
		want       string
	}{
		{"ローカルの相対パス", filepath.Join("out", "comic_book.md"), "images/page_01.png", filepath.Join("out", "images", "page_01.png")},
		{"HTTPS のストーリーボード", "https://example.com/books/nutty/comic_book.md?v=1", "images/page_01.png", "https://example.com/books/nutty/images/page_01.png"},
		{"絶対 URL はそのまま", "comic_book.md", "https://cdn.example.com/p.png", "https://cdn.example.com/p.png"},
		{"プレースホルダーは空", "comic_book.md", "placeholder.png", ""},
		{"空の参照", "comic_book.md", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveFullPath(resolveBaseURL(tt.storyboard), tt.ref))
		})
	}
}
