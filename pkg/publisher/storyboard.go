package publisher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shouni/go-comic-movie-kit/pkg/domain"
)

const placeholderImage = "placeholder.png"

var cueRegex = regexp.MustCompile(`^\[(.*)\]$`)

// BuildStoryboard はタイトル、表紙コンセプト、章立て、ページごとの本文・ナレーション・効果音と画像パスを
// まとめた Markdown を返します。imagePaths は pages と同じ順番で、足りない分はプレースホルダーになります。
func BuildStoryboard(project domain.ProjectState, imagePaths []string) string {
	var sb strings.Builder

	// 1. タイトルと表紙
	title := "Comic Book"
	if project.Story != nil && project.Story.Title != "" {
		title = project.Story.Title
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)
	if project.Story != nil && project.Story.CoverConcept != "" {
		fmt.Fprintf(&sb, "> Cover: %s\n\n", project.Story.CoverConcept)
	}
	if project.Character != nil && project.Character.Description != "" {
		fmt.Fprintf(&sb, "**Main character:** %s\n\n", project.Character.Description)
	}

	// 2. 章立て
	if project.Story != nil && len(project.Story.Chapters) > 0 {
		sb.WriteString("## Chapters\n\n")
		for i, ch := range project.Story.Chapters {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, ch.Title)
		}
		sb.WriteString("\n")
	}

	// 3. ページ
	chapter := 0
	for i, p := range project.Pages {
		if p.Chapter != chapter {
			chapter = p.Chapter
			fmt.Fprintf(&sb, "## Chapter %d%s\n\n", chapter, chapterSuffix(project.Story, chapter))
		}

		img := placeholderImage
		if i < len(imagePaths) && imagePaths[i] != "" {
			img = imagePaths[i]
		}
		fmt.Fprintf(&sb, "### Page %d\n", p.PageNumber)
		fmt.Fprintf(&sb, "![Page %d](%s)\n\n", p.PageNumber, img)
		if p.Text != "" {
			fmt.Fprintf(&sb, "- text: %s\n", strings.TrimSpace(p.Text))
		}
		if p.NarrationScript != "" {
			fmt.Fprintf(&sb, "- narration: %s\n", strings.TrimSpace(p.NarrationScript))
		}
		if cue := sfxCue(p.SFX); cue != "" {
			fmt.Fprintf(&sb, "- sfx: %s\n", cue)
		}
		if p.Animate {
			sb.WriteString("- animated: yes\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func chapterSuffix(story *domain.Story, chapter int) string {
	if story == nil || chapter < 1 || chapter > len(story.Chapters) {
		return ""
	}
	return ": " + story.Chapters[chapter-1].Title
}

// sfxCue は "[SOUND of wind]" のような角括弧を外した効果音の指示を返します。
func sfxCue(s string) string {
	s = strings.TrimSpace(s)
	if m := cueRegex.FindStringSubmatch(s); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return s
}
