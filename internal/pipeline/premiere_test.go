package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shouni/go-comic-movie-kit/pkg/domain"
	"github.com/shouni/go-comic-movie-kit/pkg/pacing"
	"github.com/shouni/go-comic-movie-kit/pkg/publisher"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutePremiere(t *testing.T) {
	pages := domain.Pages{
		{PageNumber: 1, Chapter: 1, Text: "Nutty packs a bag.", NarrationScript: "Nutty was ready."},
		{PageNumber: 2, Chapter: 1, Text: "The rocket roars."},
	}
	md := publisher.BuildStoryboard(domain.ProjectState{
		Story: &domain.Story{Title: "Nutty in Space", Chapters: []domain.Chapter{{Title: "Liftoff"}}},
		Pages: pages,
	}, nil)
	path := filepath.Join(t.TempDir(), "comic_book.md")
	require.NoError(t, os.WriteFile(path, []byte(md), 0o644))

	var gaps []time.Duration
	sleeper := pacing.SleeperFunc(func(_ context.Context, d time.Duration) error {
		gaps = append(gaps, d)
		return nil
	})
	var out bytes.Buffer

	require.NoError(t, ExecutePremiere(context.Background(), path, &out, sleeper))

	want := strings.Join([]string{
		"== Now showing: Nutty in Space ==",
		"[Page 1] Nutty was ready.",
		"[Page 2] The rocket roars.",
	}, "\n") + "\n"
	assert.Equal(t, want, out.String())
	assert.Len(t, gaps, 1)
}

func TestExecutePremiere_Errors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
	}{
		{"パスの指定なし", ""},
		{"存在しないファイル", filepath.Join(dir, "missing.md")},
		{"ページのないストーリーボード", writeFile(t, dir, "empty.md", "# Title only\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, ExecutePremiere(ctx, tt.path, &bytes.Buffer{}, nil))
		})
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

