package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shouni/go-comic-movie-kit/internal/builder"
	"github.com/shouni/go-comic-movie-kit/internal/config"
	"github.com/shouni/go-comic-movie-kit/pkg/adapters"
	"github.com/shouni/go-comic-movie-kit/pkg/adapters/adapterstest"
	kitconfig "github.com/shouni/go-comic-movie-kit/pkg/config"
	"github.com/shouni/go-comic-movie-kit/pkg/domain"
	"github.com/shouni/go-comic-movie-kit/pkg/pacing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n0000")

type fakeFFmpeg struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeFFmpeg) run(_ context.Context, _ string, args ...string) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return os.WriteFile(args[len(args)-1], []byte("mp4"), 0o644)
}

func newConfig(t *testing.T, opts config.GenerateOptions) *config.Config {
	t.Helper()
	return &config.Config{
		GeminiAPIKey: "test-key",
		OutputDir:    t.TempDir(),
		Kit:          kitconfig.DefaultConfig(),
		Options:      opts,
	}
}

func testOptions(provider *adapterstest.Provider, ff *fakeFFmpeg) []builder.Option {
	noSleep := pacing.SleeperFunc(func(context.Context, time.Duration) error { return nil })
	return []builder.Option{
		builder.WithProvider(provider, &adapterstest.Fetcher{}),
		builder.WithSleeper(noSleep),
		builder.WithCommandRunner(ff.run),
	}
}

func TestExecuteCreate_AutoApprove(t *testing.T) {
	cfg := newConfig(t, config.GenerateOptions{
		Idea:        "a brave astronaut squirrel",
		AutoApprove: true,
		Movie:       true,
		Animate:     []int{1, 6, 11, 16},
	})
	ff := &fakeFFmpeg{}
	var out bytes.Buffer

	res, err := ExecuteCreate(context.Background(), cfg, IO{In: strings.NewReader(""), Out: &out}, testOptions(&adapterstest.Provider{}, ff)...)
	require.NoError(t, err)

	t.Run("成果物がすべて書き出されること", func(t *testing.T) {
		for _, p := range []string{res.StoryboardPath, res.ArchivePath, res.CharacterSheetPath, res.MoviePath} {
			assert.FileExists(t, p)
		}
		assert.Equal(t, filepath.Join(cfg.OutputDir, "Nutty_in_Space.mp4"), res.MoviePath)
		assert.Len(t, res.ImagePaths, domain.PageCount)
		assert.Len(t, res.ScenePaths, domain.AnimationSelectionSize)
		assert.Equal(t, domain.PageCount+1, ff.calls)
	})

	t.Run("ストーリーボードに動画化したページが記録されること", func(t *testing.T) {
		md, err := os.ReadFile(res.StoryboardPath)
		require.NoError(t, err)
		assert.Contains(t, string(md), "# Nutty in Space")
		assert.Equal(t, domain.AnimationSelectionSize, strings.Count(string(md), "- animated: yes"))
	})

	t.Run("全ページが順番に上映されること", func(t *testing.T) {
		text := out.String()
		assert.Contains(t, text, "== Now showing: Nutty in Space ==")
		first := strings.Index(text, "[Page 1] ")
		last := strings.Index(text, "[Page 16] ")
		require.GreaterOrEqual(t, first, 0)
		assert.Greater(t, last, first)
	})
}

func TestExecuteCreate_WithoutIdea(t *testing.T) {
	cfg := newConfig(t, config.GenerateOptions{AutoApprove: true})
	provider := &adapterstest.Provider{}

	_, err := ExecuteCreate(context.Background(), cfg, IO{In: strings.NewReader(""), Out: &bytes.Buffer{}}, testOptions(provider, &fakeFFmpeg{})...)
	assert.Error(t, err)
	assert.Empty(t, provider.TextRequests())
}

func TestExecuteCharacterOnly(t *testing.T) {
	ctx := context.Background()

	t.Run("テキストのアイデアから設定画を保存すること", func(t *testing.T) {
		cfg := newConfig(t, config.GenerateOptions{Idea: "a brave astronaut squirrel"})
		var out bytes.Buffer

		character, path, err := ExecuteCharacterOnly(ctx, cfg, &out, testOptions(&adapterstest.Provider{}, &fakeFFmpeg{})...)
		require.NoError(t, err)

		assert.Equal(t, adapterstest.CharacterDescription, character.Description)
		assert.Equal(t, filepath.Join(cfg.OutputDir, "character_sheet.png"), path)
		assert.FileExists(t, path)
		assert.Contains(t, out.String(), adapterstest.CharacterDescription)
	})

	t.Run("画像のアイデアは内容から MIME タイプを決めること", func(t *testing.T) {
		img := filepath.Join(t.TempDir(), "drawing.bin")
		require.NoError(t, os.WriteFile(img, pngHeader, 0o644))
		cfg := newConfig(t, config.GenerateOptions{ImageFile: img})
		provider := &adapterstest.Provider{}

		_, _, err := ExecuteCharacterOnly(ctx, cfg, &bytes.Buffer{}, testOptions(provider, &fakeFFmpeg{})...)
		require.NoError(t, err)

		reqs := provider.TextRequests()
		require.NotEmpty(t, reqs)
		require.Len(t, reqs[0].Media, 1)
		assert.Equal(t, "image/png", reqs[0].Media[0].MIMEType)
	})

	t.Run("録音のアイデアは文字起こししてから使うこと", func(t *testing.T) {
		audio := filepath.Join(t.TempDir(), "idea.webm")
		require.NoError(t, os.WriteFile(audio, []byte("webm-bytes"), 0o644))
		cfg := newConfig(t, config.GenerateOptions{AudioFile: audio})
		provider := &adapterstest.Provider{}

		_, _, err := ExecuteCharacterOnly(ctx, cfg, &bytes.Buffer{}, testOptions(provider, &fakeFFmpeg{})...)
		require.NoError(t, err)

		reqs := provider.TextRequests()
		require.Len(t, reqs, 2)
		assert.Equal(t, "audio/webm", reqs[0].Media[0].MIMEType)
		assert.Contains(t, reqs[1].Prompt, adapterstest.Transcript)
	})

	t.Run("聞き取れない録音はエラーになること", func(t *testing.T) {
		audio := filepath.Join(t.TempDir(), "silence.webm")
		require.NoError(t, os.WriteFile(audio, []byte("..."), 0o644))
		cfg := newConfig(t, config.GenerateOptions{AudioFile: audio})
		provider := &adapterstest.Provider{
			TextFunc: func(context.Context, adapters.TextRequest) (string, error) { return "  ", nil },
		}

		_, _, err := ExecuteCharacterOnly(ctx, cfg, &bytes.Buffer{}, testOptions(provider, &fakeFFmpeg{})...)
		assert.ErrorContains(t, err, "聞き取れなかった")
	})
}

func TestExecuteTranscribe(t *testing.T) {
	ctx := context.Background()
	audio := filepath.Join(t.TempDir(), "idea.webm")
	require.NoError(t, os.WriteFile(audio, []byte("webm-bytes"), 0o644))

	t.Run("文字起こしを書き出すこと", func(t *testing.T) {
		cfg := newConfig(t, config.GenerateOptions{AudioFile: audio})
		var out bytes.Buffer

		got, err := ExecuteTranscribe(ctx, cfg, &out, testOptions(&adapterstest.Provider{}, &fakeFFmpeg{})...)
		require.NoError(t, err)
		assert.Equal(t, adapterstest.Transcript, got)
		assert.Equal(t, adapterstest.Transcript+"\n", out.String())
	})

	t.Run("録音ファイルの指定は必須なこと", func(t *testing.T) {
		cfg := newConfig(t, config.GenerateOptions{})
		_, err := ExecuteTranscribe(ctx, cfg, &bytes.Buffer{}, testOptions(&adapterstest.Provider{}, &fakeFFmpeg{})...)
		assert.Error(t, err)
	})
}

func TestAudioMIMEType(t *testing.T) {
	assert.Equal(t, defaultAudioMIME, audioMIMEType("recording.unknownext"))
	assert.Equal(t, defaultAudioMIME, audioMIMEType("recording"))
}

func TestToIndices(t *testing.T) {
	assert.Nil(t, toIndices(nil))
	assert.Equal(t, []int{0, 5, 15}, toIndices([]int{1, 6, 16}))
}
