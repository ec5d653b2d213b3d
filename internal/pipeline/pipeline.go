package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/shouni/go-comic-movie-kit/internal/builder"
	"github.com/shouni/go-comic-movie-kit/internal/config"
	"github.com/shouni/go-comic-movie-kit/internal/wizard"
	"github.com/shouni/go-comic-movie-kit/pkg/domain"
	"github.com/shouni/go-comic-movie-kit/pkg/publisher"
)

const defaultAudioMIME = "audio/webm"

// IO は対話に使う入出力なのだ。
type IO struct {
	In  io.Reader
	Out io.Writer
}

// ExecuteCreate は、アイデアから6工程を進めて完成したコミックとムービーを書き出し、
// 最後に読み上げ付きで上映するのだ。
func ExecuteCreate(ctx context.Context, cfg *config.Config, stdio IO, opts ...builder.Option) (publisher.PublishResult, error) {
	appCtx, err := builder.BuildAppContext(ctx, cfg, opts...)
	if err != nil {
		return publisher.PublishResult{}, err
	}
	defer appCtx.Close()

	// 1. アイデアの準備
	idea, err := resolveIdea(ctx, appCtx)
	if err != nil {
		return publisher.PublishResult{}, err
	}

	// 2. 対話で6工程を進める
	wz := wizard.New(stdio.In, stdio.Out, wizard.Options{
		AutoApprove: appCtx.Options.AutoApprove,
		Animate:     toIndices(appCtx.Options.Animate),
	})
	ctrl, err := builder.BuildController(appCtx, wz.Observe)
	if err != nil {
		return publisher.PublishResult{}, err
	}
	snap, err := wz.Run(ctx, ctrl, idea)
	if err != nil {
		return publisher.PublishResult{}, fmt.Errorf("コミックの制作が完了しなかったのだ（工程: %s）: %w", snap.Stage, err)
	}

	// 3. 書き出し
	pub, err := builder.BuildPublisher(appCtx)
	if err != nil {
		return publisher.PublishResult{}, err
	}
	result, err := pub.Publish(ctx, snap.Project, publisher.Options{
		OutputDir: cfg.OutputDir,
		Movie:     appCtx.Options.Movie,
	})
	if err != nil {
		return result, fmt.Errorf("成果物の書き出しに失敗したのだ: %w", err)
	}

	// 4. 上映
	player, err := builder.BuildPlayer(appCtx, stdio.Out)
	if err != nil {
		return result, err
	}
	fmt.Fprintf(stdio.Out, "\n== Now showing: %s ==\n", storyTitle(snap.Project))
	if err := player.Play(ctx, snap.Project.Pages); err != nil {
		return result, fmt.Errorf("上映に失敗したのだ: %w", err)
	}

	slog.Info("コミックブック・ムービーが完成したのだ！",
		"title", storyTitle(snap.Project),
		"storyboard", result.StoryboardPath,
		"movie", result.MoviePath,
	)
	return result, nil
}

// ExecuteCharacterOnly は、アイデアからキャラクターの説明と設定画だけを作って保存するのだ。
func ExecuteCharacterOnly(ctx context.Context, cfg *config.Config, out io.Writer, opts ...builder.Option) (domain.Character, string, error) {
	appCtx, err := builder.BuildAppContext(ctx, cfg, opts...)
	if err != nil {
		return domain.Character{}, "", err
	}
	defer appCtx.Close()

	idea, err := resolveIdea(ctx, appCtx)
	if err != nil {
		return domain.Character{}, "", err
	}

	description, err := appCtx.Generator.DescribeCharacter(ctx, idea)
	if err != nil {
		return domain.Character{}, "", fmt.Errorf("キャラクターの説明の生成に失敗したのだ: %w", err)
	}
	sheet, err := appCtx.Generator.RenderCharacterSheet(ctx, description)
	if err != nil {
		return domain.Character{}, "", fmt.Errorf("キャラクター設定画の生成に失敗したのだ: %w", err)
	}
	character := domain.Character{Description: description, Sheet: sheet}

	pub, err := builder.BuildPublisher(appCtx)
	if err != nil {
		return character, "", err
	}
	sheetPath, err := pub.WriteCharacterSheet(ctx, cfg.OutputDir, character)
	if err != nil {
		return character, "", err
	}

	fmt.Fprintf(out, "%s\n\nCharacter sheet: %s\n", description, sheetPath)
	return character, sheetPath, nil
}

// ExecuteTranscribe は、録音ファイルを文字起こしして書き出すのだ。
func ExecuteTranscribe(ctx context.Context, cfg *config.Config, out io.Writer, opts ...builder.Option) (string, error) {
	appCtx, err := builder.BuildAppContext(ctx, cfg, opts...)
	if err != nil {
		return "", err
	}
	defer appCtx.Close()
	if appCtx.Options.AudioFile == "" {
		return "", fmt.Errorf("録音ファイル（--audio）を指定してほしいのだ")
	}

	transcript, err := transcribeFile(ctx, appCtx, appCtx.Options.AudioFile)
	if err != nil {
		return "", err
	}
	fmt.Fprintln(out, transcript)
	return transcript, nil
}

// resolveIdea は、録音・画像・テキストの順にアイデアの入力を決めるのだ。
func resolveIdea(ctx context.Context, appCtx *builder.AppContext) (domain.Idea, error) {
	opts := appCtx.Options

	var idea domain.Idea
	switch {
	case opts.AudioFile != "":
		transcript, err := transcribeFile(ctx, appCtx, opts.AudioFile)
		if err != nil {
			return domain.Idea{}, err
		}
		if transcript == "" {
			return domain.Idea{}, fmt.Errorf("録音から言葉を聞き取れなかったのだ: %s", opts.AudioFile)
		}
		idea = domain.NewVoiceIdea(transcript)
	case opts.ImageFile != "":
		data, err := appCtx.ReadAll(ctx, opts.ImageFile)
		if err != nil {
			return domain.Idea{}, fmt.Errorf("画像ファイル '%s' の読み込みに失敗しました: %w", opts.ImageFile, err)
		}
		idea = domain.NewImageIdea(opts.Idea, data, http.DetectContentType(data))
	default:
		idea = domain.NewTextIdea(opts.Idea)
	}

	if err := idea.Validate(); err != nil {
		return domain.Idea{}, fmt.Errorf("アイデアが正しくないのだ: %w", err)
	}
	return idea, nil
}

func transcribeFile(ctx context.Context, appCtx *builder.AppContext, file string) (string, error) {
	audio, err := appCtx.ReadAll(ctx, file)
	if err != nil {
		return "", fmt.Errorf("録音ファイル '%s' の読み込みに失敗しました: %w", file, err)
	}
	slog.InfoContext(ctx, "録音を文字起こしするのだ", "file", file, "bytes", len(audio))
	transcript, err := appCtx.Generator.Transcribe(ctx, audio, audioMIMEType(file))
	if err != nil {
		return "", fmt.Errorf("文字起こしに失敗したのだ: %w", err)
	}
	return transcript, nil
}

func audioMIMEType(name string) string {
	if t := mime.TypeByExtension(strings.ToLower(path.Ext(name))); strings.HasPrefix(t, "audio/") {
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = t[:i]
		}
		return t
	}
	return defaultAudioMIME
}

// toIndices は 1 始まりのページ番号を 0 始まりの位置に変換するのだ。
func toIndices(pageNumbers []int) []int {
	if len(pageNumbers) == 0 {
		return nil
	}
	out := make([]int, len(pageNumbers))
	for i, n := range pageNumbers {
		out[i] = n - 1
	}
	return out
}

func storyTitle(project domain.ProjectState) string {
	if project.Story != nil && project.Story.Title != "" {
		return project.Story.Title
	}
	return "Comic Book"
}
