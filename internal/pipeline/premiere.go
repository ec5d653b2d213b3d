package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/shouni/go-comic-movie-kit/internal/builder"
	"github.com/shouni/go-comic-movie-kit/pkg/pacing"
	"github.com/shouni/go-comic-movie-kit/pkg/parser"
	"github.com/shouni/go-comic-movie-kit/pkg/premiere"
)

// ExecutePremiere は、書き出し済みのストーリーボードを読み込み、ページ順に読み上げ直すのだ。
// 生成プロバイダは使わないので API キーは要らないのだ。
func ExecutePremiere(ctx context.Context, storyboardPath string, out io.Writer, sleeper pacing.Sleeper) error {
	if storyboardPath == "" {
		return fmt.Errorf("ストーリーボード（--storyboard）を指定してほしいのだ")
	}

	// 1. ストーリーボードの読み込み
	rio, err := builder.OpenRemoteIO(ctx, storyboardPath)
	if err != nil {
		return err
	}
	defer rio.Close()
	raw, err := rio.ReadAll(ctx, storyboardPath)
	if err != nil {
		return fmt.Errorf("ストーリーボード '%s' の読み込みに失敗しました: %w", storyboardPath, err)
	}
	sb, err := parser.NewMarkdownParser().Parse(storyboardPath, string(raw))
	if err != nil {
		return fmt.Errorf("ストーリーボード '%s' の解析に失敗しました: %w", storyboardPath, err)
	}

	// 2. 上映
	var opts []premiere.Option
	if sleeper != nil {
		opts = append(opts, premiere.WithSleeper(sleeper))
	}
	player, err := premiere.NewPlayer(premiere.TextNarrator{W: out}, opts...)
	if err != nil {
		return err
	}

	title := storyTitle(sb.Project)
	fmt.Fprintf(out, "== Now showing: %s ==\n", title)
	if err := player.Play(ctx, sb.Project.Pages); err != nil {
		return fmt.Errorf("上映に失敗したのだ: %w", err)
	}
	slog.Info("上映が終わったのだ", "title", title, "pages", len(sb.Project.Pages))
	return nil
}
