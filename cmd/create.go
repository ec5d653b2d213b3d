package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-comic-movie-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// newCreateCmd は、アイデアからコミックブック・ムービーを完成まで作るコマンドなのだ。
func newCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "アイデアからコミックブック・ムービーを作るのだ。",
		Long: `Spark, Character Lab, Storyboard, Creation Engine, Animate, Premiere の6工程を対話しながら進め、
ストーリーボード、ページ画像、zip、シーン動画（と --movie でスライドショー）を書き出すのだ。`,
		Example: `  comic-movie create -i "a brave astronaut squirrel"
  comic-movie create --image drawing.png --yes --animate 1,5,9,13 --movie`,
		RunE: createCommand,
	}
	addIdeaFlags(cmd)
	cmd.Flags().BoolVarP(&opts.AutoApprove, "yes", "y", false, "確認をすべて承認して対話なしで進めるのだ。")
	cmd.Flags().IntSliceVar(&opts.Animate, "animate", nil, "動画にする 4 ページの番号（1 始まり）なのだ。")
	cmd.Flags().BoolVar(&opts.Movie, "movie", false, "ffmpeg でスライドショーのムービーも作るのだ。")
	return cmd
}

func createCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// 1. 必須チェック
	if opts.Idea == "" && opts.ImageFile == "" && opts.AudioFile == "" {
		return fmt.Errorf("アイデア（--idea, --image, --audio のどれか）を指定してほしいのだ")
	}

	slog.Info("コミックブック・ムービーの制作を始めるのだ！",
		"text_model", cfg.Kit.TextModel,
		"image_model", cfg.Kit.ImageModel,
		"video_model", cfg.Kit.VideoModel,
		"output_dir", cfg.OutputDir,
	)

	// 2. パイプラインの実行
	result, err := pipeline.ExecuteCreate(ctx, cfg, pipeline.IO{In: cmd.InOrStdin(), Out: cmd.OutOrStdout()})
	if err != nil {
		return fmt.Errorf("パイプライン実行中にエラーが発生したのだ: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nStoryboard: %s\nPages:      %s\n", result.StoryboardPath, result.ArchivePath)
	if result.MoviePath != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Movie:      %s\n", result.MoviePath)
	}
	return nil
}
