package cmd

import (
	"path/filepath"

	"github.com/shouni/go-comic-movie-kit/internal/config"
	"github.com/shouni/go-comic-movie-kit/internal/pipeline"
	"github.com/shouni/go-comic-movie-kit/pkg/asset"

	"github.com/spf13/cobra"
)

// newPremiereCmd は、書き出し済みのストーリーボードをもう一度上映するコマンドなのだ。
func newPremiereCmd() *cobra.Command {
	var storyboard string
	cmd := &cobra.Command{
		Use:         "premiere",
		Short:       "書き出したコミックをページ順に読み上げ直すのだ。",
		Example:     "  comic-movie premiere --storyboard output/comic_book.md",
		Annotations: map[string]string{annotationOffline: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return pipeline.ExecutePremiere(cmd.Context(), storyboard, cmd.OutOrStdout(), nil)
		},
	}
	cmd.Flags().StringVarP(&storyboard, "storyboard", "s",
		filepath.Join(config.DefaultOutputDir, asset.DefaultStoryboardName),
		"上映するストーリーボードなのだ。")
	return cmd
}
