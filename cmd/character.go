package cmd

import (
	"fmt"

	"github.com/shouni/go-comic-movie-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// newCharacterCmd は、キャラクターの説明と設定画だけを作るコマンドなのだ。
func newCharacterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "character",
		Short:   "キャラクターの説明と設定画だけを作るのだ。",
		Example: `  comic-movie character -i "a shy dragon who loves tea"`,
		RunE:    characterCommand,
	}
	addIdeaFlags(cmd)
	return cmd
}

func characterCommand(cmd *cobra.Command, args []string) error {
	if opts.Idea == "" && opts.ImageFile == "" && opts.AudioFile == "" {
		return fmt.Errorf("アイデア（--idea, --image, --audio のどれか）を指定してほしいのだ")
	}
	if _, _, err := pipeline.ExecuteCharacterOnly(cmd.Context(), cfg, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("キャラクターの生成に失敗したのだ: %w", err)
	}
	return nil
}
