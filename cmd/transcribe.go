package cmd

import (
	"github.com/shouni/go-comic-movie-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// newTranscribeCmd は、録音ファイルを文字起こしするコマンドなのだ。
func newTranscribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transcribe",
		Short:   "録音したアイデアを文字起こしするのだ。",
		Example: "  comic-movie transcribe --audio idea.webm",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := pipeline.ExecuteTranscribe(cmd.Context(), cfg, cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().StringVar(&opts.AudioFile, "audio", "", "文字起こしする録音ファイルなのだ。")
	return cmd
}
