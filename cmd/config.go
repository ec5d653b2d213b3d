package cmd

import (
	"fmt"

	"github.com/shouni/go-comic-movie-kit/internal/config"

	"github.com/spf13/cobra"
)

// newConfigCmd は、設定ファイルのひな形を書き出すコマンドなのだ。
func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "config",
		Short:       "設定ファイル（TOML）のひな形を出力するのだ。",
		Example:     "  comic-movie config > " + config.DefaultConfigFile,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationOffline: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), config.SampleConfig())
			return err
		},
	}
}
