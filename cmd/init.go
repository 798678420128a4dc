package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/auto-analyst/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize analyst configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to choose a language model provider and quality tier and the knowledge notes to index. It writes the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.RunWizard(cfgFile)
		if err != nil {
			return err
		}
		fmt.Printf("\nNext steps:\n")
		if len(cfg.Knowledge.Include) > 0 {
			fmt.Printf("  analyst index <notes-dir>   build the knowledge index\n")
		}
		fmt.Printf("  analyst chat                start an analysis session\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
