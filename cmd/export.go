package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/auto-analyst/internal/render"
)

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session's latest document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()

		sess, err := a.service.Snapshot(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		doc := sess.Document()
		if doc == nil {
			return fmt.Errorf("session %s has no document yet", sess.ID)
		}

		format, _ := cmd.Flags().GetString("format")
		var out []byte
		switch format {
		case "md", "markdown":
			text, err := render.Markdown(doc)
			if err != nil {
				return err
			}
			out = []byte(text)
		case "html":
			if out, err = render.HTML(doc); err != nil {
				return err
			}
		case "json":
			if out, err = json.MarshalIndent(doc, "", "  "); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown format %q: must be md, html, or json", format)
		}

		path, _ := cmd.Flags().GetString("output")
		if path == "" || path == "-" {
			_, err = os.Stdout.Write(out)
			return err
		}
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		if !doc.Approved {
			fmt.Fprintf(os.Stderr, "Note: generation %d has not been approved yet.\n", doc.Generation)
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("format", "f", "md", "output format: md, html, or json")
	exportCmd.Flags().StringP("output", "o", "", "output file (stdout when empty)")
	rootCmd.AddCommand(exportCmd)
}
