package cmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/auto-analyst/internal/audit"
	"github.com/ziadkadry99/auto-analyst/internal/backlog"
	"github.com/ziadkadry99/auto-analyst/internal/facts"
	"github.com/ziadkadry99/auto-analyst/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List and inspect analysis sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()

		status, _ := cmd.Flags().GetString("status")
		list, err := a.service.List(cmd.Context(), session.Status(status))
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("No sessions.")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tPHASE\tSTATUS\tFACTS\tUPDATED")
		for _, s := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", s.ID, s.Phase, s.Status, s.Facts, s.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
		return tw.Flush()
	},
}

var sessionsArchiveCmd = &cobra.Command{
	Use:   "archive <session-id>",
	Short: "Archive a session so it accepts no further turns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.service.Archive(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Archived %s\n", args[0])
		return nil
	},
}

var sessionsHistoryCmd = &cobra.Command{
	Use:   "history <session-id> <fact-key>",
	Short: "Show every recorded version of a fact",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()

		key := args[1]
		if ns, _ := facts.SplitKey(key); ns == "" {
			key = facts.Key(facts.NamespaceAnalysis, key)
		}
		history, err := a.sessions.Facts().History(cmd.Context(), args[0], key)
		if err != nil {
			return err
		}
		if len(history) == 0 {
			fmt.Printf("No values recorded for %s.\n", key)
			return nil
		}
		for _, f := range history {
			marker := " "
			if f.Current() {
				marker = "*"
			}
			fmt.Printf("%s v%d  %-10s %s  %s\n", marker, f.Version, f.Source, f.RecordedAt.Local().Format("2006-01-02 15:04:05"), f.Value)
		}
		return nil
	},
}

var sessionsBacklogCmd = &cobra.Command{
	Use:   "backlog <session-id> [generation]",
	Short: "Show a stored document generation and its validation results",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()

		store := a.sessions.Backlog()
		var g *backlog.Generation
		if len(args) == 2 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid generation %q", args[1])
			}
			g, err = store.Get(cmd.Context(), args[0], n)
			if err != nil {
				return err
			}
		} else if g, err = store.Latest(cmd.Context(), args[0]); err != nil {
			return err
		}
		if g == nil {
			fmt.Println("No document generations stored.")
			return nil
		}

		counts, err := store.CountBySeverity(cmd.Context(), args[0], g.Number)
		if err != nil {
			return err
		}
		fmt.Printf("Generation %d: %d epics, %d stories, %d blocking, %d advisory\n\n",
			g.Number, len(g.Epics), len(g.Stories), counts[backlog.SeverityBlocking], counts[backlog.SeverityAdvisory])
		for _, e := range g.Epics {
			fmt.Printf("%s  %s\n", e.ID, e.Title)
			for _, st := range backlog.StoriesFor(e, g.Stories) {
				fmt.Printf("    %s  [%s] %s\n", st.ID, st.Status, st.Title)
			}
		}
		for _, v := range g.Violations {
			fmt.Printf("  %s\n", v)
		}
		return nil
	},
}

var sessionsAuditCmd = &cobra.Command{
	Use:   "audit <session-id>",
	Short: "Show the audit timeline of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()

		action, _ := cmd.Flags().GetString("action")
		entries, err := a.audit.Query(cmd.Context(), audit.QueryFilter{
			SessionID:     args[0],
			Action:        audit.Action(action),
			Chronological: true,
		})
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%s  %-20s %-13s %s\n", e.Timestamp.Local().Format("15:04:05"), e.Action, e.Phase, e.Summary)
		}
		return nil
	},
}

func init() {
	sessionsCmd.Flags().String("status", "", "only sessions with this status (active, finalized, abandoned, archived)")
	sessionsAuditCmd.Flags().String("action", "", "only entries with this action")
	sessionsCmd.AddCommand(sessionsArchiveCmd, sessionsHistoryCmd, sessionsBacklogCmd, sessionsAuditCmd)
	rootCmd.AddCommand(sessionsCmd)
}
