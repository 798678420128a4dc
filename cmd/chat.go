package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/auto-analyst/internal/flow"
	"github.com/ziadkadry99/auto-analyst/internal/progress"
	"github.com/ziadkadry99/auto-analyst/internal/render"
	"github.com/ziadkadry99/auto-analyst/internal/session"
)

const chatHelp = `Answer each question in your own words. Commands:
  /select N          choose option N
  /custom <text>     describe your own approach instead
  /approve           approve the document
  /reject <feedback> ask for a revised document
  /revise key=value  change an earlier answer
  /retry             run the last collaborator step again
  /abandon           stop this session (it can be resumed later)
Press Ctrl+C during a turn to cancel it, or at the prompt to pause.`

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run an analysis session in the terminal",
	Long:  `Starts a new analysis session, or resumes one with --session, and walks you through analysis, solution choice, and documentation.`,
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().String("session", "", "resume the session with this id")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	if a.options != nil {
		a.options.SetProgress(progress.New(os.Stderr, "Researching options"))
	}

	id, _ := cmd.Flags().GetString("session")
	p, err := openChat(cmd.Context(), a.service, id)
	if err != nil {
		return err
	}
	id = p.SessionID

	fmt.Println(chatHelp)
	fmt.Printf("\nSession %s\n\n", id)

	for {
		fmt.Println(render.PromptText(p))
		if p.Kind == flow.KindFinal || p.Kind == flow.KindNotice {
			break
		}

		line, err := readLine()
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			fmt.Printf("\nSession paused. Resume with: analyst chat --session %s\n", id)
			return nil
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		next, err := turn(cmd.Context(), a.service, id, flow.ParseInput(line))
		if err == nil {
			p = next
			continue
		}
		if errors.Is(err, context.Canceled) {
			fmt.Println("\nTurn cancelled; nothing changed.")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		if p, err = a.service.Current(cmd.Context(), id); err != nil {
			return err
		}
	}

	if p.Kind == flow.KindFinal {
		fmt.Printf("Export the document with: analyst export %s --format md\n", id)
	} else {
		fmt.Printf("Resume later with: analyst chat --session %s\n", id)
	}
	return nil
}

// openChat starts a session or picks up an existing one where it stopped.
func openChat(ctx context.Context, svc *flow.Service, id string) (flow.Prompt, error) {
	if id == "" {
		return svc.Start(ctx)
	}
	sess, err := svc.Snapshot(ctx, id)
	if err != nil {
		return flow.Prompt{}, err
	}
	if sess.Status == session.StatusAbandoned {
		return svc.Resume(ctx, id)
	}
	return svc.Current(ctx, id)
}

// turn runs one input with Ctrl+C bound to cancelling it.
func turn(ctx context.Context, svc *flow.Service, id string, in flow.Input) (flow.Prompt, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	return svc.Turn(ctx, id, in)
}

func readLine() (string, error) {
	prompt := promptui.Prompt{
		Label: ">",
	}
	return prompt.Run()
}
