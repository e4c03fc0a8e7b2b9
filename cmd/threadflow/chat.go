package main

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mwhite-dev/threadflow/graph"
	"github.com/mwhite-dev/threadflow/triage"
)

var (
	chatThreadID string
	chatApprove  bool
	chatDeny     bool
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Run one turn against a thread",
	Long: `Runs a single workflow turn. With a message argument it starts a fresh
turn (generating a thread id unless --thread is given). With --approve or
--deny it resumes the paused thread named by --thread.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		st, cleanup, err := buildStore(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		engine, err := buildEngine(cfg, st)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		var result graph.TurnResult[triage.State]
		threadID := chatThreadID

		switch {
		case chatApprove || chatDeny:
			if chatApprove && chatDeny {
				return errors.New("--approve and --deny are mutually exclusive")
			}
			if threadID == "" {
				return errors.New("--thread is required when resuming")
			}
			result, err = engine.Invoke(ctx, threadID, nil, &graph.Command{Resume: chatApprove})
		case len(args) == 1:
			if threadID == "" {
				id := uuid.New()
				threadID = fmt.Sprintf("%x", id[:])
			}
			initial := triage.NewState(args[0])
			result, err = engine.Invoke(ctx, threadID, &initial, nil)
		default:
			return errors.New("provide a message, or --approve/--deny with --thread")
		}
		if err != nil {
			return err
		}

		if result.Status == graph.StatusPaused {
			fmt.Printf("PAUSED_FOR_APPROVAL %s\n", threadID)
			fmt.Printf("  resume with: threadflow chat --thread %s --approve (or --deny)\n", threadID)
			return nil
		}

		fmt.Printf("DONE %s %s %s\n", result.State.Intent, result.State.Risk, result.State.ActionResult)
		fmt.Printf("  thread: %s\n", threadID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatThreadID, "thread", "", "thread id to continue or resume")
	chatCmd.Flags().BoolVar(&chatApprove, "approve", false, "resume the paused thread with approval")
	chatCmd.Flags().BoolVar(&chatDeny, "deny", false, "resume the paused thread with denial")
}
