package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history <thread-id>",
	Short: "Print the checkpoint history of a thread",
	Args:  cobra.ExactArgs(1),
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

		history, err := st.History(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(history) == 0 {
			fmt.Printf("no checkpoints for thread %s\n", args[0])
			return nil
		}

		for _, cp := range history {
			stateJSON, err := json.Marshal(cp.State)
			if err != nil {
				return err
			}
			marker := ""
			if cp.Paused() {
				marker = " [paused]"
			}
			fmt.Printf("seq=%d next=%s%s %s\n", cp.Seq, cp.NextNode, marker, stateJSON)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
