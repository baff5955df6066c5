package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"roleman/history"
)

var flagHistoryLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent role selections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ledger := history.NewLedger(history.DefaultPath())
		records, err := ledger.Recent(flagHistoryLimit)
		if err != nil {
			return err
		}
		for _, record := range records {
			fmt.Println(history.FormatRecord(record))
		}
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the selection history",
	Long: `Deletes the selection history ledger. Avoid running this concurrently with
an active selection in another terminal.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return history.NewLedger(history.DefaultPath()).Clear()
	},
}

func init() {
	historyCmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", 20, "Maximum entries to show")
	historyCmd.AddCommand(historyClearCmd)
	RootCmd.AddCommand(historyCmd)
}
