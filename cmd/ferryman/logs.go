package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var (
	flagLogLevel string
	flagLogLimit int
	flagLogConn  string
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show persisted application events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireStore(); err != nil {
			return err
		}
		entries, err := db.Logs().List(cmd.Context(), flagLogLevel, flagLogConn, flagLogLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("no logged events")
			return nil
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("When", "Level", "Connection", "Message")
		for _, e := range entries {
			table.Append([]string{
				e.CreatedAt.Format("2006-01-02 15:04:05"),
				e.Level,
				e.Connection,
				e.Message,
			})
		}
		return table.Render()
	},
}

func init() {
	logsCmd.Flags().StringVar(&flagLogLevel, "level", "", "filter by level")
	logsCmd.Flags().StringVar(&flagLogConn, "connection", "", "filter by connection name")
	logsCmd.Flags().IntVarP(&flagLogLimit, "limit", "n", 100, "maximum entries to show")
	rootCmd.AddCommand(logsCmd)
}
