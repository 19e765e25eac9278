package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ykushch/ferryman/internal/queue"
)

var (
	flagHistoryLimit int
	flagConnection   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded transfer history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireStore(); err != nil {
			return err
		}
		entries, err := db.History().List(cmd.Context(), flagConnection, flagHistoryLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("no transfer history")
			return nil
		}

		green := color.New(color.FgGreen)
		red := color.New(color.FgRed)
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("When", "Connection", "Op", "Remote path", "Status", "Size", "Duration")
		for _, e := range entries {
			status := e.Status
			switch e.Status {
			case string(queue.StatusCompleted):
				status = green.Sprint(e.Status)
			case string(queue.StatusFailed):
				status = red.Sprint(e.Status)
			}
			table.Append([]string{
				e.CreatedAt.Format("2006-01-02 15:04:05"),
				e.Connection,
				e.Operation,
				e.RemotePath,
				status,
				strconv.FormatInt(e.Size, 10),
				e.Duration.String(),
			})
		}
		return table.Render()
	},
}

func init() {
	historyCmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", 50, "maximum entries to show")
	historyCmd.Flags().StringVar(&flagConnection, "connection", "", "filter by connection name")
	rootCmd.AddCommand(historyCmd)
}
