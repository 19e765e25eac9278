package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var (
	flagBookmarkConn string
	flagBookmarkName string
)

var bookmarkCmd = &cobra.Command{
	Use:   "bookmark",
	Short: "Manage remote path bookmarks",
}

var bookmarkAddCmd = &cobra.Command{
	Use:   "add <remote-path>",
	Short: "Bookmark a remote path under a connection name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireStore(); err != nil {
			return err
		}
		if err := db.Bookmarks().Add(cmd.Context(), flagBookmarkConn, args[0], flagBookmarkName); err != nil {
			return err
		}
		fmt.Printf("bookmarked %s\n", args[0])
		return nil
	},
}

var bookmarkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bookmarks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireStore(); err != nil {
			return err
		}
		bookmarks, err := db.Bookmarks().List(cmd.Context(), flagBookmarkConn)
		if err != nil {
			return err
		}
		if len(bookmarks) == 0 {
			fmt.Println("no bookmarks")
			return nil
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("ID", "Name", "Connection", "Path", "Created")
		for _, b := range bookmarks {
			table.Append([]string{
				strconv.FormatInt(b.ID, 10),
				b.Name,
				b.Connection,
				b.Path,
				b.CreatedAt.Format("2006-01-02 15:04"),
			})
		}
		return table.Render()
	},
}

var bookmarkRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a bookmark by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireStore(); err != nil {
			return err
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid bookmark id %q", args[0])
		}
		found, err := db.Bookmarks().Delete(cmd.Context(), id)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("bookmark %d not found", id)
		}
		fmt.Printf("deleted bookmark %d\n", id)
		return nil
	},
}

func init() {
	bookmarkCmd.PersistentFlags().StringVar(&flagBookmarkConn, "connection", "", "connection name the bookmark belongs to")
	bookmarkAddCmd.Flags().StringVar(&flagBookmarkName, "name", "", "display name (defaults to the path's last element)")
	bookmarkCmd.AddCommand(bookmarkAddCmd, bookmarkListCmd, bookmarkRmCmd)
	rootCmd.AddCommand(bookmarkCmd)
}
