package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ykushch/ferryman/internal/refresh"
	"github.com/ykushch/ferryman/internal/remote"
)

var flagWatch time.Duration

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List a remote directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		mgr, err := connect(ctx)
		if err != nil {
			return err
		}
		defer mgr.Disconnect()

		path := ""
		if len(args) == 1 {
			path = args[0]
			if err := mgr.ChangeDir(path); err != nil {
				return err
			}
		}

		if flagWatch <= 0 {
			lines, err := mgr.List("")
			if err != nil {
				return err
			}
			renderListing(mgr.CurrentDir(), remote.ParseLines(lines))
			return nil
		}

		// Watch mode re-lists on a timer; bursts of requests coalesce so a
		// slow server never piles up listings.
		coord := refresh.New(mgr,
			func(r refresh.Result) { renderListing(r.Path, r.Entries) },
			func(err error) { fmt.Fprintf(os.Stderr, "refresh failed: %v\n", err) })
		coord.Request()

		ticker := time.NewTicker(flagWatch)
		defer ticker.Stop()
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		for {
			select {
			case <-ticker.C:
				coord.Request()
			case <-stop:
				return nil
			}
		}
	},
}

func init() {
	lsCmd.Flags().DurationVar(&flagWatch, "watch", 0, "re-list every interval (e.g. 2s); 0 disables")
	rootCmd.AddCommand(lsCmd)
}

func renderListing(path string, entries []remote.Entry) {
	fmt.Printf("%s: %d entries\n", path, len(entries))
	if len(entries) == 0 {
		return
	}

	dirColor := color.New(color.FgCyan, color.Bold)
	linkColor := color.New(color.FgMagenta)

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Permissions", "Owner", "Group", "Size", "Modified", "Name")
	for _, e := range entries {
		name := e.Name
		switch {
		case e.IsDir:
			name = dirColor.Sprint(name + "/")
		case len(e.Permissions) > 0 && e.Permissions[0] == 'l':
			name = linkColor.Sprint(name + "@")
		}
		size := strconv.FormatInt(e.Size, 10)
		if e.IsDir {
			size = "-"
		}
		table.Append([]string{e.Permissions, e.Owner, e.Group, size, e.ModDisplay, name})
	}
	if err := table.Render(); err != nil {
		fmt.Fprintf(os.Stderr, "render listing: %v\n", err)
	}
}
