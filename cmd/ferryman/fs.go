package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm <remote-file>...",
	Short: "Delete remote files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer mgr.Disconnect()
		for _, p := range args {
			if err := mgr.DeleteFile(p); err != nil {
				return fmt.Errorf("rm %s: %w", p, err)
			}
		}
		return nil
	},
}

var rmdirCmd = &cobra.Command{
	Use:   "rmdir <remote-dir>",
	Short: "Delete a remote directory and everything under it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer mgr.Disconnect()
		return mgr.DeleteDirRecursive(args[0])
	},
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <remote-dir>...",
	Short: "Create remote directories",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer mgr.Disconnect()
		for _, p := range args {
			if err := mgr.CreateDir(p); err != nil {
				return fmt.Errorf("mkdir %s: %w", p, err)
			}
		}
		return nil
	},
}

var mvCmd = &cobra.Command{
	Use:   "mv <old-path> <new-path>",
	Short: "Rename or move a remote file or directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer mgr.Disconnect()
		return mgr.Rename(args[0], args[1])
	},
}

var chmodCmd = &cobra.Command{
	Use:   "chmod <octal-mode> <remote-path>",
	Short: "Change remote permissions (where the protocol supports it)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := strconv.ParseUint(args[0], 8, 32)
		if err != nil {
			return fmt.Errorf("invalid mode %q: expected octal like 644", args[0])
		}
		mgr, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer mgr.Disconnect()
		return mgr.SetPermissions(args[1], os.FileMode(mode))
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <remote-path>",
	Short: "Show details for one remote path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer mgr.Disconnect()

		info, err := mgr.FileInfo(args[0])
		if err != nil {
			return err
		}
		kind := "file"
		if info.IsDir {
			kind = "directory"
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Field", "Value")
		table.Append([]string{"Path", info.Path})
		table.Append([]string{"Type", kind})
		table.Append([]string{"Size", strconv.FormatInt(info.Size, 10)})
		if !info.ModTime.IsZero() {
			table.Append([]string{"Modified", info.ModTime.Format("2006-01-02 15:04:05")})
		}
		if info.Permissions != "" {
			table.Append([]string{"Permissions", info.Permissions})
		}
		if info.Owner != "" {
			table.Append([]string{"Owner", info.Owner})
		}
		if info.Group != "" {
			table.Append([]string{"Group", info.Group})
		}
		return table.Render()
	},
}

func init() {
	rootCmd.AddCommand(rmCmd, rmdirCmd, mkdirCmd, mvCmd, chmodCmd, infoCmd)
}
