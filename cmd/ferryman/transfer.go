package main

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ykushch/ferryman/internal/queue"
	"github.com/ykushch/ferryman/internal/store"
)

var (
	flagOutDir  string
	flagDestDir string
)

var getCmd = &cobra.Command{
	Use:   "get <remote-file>...",
	Short: "Download one or more remote files through the transfer queue",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		mgr, err := connect(ctx)
		if err != nil {
			return err
		}
		defer mgr.Disconnect()

		q := newQueue(mgr)
		var ids []int64
		for _, remotePath := range args {
			var size int64
			if info, err := mgr.FileInfo(remotePath); err == nil {
				size = info.Size
			}
			localPath := filepath.Join(flagOutDir, path.Base(remotePath))
			ids = append(ids, q.Add(queue.DirectionDownload, localPath, remotePath, size))
		}
		return monitor(q, ids)
	},
}

var putCmd = &cobra.Command{
	Use:   "put <local-file>...",
	Short: "Upload one or more local files through the transfer queue",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		mgr, err := connect(ctx)
		if err != nil {
			return err
		}
		defer mgr.Disconnect()

		q := newQueue(mgr)
		var ids []int64
		for _, localPath := range args {
			var size int64
			if info, err := os.Stat(localPath); err == nil {
				size = info.Size()
			}
			remotePath := path.Join(flagDestDir, filepath.Base(localPath))
			ids = append(ids, q.Add(queue.DirectionUpload, localPath, remotePath, size))
		}
		return monitor(q, ids)
	},
}

func init() {
	getCmd.Flags().StringVarP(&flagOutDir, "out", "O", ".", "local directory for downloads")
	putCmd.Flags().StringVarP(&flagDestDir, "dest", "d", ".", "remote directory for uploads")
	rootCmd.AddCommand(getCmd, putCmd)
}

func newQueue(runner queue.Runner) *queue.Queue {
	q := queue.New(runner, cfg.Queue.Capacity)
	q.SetSpeedLimit(cfg.Queue.SpeedLimitBPS)
	if db != nil {
		if mgr, ok := runner.(interface{ ConnectionName() string }); ok {
			q.SetHistorySink(store.NewRecorder(db.History(), mgr.ConnectionName))
		}
	}
	return q
}

// monitor prints a status line per transfer until every tracked id reaches a
// terminal state, then reports failures.
func monitor(q *queue.Queue, ids []int64) error {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	done := map[int64]bool{}
	failed := 0
	for len(done) < len(ids) {
		time.Sleep(200 * time.Millisecond)
		for _, id := range ids {
			if done[id] {
				continue
			}
			snap, err := q.Get(id)
			if err != nil {
				done[id] = true
				continue
			}
			switch {
			case snap.Status == queue.StatusCompleted:
				done[id] = true
				green.Printf("done  %s (%d bytes)\n", snap.RemotePath, snap.Transferred)
			case snap.Status.Terminal():
				done[id] = true
				failed++
				red.Printf("%s  %s: %s\n", snap.Status, snap.RemotePath, snap.Error)
			case snap.Status == queue.StatusRunning:
				fmt.Printf("  %3.0f%%  %s  %s/s\n", snap.Progress, snap.RemotePath, humanBytes(snap.Speed))
			}
		}
	}
	q.Wait()
	if failed > 0 {
		return fmt.Errorf("%d of %d transfers failed", failed, len(ids))
	}
	return nil
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
