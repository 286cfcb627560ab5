package cli

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var stopTimeout time.Duration

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the Mistalic server",
	Long: `Stop the Mistalic server started with mistalic serve.

The server receives SIGTERM, drains in-flight requests and closes its
storage. If it is still alive after --timeout it is killed.`,
	Args: cobra.NoArgs,
	RunE: runStop,
}

func init() {
	stopCmd.Flags().DurationVar(&stopTimeout, "timeout", 30*time.Second, "how long to wait for a graceful stop before SIGKILL")
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	pidFile := getPIDFilePath()
	out := cmd.OutOrStdout()

	pid, err := readPID(pidFile)
	if err != nil || !isRunning(pidFile) {
		return fmt.Errorf("server is not running")
	}

	fmt.Fprintf(out, "Stopping server (PID %d)...\n", pid)
	if err := signalServer(pidFile, syscall.SIGTERM); err != nil {
		return err
	}

	if waitForExit(pidFile, stopTimeout) {
		_ = os.Remove(pidFile)
		fmt.Fprintln(out, "Server stopped successfully")
		return nil
	}

	fmt.Fprintf(out, "Server still running after %s, sending SIGKILL\n", stopTimeout)
	if err := signalServer(pidFile, syscall.SIGKILL); err != nil {
		return err
	}
	_ = os.Remove(pidFile)
	fmt.Fprintln(out, "Server killed")
	return nil
}

// waitForExit polls until the process in pidFile is gone or timeout passes.
func waitForExit(pidFile string, timeout time.Duration) bool {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(timeout)

	for {
		if !isRunning(pidFile) {
			return true
		}
		select {
		case <-ticker.C:
		case <-deadline:
			return !isRunning(pidFile)
		}
	}
}
