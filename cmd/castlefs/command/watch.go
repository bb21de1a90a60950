package command

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"castlefs/internal/protocol"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print file-changed notifications until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := newSession()
		if err != nil {
			return err
		}
		defer session.Close()

		session.OnFileChanged(func(change protocol.FileChanged) {
			fmt.Printf("%s  %-6s  %s\n", time.Now().Format(time.RFC3339), change.Action, change.Path)
		})

		fmt.Fprintln(os.Stderr, "watching for changes, Ctrl-C to stop")
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
