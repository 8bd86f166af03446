package main

import (
	"WhatsInbox/internal/api/config"
	"WhatsInbox/internal/loader"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	baseURL       string
	dataDir       string
	delay         time.Duration
	analyze       bool
	businessPhone string
)

var rootCmd = &cobra.Command{
	Use:   "loader",
	Short: "Replay sample WhatsApp webhook payloads",
	Long: `Posts every *.json file in a directory, in name order, to the
webhook endpoint of a running inbox server.

Examples:
  loader --dir sample-data
  loader --dir sample-data --url http://localhost:6002 --delay 100ms
  loader --dir sample-data --analyze`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&baseURL, "url", "u", "http://localhost:6002", "server base url")
	rootCmd.Flags().StringVarP(&dataDir, "dir", "d", "sample-data", "directory of payload files")
	rootCmd.Flags().DurationVar(&delay, "delay", 100*time.Millisecond, "pause between payloads")
	rootCmd.Flags().BoolVar(&analyze, "analyze", false, "print a summary of each payload without posting")
	rootCmd.Flags().StringVar(&businessPhone, "business-phone", "", "business number used to infer direction (defaults to config)")
}

func run(cmd *cobra.Command, _ []string) error {
	if analyze {
		phone := businessPhone
		if phone == "" && config.LoadConfig() == nil {
			phone = config.Cfg.Business.Phone
		}
		return loader.Analyze(cmd.OutOrStdout(), dataDir, phone)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l := loader.New(baseURL, delay)
	if err := l.CheckHealth(ctx); err != nil {
		return fmt.Errorf("%w, start it first", err)
	}

	res, err := l.LoadDir(ctx, dataDir)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "processed %d payload(s): %d ok, %d failed\n", res.Total, res.Succeeded, res.Failed)
	if res.Failed > 0 {
		return fmt.Errorf("%d payload(s) failed", res.Failed)
	}
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
