package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sentinelnexus/guard/internal/models"
	"github.com/sentinelnexus/guard/internal/stream"
)

var monitorServer string

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Follow the live activity feed",
	Long:  `Subscribe to the backend's global activity feed and print new scan activity as it happens. Runs until interrupted.`,
	RunE:  runMonitor,
}

func init() {
	monitorCmd.Flags().StringVar(&monitorServer, "server", "", "WebSocket scan endpoint (overrides config)")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	wsURL := monitorServer
	if wsURL == "" {
		wsURL = cfg.API.WSURL
	}

	// мониторинг живёт до Ctrl+C, дедлайна нет
	conn, err := stream.Dial(context.Background(), wsURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.Subscribe(); err != nil {
		return err
	}

	fmt.Printf("Following activity feed at %s (Ctrl+C to stop)\n\n", wsURL)

	for ev := range conn.Events() {
		activity, ok := ev.(models.ActivityEvent)
		if !ok {
			continue
		}
		c := severityColor(activity.Severity)
		fmt.Printf("%s %s %s\n",
			time.Now().Format("15:04:05"),
			c.Sprintf("[%s]", activity.Severity),
			activity.Message)
		if activity.Details != "" {
			fmt.Printf("         %s\n", activity.Details)
		}
	}

	return fmt.Errorf("feed connection closed")
}
