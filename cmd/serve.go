package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sentinelnexus/guard/internal/scanserver"
)

var (
	listenAddr string
	serveToken string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local demo scan server",
	Long:  `Serve the scan wire protocol locally, backed by the offline heuristic engine. Useful for demos and for developing against the streaming API without the hosted backend.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (default from config, :8000)")
	serveCmd.Flags().StringVar(&serveToken, "token", "", "Require this bearer token on REST endpoints")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	addr := listenAddr
	if addr == "" {
		addr = cfg.Server.ListenAddr
	}

	var opts []scanserver.Option
	if serveToken != "" {
		opts = append(opts, scanserver.WithToken(serveToken))
	}
	srv := scanserver.NewServer(addr, opts...)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-sigCh:
		log.Printf("received %v, shutting down", sig)
		if err := srv.Stop(); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}
