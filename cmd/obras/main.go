package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/vbonduro/obras/internal/config"
	"github.com/vbonduro/obras/internal/logging"
	"github.com/vbonduro/obras/internal/web"
)

var version = "dev"

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "obras",
		Short:         "Construction site and inspection records",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(serveCmd(), sitesCmd(), exportCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "obras version %s\n", version)
		},
	})
	return cmd
}

// withApp loads configuration, builds the application and runs fn with it.
func withApp(ctx context.Context, fn func(context.Context, *app) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withApp(ctx, func(ctx context.Context, a *app) error {
				server := web.NewServer(a.service, a.photos, a.metrics, a.logger)
				srv := server.HTTPServer(a.cfg.ListenAddr)

				errCh := make(chan error, 1)
				go func() {
					a.logger.Info("starting server", "addr", a.cfg.ListenAddr, "store_backend", a.cfg.StoreBackend)
					errCh <- srv.ListenAndServe()
				}()

				select {
				case err := <-errCh:
					return err
				case <-ctx.Done():
				}

				a.logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("failed to shut down server: %w", err)
				}
				if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
}

func sitesCmd() *cobra.Command {
	var q string

	cmd := &cobra.Command{
		Use:   "sites",
		Short: "List sites, optionally filtered by a search query",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				sites, err := a.service.ListSites(ctx, q, nil)
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tOWNER\tADDRESS\tEND")
				for _, s := range sites {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
						s.ID, s.Name, s.Owner,
						strings.ReplaceAll(s.Address.FormattedAddress, "\t", " "),
						s.EndDate.Format("2006-01-02"))
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVarP(&q, "query", "q", "", "Match name, owner or address")
	return cmd
}

func exportCmd() *cobra.Command {
	var (
		out    string
		siteID string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write sites and inspections to an .xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				data, err := a.service.ExportWorkbook(ctx, siteID)
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, data, 0644); err != nil {
					return fmt.Errorf("failed to write %s: %w", out, err)
				}
				a.logger.Info("workbook exported", "path", out, "bytes", len(data))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "obras.xlsx", "Output file")
	cmd.Flags().StringVar(&siteID, "site", "", "Export only this site")
	return cmd
}
