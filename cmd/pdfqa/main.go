// Package main PDF QA API Server
//
//	@title			PDF QA API
//	@version		1.0
//	@description	Upload PDFs and ask questions answered from their content, streamed as newline-delimited JSON
//
//	@host		localhost:9000
//	@BasePath	/
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "pdfqa/docs" // registers the swagger spec
	"pdfqa/internal/config"
	"pdfqa/internal/models"
	"pdfqa/internal/server"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "pdfqa",
		Short:         "PDF question answering backend",
		Long:          "pdfqa ingests PDFs into a vector index and answers questions about them with a local LLM.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if configPath != "" {
				_ = os.Setenv(config.ConfigPathEnv, configPath)
			}
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (overrides "+config.ConfigPathEnv+")")

	root.AddCommand(serveCmd())
	root.AddCommand(ingestCmd())
	root.AddCommand(askCmd())
	root.AddCommand(listCmd())

	if err := root.Execute(); err != nil {
		log.Printf("❌ %v", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Println("Starting PDF QA server...")
			srv, svc, err := server.NewServer(cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			errCh := make(chan error, 1)
			go func() {
				log.Printf("Listening on %s", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server failed: %w", err)
				}
			case <-ctx.Done():
				log.Println("Shutting down...")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			log.Println("Server stopped")
			return nil
		},
	}
}

func ingestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file.pdf>",
		Short: "Ingest a PDF without going through HTTP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := loadServices()
			if err != nil {
				return err
			}
			defer svc.Close()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := svc.Ingestion.Ingest(ctx, args[0], data)
			if err != nil {
				return err
			}
			return printJSON(models.UploadResponse{
				PDFID:   result.CollectionID,
				Message: "PDF processed successfully",
				Stats:   models.UploadStats{Chunks: result.ChunkCount},
			})
		},
	}
}

func askCmd() *cobra.Command {
	var pdfID string
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question and print the event stream as ndjson",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := loadServices()
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			req := models.AskRequest{Question: args[0]}
			if pdfID != "" {
				req.PDFID = &pdfID
			}

			events, err := svc.Query.Ask(ctx, req)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			for ev := range events {
				if err := enc.Encode(ev); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&pdfID, "pdf-id", "", "ground the answer in this PDF")
	return cmd
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List ingested PDFs",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := loadServices()
			if err != nil {
				return err
			}
			defer svc.Close()

			pdfs, err := svc.Collections.ListPDFs(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(models.PDFListResponse{PDFs: pdfs})
		},
	}
}

func loadServices() (*server.Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return server.NewServices(cfg, log.New(os.Stderr, "[CLI] ", log.LstdFlags))
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
