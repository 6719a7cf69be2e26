// The unlockmate CLI drives the request lifecycle against the local JSON
// store, mirroring the client-only deployment where no server is running.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/unlockmate/internal/analyzer"
	"github.com/dharsanguruparan/unlockmate/internal/config"
	"github.com/dharsanguruparan/unlockmate/internal/fulfill"
	"github.com/dharsanguruparan/unlockmate/internal/lifecycle"
	"github.com/dharsanguruparan/unlockmate/internal/query"
	"github.com/dharsanguruparan/unlockmate/internal/store"
)

var storePath string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "unlockmate: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unlockmate",
		Short: "UnlockMate local request manager",
		Long: `UnlockMate CLI manages unlock requests in a local JSON store: submit document
URLs, fulfill them with files or links, record payments and inspect stats.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&storePath, "store", "s", "", "Path to the JSON request store (defaults to UNLOCKMATE_STORE_PATH)")
	cmd.AddCommand(
		newListCmd(),
		newCreateCmd(),
		newFulfillCmd(),
		newPayCmd(),
		newCancelCmd(),
		newStatsCmd(),
	)
	return cmd
}

type env struct {
	cfg        *config.Config
	store      *store.FileStore
	controller *lifecycle.Controller
}

func newEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	path := storePath
	if path == "" {
		path = cfg.LocalStorePath
	}
	fs, err := store.NewFileStore(path)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, store: fs, controller: lifecycle.New(fs)}, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newListCmd() *cobra.Command {
	var status, search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List requests, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			requests, err := e.store.GetAll(cmd.Context())
			if err != nil {
				return err
			}
			if status != "" || search != "" {
				requests = query.Filter(requests, status, search)
			}
			return printJSON(requests)
		},
	}
	cmd.Flags().StringVar(&status, "status", query.FilterAll, "Filter by status (ALL, REQUESTED, PAYMENT_REQUIRED, READY, FAILED)")
	cmd.Flags().StringVar(&search, "search", "", "Case-insensitive search over title and URL")
	return cmd
}

func newCreateCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "create <url>",
		Short: "Submit a new unlock request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			var a analyzer.Analyzer
			if e.cfg.GeminiAPIKey != "" {
				a = analyzer.NewGemini(e.cfg.GeminiAPIKey, e.cfg.GeminiModel)
			}
			meta := analyzer.AnalyzeOrFallback(cmd.Context(), a, args[0])
			req, err := e.controller.Create(cmd.Context(), args[0], meta, email)
			if err != nil {
				return err
			}
			return printJSON(req)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Contact address for the ready notification")
	return cmd
}

func newFulfillCmd() *cobra.Command {
	var link, file string
	cmd := &cobra.Command{
		Use:   "fulfill <id>",
		Short: "Attach a deliverable and mark the request payable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			deliverable := fulfill.Deliverable{ExternalLink: link}
			if file != "" {
				content, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read deliverable: %w", err)
				}
				deliverable.File = &fulfill.FileUpload{Name: filepath.Base(file), Content: content}
			}
			svc := fulfill.New(e.controller, newLocalBlobs(e.storeDir()), nil)
			req, err := svc.Fulfill(cmd.Context(), args[0], deliverable)
			if err != nil {
				return err
			}
			return printJSON(req)
		},
	}
	cmd.Flags().StringVar(&link, "link", "", "External link to the unlocked document")
	cmd.Flags().StringVar(&file, "file", "", "Path to the deliverable file")
	return cmd
}

func newPayCmd() *cobra.Command {
	var tier string
	cmd := &cobra.Command{
		Use:   "pay <id>",
		Short: "Record a successful payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			req, err := e.controller.ConfirmPayment(cmd.Context(), args[0], unlockTypeFromFlag(tier))
			if err != nil {
				return err
			}
			return printJSON(req)
		},
	}
	cmd.Flags().StringVar(&tier, "type", "SINGLE", "Unlock type (SINGLE or LIFETIME)")
	return cmd
}

func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			req, err := e.controller.Cancel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(req)
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard stats over the full collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			requests, err := e.store.GetAll(cmd.Context())
			if err != nil {
				return err
			}
			pricing := query.Pricing{SingleCents: e.cfg.PriceSingleCents, LifetimeCents: e.cfg.PriceLifetimeCents}
			return printJSON(query.Compute(requests, pricing))
		},
	}
}
