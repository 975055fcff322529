// sketchsync uploads local p5.js sketch folders to the p5.js web editor.
//
// Every directory under the sketch folder that contains an index.html is a
// sketch. New sketches are created and added to a collection, known ones
// are updated in place. Remote ids are kept in sketchesMap.json so later
// runs update instead of duplicating.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sketchsync/sketchsync/internal/config"
	"github.com/sketchsync/sketchsync/internal/logging"
	"github.com/sketchsync/sketchsync/internal/metrics"
	"github.com/sketchsync/sketchsync/internal/secrets"
	"github.com/sketchsync/sketchsync/internal/state"
	s3state "github.com/sketchsync/sketchsync/internal/state/s3"
	"github.com/sketchsync/sketchsync/internal/syncer"
	"github.com/sketchsync/sketchsync/pkg/client"
	"github.com/sketchsync/sketchsync/pkg/retry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logging.Error("sync failed", logging.Err(err))
		_ = logging.Sync()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sketchsync",
		Short:         "Sync local p5.js sketches to the p5.js web editor",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cmd)
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func run(ctx context.Context, cmd *cobra.Command) error {
	envFile := config.Load().EnvFile
	if f := cmd.Flags().Lookup("env-file"); f != nil && f.Changed {
		envFile = f.Value.String()
	}
	if err := config.LoadEnvFile(envFile); err != nil {
		return err
	}

	cfg := config.Load()
	if err := cfg.Apply(cmd.Flags()); err != nil {
		return err
	}

	if err := logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	}); err != nil {
		return fmt.Errorf("logging init: %w", err)
	}
	defer logging.Sync()

	if cfg.Username != "" && cfg.Password == "" && cfg.PasswordSecretID == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := promptPassword(cmd, cfg.Username)
		if err != nil {
			return err
		}
		cfg.Password = password
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	root, err := filepath.Abs(cfg.SketchFolder)
	if err != nil {
		return fmt.Errorf("resolve sketch folder: %w", err)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %q, check SKETCHES_FOLDER", syncer.ErrFolderNotFound, root)
	}

	password, err := resolvePassword(ctx, cfg)
	if err != nil {
		return err
	}
	cfg.Password = password
	if !cfg.HasCredentials() {
		return config.ErrMissingCredentials
	}

	if cfg.MetricsFile != "" {
		defer func() {
			if err := metrics.WriteFile(cfg.MetricsFile); err != nil {
				logging.Warn("failed to write metrics", logging.String("file", cfg.MetricsFile), logging.Err(err))
			}
		}()
	}

	fs := osfs.New("/")
	store, err := newStore(ctx, cfg, fs, root)
	if err != nil {
		return err
	}

	api := client.New(client.Config{
		BaseURL:     cfg.BaseURL,
		Timeout:     cfg.Timeout,
		RetryConfig: retry.WithAttempts(cfg.RetryAttempts),
		Transport: func(base http.RoundTripper) http.RoundTripper {
			return &logging.Transport{Base: base, Observe: metrics.RecordAPIRequest}
		},
	})

	logging.Info("sketchsync starting",
		logging.String("folder", root),
		logging.String("collection", cfg.CollectionName),
		logging.String("editor", api.BaseURL()),
		logging.String("state", store.String()),
		logging.Bool("dry_run", cfg.DryRun))

	s := syncer.New(syncer.Options{
		FS:             fs,
		Root:           root,
		CollectionName: cfg.CollectionName,
		Remote:         api,
		Store:          store,
		DryRun:         cfg.DryRun,
	})
	sum, err := s.Run(ctx, cfg.Username, cfg.Password)
	if err != nil {
		return err
	}

	if len(sum.Failed) > 0 {
		logging.Warn("some sketches failed", logging.Strings("sketches", sum.Failed))
	}
	if len(sum.Unlinked) > 0 {
		logging.Warn("some sketches were not added to the collection", logging.Strings("sketches", sum.Unlinked))
	}
	return nil
}

// promptPassword reads the password from the terminal without echo.
func promptPassword(cmd *cobra.Command, username string) (string, error) {
	fmt.Fprintf(cmd.ErrOrStderr(), "p5.js editor password for %s: ", username)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

func resolvePassword(ctx context.Context, cfg *config.Config) (string, error) {
	if cfg.Password != "" || cfg.PasswordSecretID == "" {
		return cfg.Password, nil
	}
	resolver, err := secrets.New(ctx, "")
	if err != nil {
		return "", err
	}
	password, err := secrets.Resolve(ctx, resolver, cfg.Password, cfg.PasswordSecretID)
	if err != nil {
		return "", fmt.Errorf("resolve password: %w", err)
	}
	logging.Debug("password loaded from secrets manager", logging.String("secret", cfg.PasswordSecretID))
	return password, nil
}

func newStore(ctx context.Context, cfg *config.Config, fs billy.Filesystem, root string) (state.Store, error) {
	file := state.NewFileStore(fs, root)
	if cfg.StateBackend == "file" {
		return file, nil
	}

	remote, err := s3state.New(ctx, s3state.Config{
		Endpoint:  cfg.StateS3Endpoint,
		Bucket:    cfg.StateS3Bucket,
		Key:       cfg.StateS3Key,
		Region:    cfg.StateS3Region,
		AccessKey: cfg.StateS3AccessKey,
		SecretKey: cfg.StateS3SecretKey,
	})
	if err != nil {
		return nil, err
	}

	switch cfg.StateBackend {
	case "s3":
		return remote, nil
	case "both":
		return &state.Mirror{Primary: file, Secondary: remote}, nil
	}
	return nil, errors.New("unknown state backend " + cfg.StateBackend)
}
