package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mediabridge/mediabridge/internal/cache"
	"github.com/mediabridge/mediabridge/internal/catalog"
	"github.com/mediabridge/mediabridge/internal/logging"
	"github.com/mediabridge/mediabridge/internal/metrics"
	"github.com/mediabridge/mediabridge/internal/selection"
	"github.com/mediabridge/mediabridge/internal/thumb"
	"github.com/mediabridge/mediabridge/internal/transport"
	"github.com/mediabridge/mediabridge/internal/transport/factory"
	"github.com/mediabridge/mediabridge/internal/transport/remote"
	"github.com/mediabridge/mediabridge/internal/transport/s3"
)

var rootCmd = &cobra.Command{
	Use:   "mediabridge",
	Short: "Browse and curate media directories, local or remote",
	Long: `mediabridge enumerates a directory of media files (local, over SSH, or
in an S3 bucket), stages remote files into a bounded local cache, and
generates grid thumbnails with a play glyph on videos.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Init(logging.Config{
			Level:  viper.GetString("log-level"),
			Format: viper.GetString("log-format"),
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "console", "log format (console, json)")
	pf.String("metrics-addr", "", "listen address for Prometheus metrics (empty = disabled)")

	// SSH connection parameters, passed through to the transport.
	pf.String("host", "", "SSH host for remote browsing")
	pf.String("user", "", "SSH username")
	pf.Int("port", 22, "SSH port")
	pf.String("key", "", "path to SSH private key")
	pf.String("password", "", "SSH password (prefer key auth)")

	// S3 connection parameters.
	pf.String("s3-bucket", "", "S3 bucket for remote browsing")
	pf.String("s3-endpoint", "", "S3 endpoint URL (for S3-compatible stores)")
	pf.String("s3-region", "us-east-1", "S3 region")
	pf.String("s3-access-key", "", "S3 access key")
	pf.String("s3-secret-key", "", "S3 secret key")

	// Cache engine tuning.
	pf.String("staging-dir", "", "staging directory for remote files (empty = private temp dir)")
	pf.Int64("budget", 0, "staging area budget in bytes (0 = default 512 MiB)")
	pf.Int("workers", 0, "concurrent fetch/synthesis workers (0 = default 4)")
	pf.String("thumbnail-size", "300x200", "thumbnail box as WIDTHxHEIGHT")

	viper.BindPFlags(pf)
}

func initConfig() {
	viper.SetEnvPrefix("MEDIABRIDGE")
	viper.AutomaticEnv()
}

// session wires one browsing pipeline: transport, catalog, cache engine, and
// selection manager, with stale cache records evicted on catalog changes.
type session struct {
	tr     transport.Transport
	cat    *catalog.Catalog
	engine *cache.Engine
	sel    *selection.Manager
}

func openSession(ctx context.Context) (*session, error) {
	tr, err := factory.Dial(ctx, factory.Config{
		SSH: remote.Config{
			Host:     viper.GetString("host"),
			User:     viper.GetString("user"),
			Port:     viper.GetInt("port"),
			KeyPath:  viper.GetString("key"),
			Password: viper.GetString("password"),
		},
		S3: s3.Config{
			Endpoint:  viper.GetString("s3-endpoint"),
			Bucket:    viper.GetString("s3-bucket"),
			AccessKey: viper.GetString("s3-access-key"),
			SecretKey: viper.GetString("s3-secret-key"),
			Region:    viper.GetString("s3-region"),
		},
	})
	if err != nil {
		return nil, err
	}

	if tr.Remote() && !tr.Reachable(ctx) {
		tr.Close()
		return nil, fmt.Errorf("remote transport not reachable")
	}

	w, h, err := parseThumbSize(viper.GetString("thumbnail-size"))
	if err != nil {
		tr.Close()
		return nil, err
	}

	synth := thumb.New(thumb.Options{Width: w, Height: h})
	engine, err := cache.New(tr, synth, cache.Options{
		StagingDir:  viper.GetString("staging-dir"),
		BudgetBytes: viper.GetInt64("budget"),
		Workers:     viper.GetInt("workers"),
	})
	if err != nil {
		tr.Close()
		return nil, err
	}

	cat := catalog.New(tr)
	sel := selection.New(cat, engine, tr)
	cat.OnReplace = func(removed []string) {
		engine.EvictPaths(removed)
		sel.Drop(removed)
	}

	if addr := viper.GetString("metrics-addr"); addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if err := http.ListenAndServe(addr, mux); err != nil {
				logging.Warn("metrics listener stopped", zap.Error(err))
			}
		}()
	}

	return &session{tr: tr, cat: cat, engine: engine, sel: sel}, nil
}

func (s *session) close() {
	if err := s.engine.Close(); err != nil {
		logging.Warn("staging cleanup failed", zap.Error(err))
	}
	s.tr.Close()
}

func parseThumbSize(value string) (w, h int, err error) {
	if n, _ := fmt.Sscanf(value, "%dx%d", &w, &h); n == 2 && w > 0 && h > 0 {
		return w, h, nil
	}
	// A single number means a square box.
	if n, _ := fmt.Sscanf(value, "%d", &w); n == 1 && w > 0 {
		return w, w, nil
	}
	return 0, 0, fmt.Errorf("invalid thumbnail size %q, want WIDTHxHEIGHT", value)
}
