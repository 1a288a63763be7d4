package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mediabridge/mediabridge/internal/logging"
	"github.com/mediabridge/mediabridge/internal/transport"
)

var thumbsCmd = &cobra.Command{
	Use:   "thumbs <directory>",
	Short: "Generate thumbnails for every media file in a directory",
	Long: `thumbs runs the full pipeline headless: enumerate the directory, stage
remote files, synthesize thumbnails, and write them as PNGs to the output
directory. Per-entry failures are reported and never abort the batch.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recursive, _ := cmd.Flags().GetBool("recursive")
		outDir, _ := cmd.Flags().GetString("out")

		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("create output dir %s: %w", outDir, err)
		}

		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		if err := s.cat.Load(cmd.Context(), args[0], recursive); err != nil {
			return err
		}

		entries := s.cat.Entries()
		var failed int
		for _, entry := range entries {
			img, err := s.engine.Resolve(cmd.Context(), entry)
			if err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "FAIL  %s: %v\n", entry.Path, err)
				continue
			}

			out := filepath.Join(outDir, transport.StageName(entry.Path)+".png")
			if err := imaging.Save(img, out); err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "FAIL  %s: %v\n", entry.Path, err)
				continue
			}
			fmt.Printf("OK    %s -> %s\n", entry.Path, out)
		}

		logging.Info("thumbnail batch finished",
			zap.Int("total", len(entries)),
			zap.Int("failed", failed))
		if failed > 0 {
			return fmt.Errorf("%d of %d thumbnails failed", failed, len(entries))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(thumbsCmd)
	thumbsCmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories")
	thumbsCmd.Flags().StringP("out", "o", "thumbs", "output directory for thumbnail PNGs")
}
