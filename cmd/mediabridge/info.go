package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mediabridge/mediabridge/internal/thumb"
	"github.com/mediabridge/mediabridge/internal/transport"
)

var infoCmd = &cobra.Command{
	Use:   "info <directory> <path>",
	Short: "Show details for one media file, staging it locally if remote",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		recursive, _ := cmd.Flags().GetBool("recursive")

		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		if err := s.cat.Load(cmd.Context(), args[0], recursive); err != nil {
			return err
		}

		entry, ok := s.cat.Get(args[1])
		if !ok {
			return fmt.Errorf("not in catalog: %s", args[1])
		}

		localPath, err := s.engine.Materialize(cmd.Context(), entry)
		if err != nil {
			return err
		}
		defer s.engine.Release(entry.Path)

		fmt.Printf("path:     %s\n", entry.Path)
		fmt.Printf("kind:     %s\n", entry.Kind)
		fmt.Printf("size:     %d\n", entry.Size)
		fmt.Printf("modified: %s\n", entry.ModTime.Format("2006-01-02 15:04:05"))
		fmt.Printf("local:    %s\n", localPath)

		if entry.Kind == transport.KindImage {
			if w, h, err := thumb.ImageDimensions(localPath); err == nil {
				fmt.Printf("pixels:   %dx%d\n", w, h)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories")
}
