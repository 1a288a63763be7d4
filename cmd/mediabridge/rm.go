package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm <directory> <path>...",
	Short: "Delete media files from a directory",
	Long: `rm loads the directory, selects the given paths, and issues a bulk
delete. Partial failure is reported per entry; failed paths stay put.`,
	Args: cobra.MinimumNArgs(2),
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

		for _, path := range args[1:] {
			if !s.cat.Contains(path) {
				return fmt.Errorf("not in catalog: %s", path)
			}
			s.sel.Toggle(path)
		}

		report := s.sel.DeleteSelected(cmd.Context())
		for _, p := range report.Succeeded {
			fmt.Printf("deleted  %s\n", p)
		}
		for _, f := range report.Failed {
			fmt.Fprintf(os.Stderr, "failed   %s: %v\n", f.Path, f.Err)
		}
		return report.Err()
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
	rmCmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories")
}
