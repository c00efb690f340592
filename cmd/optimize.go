package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Trim every profile to the sample cap",
	Long: `Keeps the max_samples_per_user highest-confidence samples of every user and
discards the rest. Useful after lowering max_samples_per_user.`,
	Args: cobra.NoArgs,
	RunE: runOptimize,
}

func init() {
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	removed, err := a.store.Optimize(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d sample(s)\n", removed)
	return nil
}
