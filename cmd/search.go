package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/faceauth/internal/constants"
)

var searchCmd = &cobra.Command{
	Use:   "search <image>",
	Short: "List the enrolled samples nearest to a face",
	Long: `Finds the k enrolled samples most similar to the face in the image.
This does not authenticate; use it to inspect the store.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().Int("k", constants.DefaultSearchLimit, "Number of samples to return")
	searchCmd.Flags().Bool("json", false, "Output as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	img, err := loadImage(args[0])
	if err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	candidates, err := a.service.Candidates(ctx, img, mustGetInt(cmd, "k"))
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(candidates)
	}

	if len(candidates) == 0 {
		fmt.Println("No enrolled samples")
		return nil
	}
	fmt.Printf("%-4s %-24s %-38s %s\n", "#", "USER", "SAMPLE", "SIMILARITY")
	for i, c := range candidates {
		fmt.Printf("%-4d %-24s %-38s %.4f\n", i+1, c.UserID, c.SampleID, c.Similarity)
	}
	return nil
}
