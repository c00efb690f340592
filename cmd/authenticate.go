package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/faceauth/internal/verifier"
)

var authenticateCmd = &cobra.Command{
	Use:   "authenticate <image>",
	Short: "Identify the face in an image",
	Long: `Matches the face in the image against every enrolled user and accepts the
best match when its score reaches the user's adaptive threshold. Exits with an
error when the face is not accepted.`,
	Args: cobra.ExactArgs(1),
	RunE: runAuthenticate,
}

func init() {
	rootCmd.AddCommand(authenticateCmd)

	authenticateCmd.Flags().Bool("json", false, "Output as JSON")
}

var errNotAuthenticated = errors.New("not authenticated")

func runAuthenticate(cmd *cobra.Command, args []string) error {
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

	decision, err := a.service.Authenticate(ctx, img)
	if errors.Is(err, verifier.ErrNoEnrolledUsers) {
		return errors.New("no users enrolled yet, run 'faceauth enroll' first")
	}
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		if err := outputJSON(decision); err != nil {
			return err
		}
	} else {
		fmt.Printf("Best match: %s\n", decision.UserID)
		fmt.Printf("Score:      %.4f\n", decision.Score)
		fmt.Printf("Threshold:  %.4f\n", decision.Threshold)
		if !decision.Enrolled {
			fmt.Println("Note:       user has not completed enrollment")
		}
	}

	if !decision.Authenticated {
		return errNotAuthenticated
	}
	if !mustGetBool(cmd, "json") {
		fmt.Printf("Welcome, %s!\n", decision.UserID)
	}
	return nil
}
