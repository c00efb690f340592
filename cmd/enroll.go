package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/faceauth/internal/facematch"
	"github.com/kozaktomas/faceauth/internal/verifier"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <user> <image|dir>...",
	Short: "Add face samples for a user",
	Long: `Extracts a descriptor from every image and adds it to the user's profile.
Directories are expanded to the images they contain. Samples whose quality is
below min_sample_confidence are skipped.

Examples:
  faceauth enroll "Jan Novák" jan1.jpg jan2.jpg jan3.jpg
  faceauth enroll alice ./captures/alice --confidence 0.9`,
	Args: cobra.MinimumNArgs(2),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().Float64("confidence", 0, "Enrollment confidence to record (default: estimated image quality)")
	enrollCmd.Flags().Bool("raw-id", false, "Use the user id as given instead of normalizing it")
	enrollCmd.Flags().Bool("json", false, "Output as JSON")
}

func userIDArg(cmd *cobra.Command, arg string) string {
	if mustGetBool(cmd, "raw-id") {
		return arg
	}
	return facematch.NormalizeUserID(arg)
}

// EnrollOutput summarizes an enroll run.
type EnrollOutput struct {
	UserID   string                  `json:"user_id"`
	Added    []verifier.EnrollResult `json:"added"`
	Skipped  []string                `json:"skipped,omitempty"`
	Samples  int                     `json:"samples"`
	Required int                     `json:"required"`
	Enrolled bool                    `json:"enrolled"`
}

func runEnroll(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	userID := userIDArg(cmd, args[0])
	jsonOutput := mustGetBool(cmd, "json")

	var confidence *float64
	if cmd.Flags().Changed("confidence") {
		v := mustGetFloat64(cmd, "confidence")
		confidence = &v
	}

	files, err := collectImages(args[1:])
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("no images found")
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	out := EnrollOutput{UserID: userID}

	var bar *progressbar.ProgressBar
	if len(files) > 1 && !jsonOutput {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("Enrolling "+userID),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionFullWidth(),
		)
	}

	for _, path := range files {
		res, err := enrollFile(ctx, a.service, userID, path, confidence)
		if bar != nil {
			bar.Add(1)
		}
		switch {
		case errors.Is(err, verifier.ErrLowConfidenceSample):
			out.Skipped = append(out.Skipped, path)
		case err != nil:
			return err
		default:
			out.Added = append(out.Added, res)
		}
	}

	out.Samples, out.Required = a.store.EnrollmentProgress(userID)
	out.Enrolled = out.Samples >= out.Required

	if jsonOutput {
		return outputJSON(out)
	}

	fmt.Println()
	fmt.Printf("User:     %s\n", userID)
	fmt.Printf("Added:    %d\n", len(out.Added))
	for _, s := range out.Skipped {
		fmt.Printf("Skipped:  %s (quality too low, retry with a better image)\n", s)
	}
	fmt.Printf("Progress: %d/%d samples\n", out.Samples, out.Required)
	if out.Enrolled {
		fmt.Println("Status:   enrolled")
	} else {
		fmt.Printf("Status:   %d more sample(s) needed\n", out.Required-out.Samples)
	}
	return nil
}

func enrollFile(ctx context.Context, svc *verifier.Service, userID, path string, confidence *float64) (verifier.EnrollResult, error) {
	img, err := loadImage(path)
	if err != nil {
		return verifier.EnrollResult{}, err
	}
	res, err := svc.Enroll(ctx, userID, img, confidence)
	if err != nil {
		return verifier.EnrollResult{}, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}
