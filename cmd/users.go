package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/faceauth/internal/enrollment"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage enrolled users",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled users",
	Args:  cobra.NoArgs,
	RunE:  runUsersList,
}

var usersShowCmd = &cobra.Command{
	Use:   "show <user>",
	Short: "Show enrollment details of a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersShow,
}

var usersRemoveCmd = &cobra.Command{
	Use:   "remove <user>",
	Short: "Remove a user and all samples",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersRemove,
}

var usersExportCmd = &cobra.Command{
	Use:   "export <user>",
	Short: "Export a user's credentials to a JSON file",
	Long: `Writes the user's profile to a portable JSON document. Without --output the
file is written to exported_credentials/<user>_credentials_<timestamp>.json.`,
	Args: cobra.ExactArgs(1),
	RunE: runUsersExport,
}

var usersImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a user's credentials from an export file",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersImport,
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersListCmd, usersShowCmd, usersRemoveCmd, usersExportCmd, usersImportCmd)

	usersListCmd.Flags().Bool("json", false, "Output as JSON")
	usersShowCmd.Flags().Bool("json", false, "Output as JSON")
	usersShowCmd.Flags().Bool("raw-id", false, "Use the user id as given instead of normalizing it")
	usersRemoveCmd.Flags().Bool("raw-id", false, "Use the user id as given instead of normalizing it")
	usersExportCmd.Flags().Bool("raw-id", false, "Use the user id as given instead of normalizing it")
	usersExportCmd.Flags().StringP("output", "o", "", "Output file")
	usersImportCmd.Flags().Bool("overwrite", false, "Replace an existing user with the same id")
}

func runUsersList(cmd *cobra.Command, args []string) error {
	a, err := openApp(context.Background())
	if err != nil {
		return err
	}
	defer a.Close()

	users := a.store.ListUsers()
	if mustGetBool(cmd, "json") {
		return outputJSON(users)
	}

	if len(users) == 0 {
		fmt.Println("No users enrolled")
		return nil
	}
	fmt.Printf("%-24s %-9s %-9s %-11s %s\n", "USER", "SAMPLES", "ENROLLED", "AUTH COUNT", "LAST AUTH")
	for _, u := range users {
		last := "-"
		if u.LastAuthenticatedAt != nil {
			last = u.LastAuthenticatedAt.Local().Format(time.DateTime)
		}
		fmt.Printf("%-24s %-9s %-9t %-11d %s\n", u.UserID,
			fmt.Sprintf("%d/%d", u.SampleCount, u.RequiredSamples), u.Enrolled, u.AuthenticationCount, last)
	}

	stats := a.store.Stats()
	fmt.Printf("\nUsers: %d (%d enrolled), samples: %d\n", stats.Users, stats.EnrolledUsers, stats.Samples)
	return nil
}

func runUsersShow(cmd *cobra.Command, args []string) error {
	userID := userIDArg(cmd, args[0])

	a, err := openApp(context.Background())
	if err != nil {
		return err
	}
	defer a.Close()

	summary, ok := a.store.Snapshot().Summary(userID)
	if !ok {
		return fmt.Errorf("%w: %s", enrollment.ErrUnknownUser, userID)
	}
	profile, _ := a.store.Profile(userID)

	if mustGetBool(cmd, "json") {
		return outputJSON(summary)
	}

	fmt.Printf("User:               %s\n", summary.UserID)
	fmt.Printf("Enrolled:           %t (%d/%d samples)\n", summary.Enrolled, summary.SampleCount, summary.RequiredSamples)
	fmt.Printf("Enrollment date:    %s\n", summary.EnrolledAt.Local().Format(time.DateTime))
	fmt.Printf("Authentications:    %d\n", summary.AuthenticationCount)
	if summary.LastAuthenticatedAt != nil {
		fmt.Printf("Last authenticated: %s\n", summary.LastAuthenticatedAt.Local().Format(time.DateTime))
	}
	fmt.Printf("Average confidence: %.3f\n", summary.AverageConfidence)
	fmt.Println("\nSamples:")
	for _, s := range profile.Samples {
		fmt.Printf("  %s  confidence %.3f  captured %s\n", s.ID, s.Confidence, s.CapturedAt.Local().Format(time.DateTime))
	}
	return nil
}

func runUsersRemove(cmd *cobra.Command, args []string) error {
	userID := userIDArg(cmd, args[0])

	a, err := openApp(context.Background())
	if err != nil {
		return err
	}
	defer a.Close()

	removed, err := a.store.RemoveUser(context.Background(), userID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("%w: %s", enrollment.ErrUnknownUser, userID)
	}
	fmt.Printf("Removed user %s\n", userID)
	return nil
}

// defaultExportPath returns exported_credentials/<user>_credentials_<YYYYMMDD_HHMMSS>.json.
func defaultExportPath(userID string, now time.Time) string {
	return filepath.Join("exported_credentials",
		fmt.Sprintf("%s_credentials_%s.json", userID, now.Format("20060102_150405")))
}

func runUsersExport(cmd *cobra.Command, args []string) error {
	userID := userIDArg(cmd, args[0])

	a, err := openApp(context.Background())
	if err != nil {
		return err
	}
	defer a.Close()

	exp, err := a.store.ExportUser(userID)
	if err != nil {
		return err
	}

	path := mustGetString(cmd, "output")
	if path == "" {
		path = defaultExportPath(userID, exp.ExportedAt.Local())
	}
	if err := writeExport(path, exp); err != nil {
		return err
	}

	fmt.Printf("Exported %s (%d samples) to %s\n", userID, len(exp.UserData.Samples), path)
	return nil
}

func writeExport(path string, exp *enrollment.UserExport) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}
	data, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return nil
}

func readExport(path string) (*enrollment.UserExport, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}
	var exp enrollment.UserExport
	if err := json.Unmarshal(data, &exp); err != nil {
		return nil, fmt.Errorf("parsing export %s: %w", path, err)
	}
	return &exp, nil
}

func runUsersImport(cmd *cobra.Command, args []string) error {
	exp, err := readExport(args[0])
	if err != nil {
		return err
	}

	a, err := openApp(context.Background())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.ImportUser(context.Background(), exp, mustGetBool(cmd, "overwrite")); err != nil {
		return err
	}

	count, required := a.store.EnrollmentProgress(exp.UserID)
	fmt.Printf("Imported %s (%d/%d samples)\n", exp.UserID, count, required)
	return nil
}
