package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract <image>",
	Short: "Print the face descriptor of an image",
	Long:  `Runs preprocessing and feature extraction and prints the descriptor as JSON.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

// ExtractOutput is the JSON output of the extract command.
type ExtractOutput struct {
	File       string    `json:"file"`
	Length     int       `json:"length"`
	Quality    float64   `json:"quality"`
	Descriptor []float64 `json:"descriptor"`
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	img, err := loadImage(args[0])
	if err != nil {
		return err
	}

	pre, ext, err := newPipeline(cfg)
	if err != nil {
		return err
	}

	canonical, quality, err := pre.ProcessWithQuality(img)
	if err != nil {
		return fmt.Errorf("preprocessing %s: %w", args[0], err)
	}
	descriptor := ext.Extract(canonical)

	return outputJSON(ExtractOutput{
		File:       args[0],
		Length:     len(descriptor),
		Quality:    quality,
		Descriptor: descriptor,
	})
}
