package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <image-file>",
	Short: "Run a one-shot duplicate check for an image",
	Long: `Check evaluates a single image file against the collection and prints
the verdict as JSON. The scan is recorded exactly as it would be through
the API.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().String("submitter", "", "Account id recorded with the scan (required)")
	if err := checkCmd.MarkFlagRequired("submitter"); err != nil {
		panic(err)
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	submitter := mustGetString(cmd, "submitter")
	if submitter == "" {
		return errors.New("--submitter must not be empty")
	}

	imageData, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading image file: %w", err)
	}

	ctx := context.Background()

	b, err := openBackends(ctx)
	if err != nil {
		return err
	}
	defer b.close()

	ch, err := b.newChecker(ctx)
	if err != nil {
		return err
	}

	verdict, err := ch.Evaluate(ctx, imageData, submitter)
	if err != nil {
		return fmt.Errorf("evaluating image: %w", err)
	}

	out, err := json.MarshalIndent(verdict, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding verdict: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
