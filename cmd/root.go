package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pose-check",
	Short: "A duplicate and authenticity checker for submitted photos",
	Long: `Pose Check detects near-duplicate photo submissions using perceptual
hashing and semantic embeddings, tracks who submitted what, and decides
whether a submission is an original, a rescan, or a fake.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
