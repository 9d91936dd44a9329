package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "Inspect the image collection",
}

var imagesCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print collection counters",
	RunE:  runImagesCount,
}

var imagesInfoCmd = &cobra.Command{
	Use:   "info <image-id>",
	Short: "Show one image record with its submitters",
	Args:  cobra.ExactArgs(1),
	RunE:  runImagesInfo,
}

var imagesVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Audit that every image has an indexed embedding",
	Long: `Verify walks the whole image collection and checks that each record
has a matching embedding row. Images without an embedding are invisible
to semantic matching and should be resubmitted or removed.`,
	RunE: runImagesVerify,
}

func init() {
	rootCmd.AddCommand(imagesCmd)
	imagesCmd.AddCommand(imagesCountCmd)
	imagesCmd.AddCommand(imagesInfoCmd)
	imagesCmd.AddCommand(imagesVerifyCmd)

	imagesVerifyCmd.Flags().Bool("quiet", false, "Only print the summary")
}

func runImagesCount(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	b, err := openBackends(ctx)
	if err != nil {
		return err
	}
	defer b.close()

	images, err := b.store.CountImages(ctx)
	if err != nil {
		return fmt.Errorf("counting images: %w", err)
	}
	scans, err := b.store.CountScans(ctx)
	if err != nil {
		return fmt.Errorf("counting scans: %w", err)
	}
	embeddings, err := b.index.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting embeddings: %w", err)
	}

	fmt.Printf("Images:     %d\n", images)
	fmt.Printf("Scans:      %d\n", scans)
	fmt.Printf("Embeddings: %d\n", embeddings)
	if b.index.IsHNSWEnabled() {
		fmt.Printf("HNSW graph: %d entries\n", b.index.HNSWCount())
	}
	return nil
}

func runImagesInfo(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid image id %q", args[0])
	}

	ctx := context.Background()

	b, err := openBackends(ctx)
	if err != nil {
		return err
	}
	defer b.close()

	img, err := b.store.GetImage(ctx, id)
	if err != nil {
		return fmt.Errorf("loading image %d: %w", id, err)
	}
	if img == nil {
		return fmt.Errorf("image %d not found", id)
	}

	indexed, err := b.index.HasEmbedding(ctx, strconv.FormatInt(img.ID, 10))
	if err != nil {
		return fmt.Errorf("checking embedding for image %d: %w", id, err)
	}

	submitters, err := b.store.SubmittersFor(ctx, []int64{img.ID})
	if err != nil {
		return fmt.Errorf("loading submitters for image %d: %w", id, err)
	}

	fmt.Printf("Image:      %d\n", img.ID)
	fmt.Printf("PHash:      %s\n", img.PHash)
	fmt.Printf("Created:    %s\n", img.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Embedded:   %t\n", indexed)
	if img.Caption != "" {
		fmt.Printf("Caption:    %s\n", img.Caption)
	}
	fmt.Printf("Submitters: %d\n", len(submitters))
	for _, s := range submitters {
		fmt.Printf("  - %s\n", s)
	}
	return nil
}

func runImagesVerify(cmd *cobra.Command, args []string) error {
	quiet := mustGetBool(cmd, "quiet")
	ctx := context.Background()

	b, err := openBackends(ctx)
	if err != nil {
		return err
	}
	defer b.close()

	images, err := b.store.ListImages(ctx)
	if err != nil {
		return fmt.Errorf("listing images: %w", err)
	}

	bar := progressbar.NewOptions(len(images),
		progressbar.OptionSetDescription("Verifying embeddings"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	var missing []int64
	for _, img := range images {
		ok, err := b.index.HasEmbedding(ctx, strconv.FormatInt(img.ID, 10))
		if err != nil {
			return fmt.Errorf("checking image %d: %w", img.ID, err)
		}
		if !ok {
			missing = append(missing, img.ID)
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	if !quiet {
		for _, id := range missing {
			fmt.Printf("image %d has no embedding\n", id)
		}
	}
	fmt.Printf("Checked %d images, %d missing embeddings\n", len(images), len(missing))

	if len(missing) > 0 {
		return fmt.Errorf("%d images are missing embeddings", len(missing))
	}
	return nil
}
