package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jblacklock/beast-blogger/internal/content"
	"github.com/jblacklock/beast-blogger/internal/publish"
	"github.com/jblacklock/beast-blogger/internal/store"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Upload queued drafts to the storefront blog",
	Long:  "Uploads queued drafts from a post dataset to the storefront blog as unpublished articles. Failures are per-post; the batch always runs to the end.",
	RunE:  runPublish,
}

var (
	publishConfigPath string
	publishDataDir    string
	publishDatasetID  string
	publishShopDomain string
	publishBlogToken  string
	publishBlogID     string
	publishVerbose    bool
)

func init() {
	publishCmd.Flags().StringVar(&publishConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	publishCmd.Flags().StringVar(&publishDataDir, "data-dir", "", "Directory holding the dataset artifact")
	publishCmd.Flags().StringVarP(&publishDatasetID, "dataset", "d", "", "Post dataset to publish from (required)")
	publishCmd.Flags().StringVar(&publishShopDomain, "shop", "", "Storefront domain, e.g. my-shop.myshopify.com")
	publishCmd.Flags().StringVar(&publishBlogToken, "token", "", "Blog API access token (optional, defaults to BLOG_API_TOKEN env var)")
	publishCmd.Flags().StringVar(&publishBlogID, "blog-id", "", "Target blog id on the storefront")
	publishCmd.Flags().BoolVarP(&publishVerbose, "verbose", "v", false, "Print detailed debug information")

	if err := publishCmd.MarkFlagRequired("dataset"); err != nil {
		panic(fmt.Sprintf("failed to mark dataset flag as required: %v", err))
	}

	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadBaseConfig(publishConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir = publishDataDir
	}
	if cmd.Flags().Changed("shop") {
		cfg.ShopDomain = publishShopDomain
	}
	if cmd.Flags().Changed("token") {
		cfg.BlogToken = publishBlogToken
	}
	if cmd.Flags().Changed("blog-id") {
		cfg.BlogID = publishBlogID
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = publishVerbose
	}
	if cfg.BlogToken == "" {
		cfg.BlogToken = os.Getenv("BLOG_API_TOKEN")
	}

	if cfg.ShopDomain == "" {
		return fmt.Errorf("--shop is required (via flag or config)")
	}
	if cfg.BlogToken == "" {
		return fmt.Errorf("BLOG_API_TOKEN environment variable or --token flag is required")
	}
	if cfg.BlogID == "" {
		return fmt.Errorf("--blog-id is required (via flag or config)")
	}

	cfg, s, logger, err := openEnvironment(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	snap, err := s.Get(publishDatasetID)
	if err != nil {
		return err
	}
	drafts := content.FromRows(snap.Columns, snap.Rows)

	publisher := publish.NewPublisher(publish.NewShopifyClient(cfg.ShopDomain, cfg.BlogToken, cfg.BlogID), logger)

	uploaded, failed := 0, 0
	for i := range drafts {
		draft := &drafts[i]
		if draft.Status != content.StatusQueued {
			continue
		}
		if _, err := publisher.Publish(ctx, draft); err != nil {
			draft.Status = content.StatusFailed(err.Error())
			failed++
			_, _ = fmt.Fprintf(os.Stderr, "  %s: %v\n", draft.Keyword, err)
			continue
		}
		draft.Status = content.StatusUploaded
		uploaded++
		_, _ = fmt.Fprintf(os.Stdout, "  %s: uploaded\n", draft.Keyword)
	}

	if uploaded+failed > 0 {
		next := store.Snapshot{Columns: content.SnapshotColumns(), Rows: content.ToRows(drafts)}
		comment := fmt.Sprintf("Publish batch: %d uploaded, %d failed", uploaded, failed)
		if err := s.Update(publishDatasetID, next, comment, store.NoVersionCheck); err != nil {
			return err
		}
	}

	_, _ = fmt.Fprintf(os.Stdout, "Uploaded %d article(s), %d failed\n", uploaded, failed)
	return nil
}
