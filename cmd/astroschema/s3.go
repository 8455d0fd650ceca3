package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lychee-technology/astroschema/factory"
	"github.com/lychee-technology/astroschema/internal/s3source"
)

// requireS3 reports a usable error when the bucket is not configured.
func (a *app) requireS3() error {
	if a.config.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is not set")
	}
	return nil
}

func newPublishCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "publish [dir]",
		Short: "Upload a checked schema directory to the configured bucket",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireS3(); err != nil {
				return err
			}
			dir, err := a.schemaDir(args)
			if err != nil {
				return err
			}
			cfg := factory.S3SourceConfig(a.config)
			client, err := s3source.NewClient(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if err := s3source.New(client, cfg).Check(cmd.Context()); err != nil {
				return err
			}
			n, err := s3source.NewClientPublisher(client, cfg).Publish(cmd.Context(), os.DirFS(dir))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %d objects to s3://%s/%s\n", n, cfg.Bucket, cfg.Prefix)
			return nil
		},
	}
}

func newSyncCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync [dir]",
		Short: "Download the schema set of the configured bucket",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireS3(); err != nil {
				return err
			}
			dir := a.config.S3.CacheDir
			if len(args) > 0 {
				dir = args[0]
			}
			src, err := factory.NewS3Source(cmd.Context(), a.config)
			if err != nil {
				return err
			}
			n, err := src.Sync(cmd.Context(), dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "synced %d objects into %s\n", n, dir)
			return nil
		},
	}
}
