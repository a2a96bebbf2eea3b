package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"authenticity-survey/internal/config"
	"authenticity-survey/internal/models"
	"authenticity-survey/internal/store_client"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func lookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <key>",
		Short: "Show the session stored under a verification key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(cmd.Context(), cfg, logger, models.VerificationKey(args[0]), cmd.OutOrStdout())
		},
	}
}

func runLookup(ctx context.Context, cfg *config.Config, logger *zap.Logger, key models.VerificationKey, out io.Writer) error {
	client, err := store_client.NewClient(cfg.StoreClientConfig(), logger)
	if err != nil {
		return err
	}

	record, err := client.Fetch(ctx, key)
	if errors.Is(err, store_client.ErrRecordNotFound) {
		return fmt.Errorf("no session stored under key %s", key)
	}
	if err != nil {
		return err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, record.Payload, "", "  "); err != nil {
		return fmt.Errorf("stored payload is not valid JSON: %w", err)
	}

	fmt.Fprintln(out, headerStyle.Render("Session "+string(record.Key)))
	fmt.Fprintln(out, pretty.String())
	return nil
}
