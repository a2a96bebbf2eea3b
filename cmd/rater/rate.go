package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"authenticity-survey/internal/clipboard"
	"authenticity-survey/internal/config"
	"authenticity-survey/internal/keys"
	"authenticity-survey/internal/models"
	"authenticity-survey/internal/prompt"
	"authenticity-survey/internal/sampler"
	"authenticity-survey/internal/session"
	"authenticity-survey/internal/store_client"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	failureStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

func rateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rate",
		Short: "Start a rating session",
		Long: `Draw a fresh sample of images, rate each one, then submit the session.
The verification key is shown once the store has accepted the submission.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRate(cmd.Context(), cfg, logger, cmd.InOrStdin(), cmd.OutOrStdout(), clipboard.CopyKey)
		},
	}
}

// keyCopier hands the verification key to the rater
type keyCopier func(key models.VerificationKey, out io.Writer) clipboard.Outcome

func runRate(ctx context.Context, cfg *config.Config, logger *zap.Logger, in io.Reader, out io.Writer, copyKey keyCopier) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	vocab, err := cfg.Vocabulary()
	if err != nil {
		return err
	}
	issuer, err := keys.NewIssuer(cfg.IssuerConfig())
	if err != nil {
		return err
	}
	client, err := store_client.NewClient(cfg.StoreClientConfig(), logger)
	if err != nil {
		return err
	}

	sess, err := session.New(session.Config{
		UniverseSize: cfg.Survey.ImageCount,
		SampleSize:   cfg.Survey.ImagesToShow,
		Vocabulary:   vocab,
	}, sampler.New(nil), issuer, logger)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Rate %d images", cfg.Survey.ImagesToShow)))

	rater := prompt.NewRater(in, out, cfg.Survey.ImagePath)
	if err := rater.Rate(ctx, sess); err != nil {
		return fmt.Errorf("rating interrupted: %w", err)
	}

	for {
		_, err := sess.Submit(ctx, client)
		if err == nil {
			break
		}

		fmt.Fprintln(out, failureStyle.Render("Submission failed: "+describeFailure(err)))
		if ctx.Err() != nil {
			return fmt.Errorf("session not saved: %w", ctx.Err())
		}

		retry, promptErr := rater.Confirm("Retry with the same responses and key?")
		if promptErr != nil || !retry {
			return fmt.Errorf("session not saved: %w", err)
		}
	}

	key, err := sess.Key()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, successStyle.Render("Submission saved. Your verification key:"))
	copyKey(key, out)
	return nil
}

func describeFailure(err error) string {
	var subErr *store_client.SubmissionError
	if !errors.As(err, &subErr) {
		return err.Error()
	}

	switch subErr.Kind {
	case store_client.KindNetwork:
		return "the store could not be reached. Check your connection."
	case store_client.KindStatus:
		return fmt.Sprintf("the store answered with status %d.", subErr.StatusCode)
	default:
		return err.Error()
	}
}
