// Package prompt walks a rater through a session on the terminal.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"authenticity-survey/internal/models"
	"authenticity-survey/internal/session"

	"github.com/charmbracelet/lipgloss"
)

// ErrInputClosed is returned when input ends before the session is rated
var ErrInputClosed = errors.New("input closed")

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	pathStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Underline(true)
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// Rater reads answers line by line from in and writes prompts to out
type Rater struct {
	in        *bufio.Scanner
	out       io.Writer
	imagePath string
}

// NewRater creates a terminal rater. imagePath is a printf pattern taking the item id.
func NewRater(in io.Reader, out io.Writer, imagePath string) *Rater {
	return &Rater{
		in:        bufio.NewScanner(in),
		out:       out,
		imagePath: imagePath,
	}
}

// Rate asks for a confidence and reason tags for every sampled image
func (r *Rater) Rate(ctx context.Context, s *session.Session) error {
	responses := s.Responses()
	vocab := responses.Vocabulary()

	for i, id := range s.Sample() {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, titleStyle.Render(fmt.Sprintf("Image %d of %d", i+1, responses.Len())))
		fmt.Fprintln(r.out, pathStyle.Render(fmt.Sprintf(r.imagePath, int(id))))

		if err := r.askConfidence(responses, id); err != nil {
			return err
		}
		for _, family := range []models.Family{models.FamilyAI, models.FamilyReal} {
			if err := r.askTags(responses, id, family, vocab.Tags(family)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Confirm asks a yes/no question. Anything but y or yes counts as no.
func (r *Rater) Confirm(question string) (bool, error) {
	line, err := r.ask(question + " [y/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(line) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func (r *Rater) askConfidence(responses *session.ResponseSet, id models.ItemID) error {
	for {
		line, err := r.ask(fmt.Sprintf("Confidence, 0 = real photo, 100 = AI generated [%d]: ", models.DefaultConfidence))
		if err != nil {
			return err
		}
		if line == "" {
			return nil
		}

		value, err := strconv.Atoi(line)
		if err != nil {
			r.complain(fmt.Sprintf("%q is not a whole number", line))
			continue
		}
		if err := responses.SetConfidence(id, value); err != nil {
			if models.IsValidationError(err) {
				r.complain(err.Error())
				continue
			}
			return err
		}
		return nil
	}
}

func (r *Rater) askTags(responses *session.ResponseSet, id models.ItemID, family models.Family, tags []models.ReasonTag) error {
	var b strings.Builder
	for i, tag := range tags {
		fmt.Fprintf(&b, "  %d) %s\n", i+1, tag)
	}
	fmt.Fprint(r.out, hintStyle.Render(fmt.Sprintf("%s indicators observed:", familyLabel(family)))+"\n"+b.String())

	for {
		line, err := r.ask("Numbers separated by commas, blank for none: ")
		if err != nil {
			return err
		}

		picked, err := parseChoices(line, len(tags))
		if err != nil {
			r.complain(err.Error())
			continue
		}
		for _, n := range picked {
			if _, err := responses.ToggleTag(id, family, tags[n-1]); err != nil {
				return err
			}
		}
		return nil
	}
}

func (r *Rater) ask(prompt string) (string, error) {
	fmt.Fprint(r.out, prompt)
	if !r.in.Scan() {
		if err := r.in.Err(); err != nil {
			return "", fmt.Errorf("failed to read answer: %w", err)
		}
		return "", ErrInputClosed
	}
	return strings.TrimSpace(r.in.Text()), nil
}

func (r *Rater) complain(msg string) {
	fmt.Fprintln(r.out, errorStyle.Render(msg))
}

// parseChoices turns "1, 3" into [1 3]. Repeats are dropped so a tag is never toggled back off.
func parseChoices(line string, max int) ([]int, error) {
	if line == "" {
		return nil, nil
	}

	var picked []int
	seen := make(map[int]bool)
	for _, field := range strings.Split(line, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil || n < 1 || n > max {
			return nil, fmt.Errorf("%q is not a choice between 1 and %d", field, max)
		}
		if !seen[n] {
			seen[n] = true
			picked = append(picked, n)
		}
	}
	return picked, nil
}

func familyLabel(f models.Family) string {
	if f == models.FamilyAI {
		return "AI"
	}
	return "Real photo"
}
