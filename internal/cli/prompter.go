package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ErrInputTerminated is returned when input ends before an answer is given.
var ErrInputTerminated = errors.New("input terminated")

// Prompter asks the analyst short questions on the terminal.
type Prompter struct {
	writer io.Writer
	reader *NonBlockingReader
}

// NewPrompter creates a prompter reading from reader and writing to writer.
func NewPrompter(reader io.Reader, writer io.Writer) *Prompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &Prompter{
		reader: NewNonBlockingReader(reader),
		writer: writer,
	}
}

// Confirm asks a yes/no question. Anything other than y or yes is a no.
func (p *Prompter) Confirm(ctx context.Context, question string) (bool, error) {
	if _, err := fmt.Fprintf(p.writer, "%s[y/N] ", FormatPrompt(question)); err != nil {
		return false, fmt.Errorf("failed to write prompt: %w", err)
	}

	answer, err := p.read(ctx)
	if err != nil {
		return false, err
	}

	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Ask prompts until a non-empty answer is given.
func (p *Prompter) Ask(ctx context.Context, prompt string) (string, error) {
	for {
		if _, err := fmt.Fprint(p.writer, FormatPrompt(prompt)); err != nil {
			return "", fmt.Errorf("failed to write prompt: %w", err)
		}

		answer, err := p.read(ctx)
		if err != nil {
			return "", err
		}
		if answer != "" {
			return answer, nil
		}

		if _, err := fmt.Fprintln(p.writer, FormatError("A value is required. Please try again.")); err != nil {
			slog.Warn("Failed to write error message", "error", err)
		}
	}
}

func (p *Prompter) read(ctx context.Context) (string, error) {
	line, err := p.reader.ReadLine(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", ErrInputTerminated
		}
		return "", err
	}
	return line, nil
}
