package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/Veraticus/caseworker/internal/model"
	"github.com/schollz/progressbar/v3"
)

var barTheme = progressbar.Theme{
	Saucer:        "[green]=[reset]",
	SaucerHead:    "[green]>[reset]",
	SaucerPadding: " ",
	BarStart:      "[",
	BarEnd:        "]",
}

// NewUploadBar returns a byte progress bar for a file upload. It satisfies
// io.Writer so it can sit behind an io.TeeReader.
func NewUploadBar(w io.Writer, size int64) *progressbar.ProgressBar {
	return progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Uploading...[reset]"),
		progressbar.OptionSetTheme(barTheme),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}

// PollProgress shows job poll attempts against the attempt budget.
type PollProgress struct {
	bar         *progressbar.ProgressBar
	description string
}

// NewPollProgress creates a poll progress bar with maxAttempts steps.
func NewPollProgress(w io.Writer, maxAttempts int, description string) *PollProgress {
	return &PollProgress{
		description: description,
		bar: progressbar.NewOptions(maxAttempts,
			progressbar.OptionSetWriter(w),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionSetDescription("[cyan][bold]"+description+"[reset]"),
			progressbar.OptionSetTheme(barTheme),
		),
	}
}

// OnAttempt advances the bar to the given attempt and shows the status.
func (p *PollProgress) OnAttempt(attempt int, status model.JobStatus) {
	p.bar.Describe(fmt.Sprintf("[cyan][bold]%s[reset] %s", p.description, status))
	if err := p.bar.Set(attempt); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
}

// Done clears the bar from the terminal.
func (p *PollProgress) Done() {
	if err := p.bar.Clear(); err != nil {
		slog.Warn("Failed to clear progress bar", "error", err)
	}
}
