package actions

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/moby/term"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/dockupdate/pkg/session"
	"github.com/nicholas-fedor/dockupdate/pkg/types"
)

// Confirmer asks the operator a yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

// PromptConfirmer asks on a terminal and reads the answer line by line.
type PromptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPromptConfirmer creates a confirmer reading answers from in and writing prompts to out.
//
// Parameters:
//   - in: Answer source, usually os.Stdin.
//   - out: Prompt destination, usually os.Stdout.
//
// Returns:
//   - *PromptConfirmer: Confirmer treating anything but "y" or "yes" as no.
func NewPromptConfirmer(in io.Reader, out io.Writer) *PromptConfirmer {
	if _, isTerminal := term.GetFdInfo(in); !isTerminal {
		logrus.Warn("Interactive mode without a terminal, answers are read from standard input as-is")
	}

	return &PromptConfirmer{in: bufio.NewReader(in), out: out}
}

// Confirm prints the prompt followed by "[y/N]" and reads one answer.
// A read error, including end of input, counts as no.
func (p *PromptConfirmer) Confirm(prompt string) bool {
	_, _ = fmt.Fprintf(p.out, "%s [y/N] ", prompt)

	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		logrus.WithError(err).Debug("No answer read, assuming no")

		return false
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// selectUpdates keeps the updates the operator confirms.
//
// Outside interactive mode every update is kept.
func (o *Orchestrator) selectUpdates(queue []types.UpdateImage, progress *session.Progress) []types.UpdateImage {
	if !o.Params.Interactive || len(queue) == 0 {
		return queue
	}

	selected := make([]types.UpdateImage, 0, len(queue))

	for _, update := range queue {
		if o.Confirmer.Confirm(fmt.Sprintf("Update %s?", update.Reference())) {
			selected = append(selected, update)

			continue
		}

		logrus.WithField("image", update.Reference()).Info("Skipping image declined by operator")
		progress.MarkSkipped(update.ID, errDeclined)
	}

	return selected
}
