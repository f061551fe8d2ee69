package actions

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/dockupdate/pkg/filters"
	"github.com/nicholas-fedor/dockupdate/pkg/session"
	"github.com/nicholas-fedor/dockupdate/pkg/types"
)

// Orchestrator drives one update run against a container engine.
type Orchestrator struct {
	Engine      types.Engine           // Container engine.
	Registry    types.RegistryClient   // Registry client, fresh per run.
	Credentials types.CredentialSource // Pull credentials, may be nil.
	Confirmer   Confirmer              // Operator prompt for interactive mode; stdin when nil.
	Params      types.UpdateParams     // Run options.
}

// Run performs Scan, Check, Select and Update once.
//
// Parameters:
//   - ctx: Context for request lifecycle control; cancellation stops before the next image.
//
// Returns:
//   - types.Report: Outcome of every image and container, nil if the engine is unreachable.
//   - error: ErrEngineUnreachable if the engine cannot be reached, or a scan error.
func (o *Orchestrator) Run(ctx context.Context) (types.Report, error) {
	if err := o.Engine.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngineUnreachable, err)
	}

	if o.Params.Interactive && o.Confirmer == nil {
		o.Confirmer = NewPromptConfirmer(os.Stdin, os.Stdout)
	}

	progress := session.NewProgress(o.Params.DryRun)

	images, err := Scan(ctx, o.Engine)
	if err != nil {
		return progress.Report(), err
	}

	containers, err := o.Engine.ListContainers(ctx)
	if err != nil {
		return progress.Report(), fmt.Errorf("%w: %w", errListContainersFailed, err)
	}

	filter, description := filters.BuildFilter(o.Params.Include, o.Params.Exclude)
	logrus.WithFields(logrus.Fields{
		"images":  len(images),
		"dry_run": o.Params.DryRun,
	}).Debug(description)

	queue := o.checkAll(ctx, images, filter, newLabelRules(containers), progress)
	queue = o.selectUpdates(queue, progress)

	logrus.WithField("count", len(queue)).Debug("Selected images for update")

	for _, update := range queue {
		if ctx.Err() != nil {
			return progress.Report(), fmt.Errorf("update run interrupted: %w", ctx.Err())
		}

		o.updateImage(ctx, update, progress)
	}

	if ctx.Err() != nil {
		return progress.Report(), fmt.Errorf("update run interrupted: %w", ctx.Err())
	}

	return progress.Report(), nil
}
