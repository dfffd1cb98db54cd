package tracker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// RunDiscovery runs the simulated discovery steps, asks the lineage provider
// for a graph and completes discovery with it. On failure the discovery
// sub-state carries the error and completion is left untouched.
func (t *Tracker) RunDiscovery(ctx context.Context) (*models.LineageGraph, error) {
	t.mu.Lock()
	if _, err := t.openProjectLocked(); err != nil {
		t.mu.Unlock()
		return nil, err
	}
	if t.discovery.Running {
		t.mu.Unlock()
		return nil, fmt.Errorf("%w: discovery", apperrors.ErrOperationRunning)
	}
	started := t.now()
	t.discovery.Running = true
	t.discovery.Progress = 0
	t.discovery.StartedAt = &started
	t.discovery.Error = nil
	upload := cloneUpload(t.upload)
	gen := t.generation
	t.mu.Unlock()

	err := t.providers.Simulator.Run(ctx, func(percent int) {
		t.mu.Lock()
		defer t.mu.Unlock()
		if gen == t.generation {
			t.discovery.Progress = percent
		}
	})
	var graph *models.LineageGraph
	if err == nil {
		graph, err = t.providers.Lineage.Discover(ctx, upload)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.generation {
		return nil, fmt.Errorf("%w: project changed during discovery", apperrors.ErrConflict)
	}
	t.discovery.Running = false

	if err != nil {
		msg := err.Error()
		t.discovery.Error = &msg
		t.logger.Warn("Discovery failed", zap.Error(err))
		return nil, fmt.Errorf("failed to run discovery: %w", err)
	}
	if err := t.completeDiscoveryLocked(ctx, graph); err != nil {
		return nil, err
	}
	return cloneGraph(t.discovery.Graph), nil
}

// CompleteDiscovery stores the lineage graph, stamps discovery completion and
// records the discovery phase as completed.
func (t *Tracker) CompleteDiscovery(ctx context.Context, graph *models.LineageGraph) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completeDiscoveryLocked(ctx, graph)
}

func (t *Tracker) completeDiscoveryLocked(ctx context.Context, graph *models.LineageGraph) error {
	if graph == nil {
		return fmt.Errorf("%w: lineage graph is required", apperrors.ErrInvalidInput)
	}
	project, err := t.openProjectLocked()
	if err != nil {
		return err
	}

	now := t.now()
	t.discovery.Graph = cloneGraph(graph)
	t.discovery.CompletedAt = &now
	t.discovery.Running = false
	t.discovery.Progress = 100
	t.discovery.Error = nil
	t.markCompletedLocked(models.PhaseDiscovery)
	t.touchLocked()

	t.logger.Info("Discovery completed",
		zap.String("project_id", project.ID.String()),
		zap.Int("tables", graph.Summary.TableCount),
		zap.Int("relationships", graph.Summary.RelationshipCount))

	return t.persistLocked(ctx)
}
