package tracker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-migrate/pkg/audit"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
	"github.com/ekaya-inc/ekaya-migrate/pkg/services"
	"github.com/ekaya-inc/ekaya-migrate/pkg/sql"
)

// HighConfidenceThreshold is the minimum confidence BulkAcceptHighConfidence approves.
const HighConfidenceThreshold = 90

// SelectTablePair chooses the source/target tables the ledger operates on.
func (t *Tracker) SelectTablePair(sourceTable, targetTable string) error {
	sourceTable = strings.TrimSpace(sourceTable)
	targetTable = strings.TrimSpace(targetTable)
	if sourceTable == "" || targetTable == "" {
		return fmt.Errorf("%w: source and target tables are required", apperrors.ErrInvalidInput)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.openProjectLocked(); err != nil {
		return err
	}
	t.mapping.SelectedSourceTable = sourceTable
	t.mapping.SelectedTargetTable = targetTable
	return nil
}

// GenerateAISuggestions asks the suggestion provider for field mappings and
// merges them by ID: existing entries are refreshed, new ones appended.
// Human decisions (status and approval time) on existing entries are kept.
func (t *Tracker) GenerateAISuggestions(ctx context.Context) ([]models.FieldMapping, error) {
	t.mu.Lock()
	if _, err := t.openProjectLocked(); err != nil {
		t.mu.Unlock()
		return nil, err
	}
	req := services.SuggestionRequest{
		SourceTable: t.mapping.SelectedSourceTable,
		TargetTable: t.mapping.SelectedTargetTable,
	}
	if src, ok := services.FindTable(t.discovery.Graph, req.SourceTable); ok {
		req.Source = &src
	}
	if tgt, ok := services.FindTable(t.discovery.Graph, req.TargetTable); ok {
		req.Target = &tgt
	}
	for _, fm := range t.mapping.Suggestions {
		if fm.SourceTable == req.SourceTable && fm.TargetTable == req.TargetTable && fm.Status != models.MappingStatusSuggested {
			req.Decided = append(req.Decided, fm)
		}
	}
	gen := t.generation
	t.mu.Unlock()

	err := t.providers.Simulator.Run(ctx, nil)
	var suggestions []models.FieldMapping
	if err == nil {
		suggestions, err = t.providers.Suggestions.Suggest(ctx, req)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.generation {
		return nil, fmt.Errorf("%w: project changed while generating suggestions", apperrors.ErrConflict)
	}
	if err != nil {
		msg := err.Error()
		t.mapping.Error = &msg
		t.logger.Warn("Suggestion generation failed", zap.Error(err))
		return nil, fmt.Errorf("failed to generate suggestions: %w", err)
	}

	index := make(map[string]int, len(t.mapping.Suggestions))
	for i, s := range t.mapping.Suggestions {
		index[s.ID] = i
	}
	added := 0
	for _, s := range suggestions {
		if s.Status == "" || s.Status == models.MappingStatusManual {
			s.Status = models.MappingStatusSuggested
		}
		if i, ok := index[s.ID]; ok {
			prev := t.mapping.Suggestions[i]
			s.Status = prev.Status
			s.ApprovedAt = prev.ApprovedAt
			t.mapping.Suggestions[i] = s
			continue
		}
		index[s.ID] = len(t.mapping.Suggestions)
		t.mapping.Suggestions = append(t.mapping.Suggestions, s)
		added++
	}

	now := t.now()
	t.mapping.GeneratedAt = &now
	t.mapping.Error = nil
	t.recomputeMetricsLocked()

	t.logger.Info("Suggestions generated",
		zap.String("source_table", req.SourceTable),
		zap.String("target_table", req.TargetTable),
		zap.Int("received", len(suggestions)),
		zap.Int("added", added))

	return cloneFieldMappings(t.mapping.Suggestions), nil
}

// UpdateFieldMapping merges a partial update into the mapping with the given ID
// and into the matching entry of the selected table mapping. Applying the same
// update twice leaves the same state as applying it once.
func (t *Tracker) UpdateFieldMapping(id string, update models.FieldMappingUpdate) (models.FieldMapping, error) {
	if update.Transformation != nil && !models.IsValidTransformationType(*update.Transformation) {
		return models.FieldMapping{}, fmt.Errorf("%w: transformation %q", apperrors.ErrInvalidInput, *update.Transformation)
	}
	if update.Expression != nil {
		if err := t.screenExpression(id, "", "", *update.Expression); err != nil {
			return models.FieldMapping{}, err
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.openProjectLocked(); err != nil {
		return models.FieldMapping{}, err
	}

	suggestion := t.suggestionLocked(id)
	entry := t.selectedEntryLocked(id)
	if suggestion == nil && entry == nil {
		return models.FieldMapping{}, fmt.Errorf("%w: field mapping %s", apperrors.ErrNotFound, id)
	}

	current := suggestion
	if current == nil {
		current = entry
	}
	if update.Status != nil && !current.Status.CanTransitionTo(*update.Status) {
		return models.FieldMapping{}, fmt.Errorf("%w: field mapping %s is %s, cannot become %s",
			apperrors.ErrInvalidStatusTransition, id, current.Status, *update.Status)
	}

	now := t.now()
	if suggestion != nil {
		applyUpdate(suggestion, update, now)
	}
	if entry != nil {
		before := *entry
		applyUpdate(entry, update, now)
		t.touchTableMappingLocked(!sameMapping(before, *entry))
	}
	t.recomputeMetricsLocked()

	return cloneFieldMappings([]models.FieldMapping{*current})[0], nil
}

// screenExpression rejects expressions that cannot be templated into generated
// code and reports each rejection to the security auditor.
func (t *Tracker) screenExpression(mappingID, sourceColumn, targetColumn, expr string) error {
	err := sql.CheckExpression(expr)
	if err == nil {
		return nil
	}

	var rejected *sql.ExpressionCheckError
	if errors.As(err, &rejected) {
		t.mu.Lock()
		projectID := uuid.Nil
		if t.project != nil {
			projectID = t.project.ID
		}
		user := t.user
		t.mu.Unlock()

		t.opts.Auditor.LogExpressionRejected(projectID, user, mappingID, audit.ExpressionRejection{
			Source:       audit.ExpressionSourceUser,
			SourceColumn: sourceColumn,
			TargetColumn: targetColumn,
			Expression:   rejected.Expression,
			Reason:       rejected.Reason,
			Fingerprint:  rejected.Fingerprint,
		})
	}
	return fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
}

func applyUpdate(fm *models.FieldMapping, u models.FieldMappingUpdate, now time.Time) {
	if u.Status != nil && *u.Status != fm.Status {
		fm.Status = *u.Status
		if fm.Status == models.MappingStatusApproved {
			approvedAt := now
			fm.ApprovedAt = &approvedAt
		} else {
			fm.ApprovedAt = nil
		}
	}
	if u.ApprovedAt != nil && fm.Status == models.MappingStatusApproved {
		approvedAt := u.ApprovedAt.UTC()
		fm.ApprovedAt = &approvedAt
	}
	if u.TargetColumn != nil {
		fm.TargetColumn = *u.TargetColumn
	}
	if u.Transformation != nil {
		fm.Transformation = *u.Transformation
	}
	if u.Expression != nil {
		fm.Expression = *u.Expression
	}
	if u.Notes != nil {
		fm.Notes = *u.Notes
	}
}

func sameMapping(a, b models.FieldMapping) bool {
	aAt, bAt := a.ApprovedAt, b.ApprovedAt
	a.ApprovedAt, b.ApprovedAt = nil, nil
	if a != b {
		return false
	}
	if aAt == nil || bAt == nil {
		return aAt == bAt
	}
	return aAt.Equal(*bAt)
}

// BulkAcceptHighConfidence approves every suggestion whose confidence is at
// least HighConfidenceThreshold. Rejected suggestions are reverted to suggested
// first so every step follows the status state machine. Returns how many
// suggestions changed.
func (t *Tracker) BulkAcceptHighConfidence() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.openProjectLocked(); err != nil {
		return 0, err
	}

	now := t.now()
	suggested := models.MappingStatusSuggested
	approved := models.MappingStatusApproved

	changed := 0
	for i := range t.mapping.Suggestions {
		s := &t.mapping.Suggestions[i]
		if s.Confidence < HighConfidenceThreshold || s.Status == approved {
			continue
		}
		steps := []models.MappingStatus{approved}
		if s.Status == models.MappingStatusRejected {
			steps = []models.MappingStatus{suggested, approved}
		}

		entry := t.selectedEntryLocked(s.ID)
		for _, step := range steps {
			if !s.Status.CanTransitionTo(step) {
				break
			}
			target := step
			applyUpdate(s, models.FieldMappingUpdate{Status: &target}, now)
			if entry != nil {
				applyUpdate(entry, models.FieldMappingUpdate{Status: &target}, now)
			}
		}
		if s.Status == approved {
			changed++
		}
	}

	if changed > 0 {
		t.touchTableMappingLocked(true)
		t.recomputeMetricsLocked()
	}
	t.logger.Info("Bulk accepted high-confidence suggestions",
		zap.Int("approved", changed),
		zap.Int("threshold", HighConfidenceThreshold))
	return changed, nil
}

// SaveTableMapping folds the approved suggestions of the selected pair into
// its table mapping, keeping any manual mappings already there.
func (t *Tracker) SaveTableMapping() (models.TableMapping, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.openProjectLocked(); err != nil {
		return models.TableMapping{}, err
	}
	if t.mapping.SelectedSourceTable == "" || t.mapping.SelectedTargetTable == "" {
		return models.TableMapping{}, apperrors.ErrNoTablePair
	}

	now := t.now()
	tm := t.ensureSelectedTableMappingLocked(now)

	var fields []models.FieldMapping
	for _, fm := range tm.FieldMappings {
		if fm.Status == models.MappingStatusManual {
			fields = append(fields, fm)
		}
	}
	for _, s := range t.mapping.Suggestions {
		if s.SourceTable == tm.SourceTable && s.TargetTable == tm.TargetTable && s.Status == models.MappingStatusApproved {
			fields = append(fields, s)
		}
	}
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].ID < fields[j].ID })

	tm.FieldMappings = cloneFieldMappings(fields)
	tm.UpdatedAt = now
	t.recomputeMetricsLocked()

	t.logger.Info("Table mapping saved",
		zap.String("table_mapping_id", tm.ID),
		zap.Int("field_mappings", len(tm.FieldMappings)))

	out := *tm
	out.FieldMappings = cloneFieldMappings(tm.FieldMappings)
	return out, nil
}

// AddManualMapping adds a hand-written mapping to the selected pair's table mapping.
func (t *Tracker) AddManualMapping(sourceColumn, targetColumn string, transformation models.TransformationType, expression string) (models.FieldMapping, error) {
	if sourceColumn == "" || targetColumn == "" {
		return models.FieldMapping{}, fmt.Errorf("%w: source and target columns are required", apperrors.ErrInvalidInput)
	}
	if transformation == "" {
		transformation = models.TransformationDirect
	}
	if !models.IsValidTransformationType(transformation) {
		return models.FieldMapping{}, fmt.Errorf("%w: transformation %q", apperrors.ErrInvalidInput, transformation)
	}
	if err := t.screenExpression("", sourceColumn, targetColumn, expression); err != nil {
		return models.FieldMapping{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.openProjectLocked(); err != nil {
		return models.FieldMapping{}, err
	}
	if t.mapping.SelectedSourceTable == "" || t.mapping.SelectedTargetTable == "" {
		return models.FieldMapping{}, apperrors.ErrNoTablePair
	}

	now := t.now()
	tm := t.ensureSelectedTableMappingLocked(now)
	fm := models.FieldMapping{
		ID:             "manual-" + uuid.NewString(),
		SourceTable:    tm.SourceTable,
		SourceColumn:   sourceColumn,
		TargetTable:    tm.TargetTable,
		TargetColumn:   targetColumn,
		Transformation: transformation,
		Expression:     expression,
		Confidence:     100,
		Status:         models.MappingStatusManual,
		ApprovedAt:     &now,
	}
	tm.FieldMappings = append(tm.FieldMappings, fm)
	tm.UpdatedAt = now
	t.recomputeMetricsLocked()

	return cloneFieldMappings([]models.FieldMapping{fm})[0], nil
}

// CompleteMapping stamps mapping completion and records the mapping phase as completed.
func (t *Tracker) CompleteMapping(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	project, err := t.openProjectLocked()
	if err != nil {
		return err
	}
	now := t.now()
	t.mapping.CompletedAt = &now
	project.Progress.MappingsComplete = true
	t.markCompletedLocked(models.PhaseMapping)
	t.touchLocked()

	t.logger.Info("Mapping completed",
		zap.String("project_id", project.ID.String()),
		zap.Int("table_mappings", len(t.mapping.TableMappings)))

	return t.persistLocked(ctx)
}

func (t *Tracker) suggestionLocked(id string) *models.FieldMapping {
	for i := range t.mapping.Suggestions {
		if t.mapping.Suggestions[i].ID == id {
			return &t.mapping.Suggestions[i]
		}
	}
	return nil
}

func (t *Tracker) selectedTableMappingLocked() *models.TableMapping {
	for i := range t.mapping.TableMappings {
		tm := &t.mapping.TableMappings[i]
		if tm.SourceTable == t.mapping.SelectedSourceTable && tm.TargetTable == t.mapping.SelectedTargetTable {
			return tm
		}
	}
	return nil
}

func (t *Tracker) ensureSelectedTableMappingLocked(now time.Time) *models.TableMapping {
	if tm := t.selectedTableMappingLocked(); tm != nil {
		return tm
	}
	t.mapping.TableMappings = append(t.mapping.TableMappings, models.TableMapping{
		ID:          uuid.NewString(),
		SourceTable: t.mapping.SelectedSourceTable,
		TargetTable: t.mapping.SelectedTargetTable,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	return &t.mapping.TableMappings[len(t.mapping.TableMappings)-1]
}

// selectedEntryLocked returns the entry with id in the selected table mapping.
func (t *Tracker) selectedEntryLocked(id string) *models.FieldMapping {
	tm := t.selectedTableMappingLocked()
	if tm == nil {
		return nil
	}
	for i := range tm.FieldMappings {
		if tm.FieldMappings[i].ID == id {
			return &tm.FieldMappings[i]
		}
	}
	return nil
}

func (t *Tracker) touchTableMappingLocked(changed bool) {
	if !changed {
		return
	}
	if tm := t.selectedTableMappingLocked(); tm != nil {
		tm.UpdatedAt = t.now()
	}
}

// recomputeMetricsLocked rebuilds per-pair completion metrics. A pair's total
// counts its suggestions plus the manual mappings of its table mapping.
func (t *Tracker) recomputeMetricsLocked() {
	metrics := make(map[string]models.MappingMetrics)
	bump := func(fm models.FieldMapping) {
		key := models.TablePairKey(fm.SourceTable, fm.TargetTable)
		m := metrics[key]
		m.SourceTable = fm.SourceTable
		m.TargetTable = fm.TargetTable
		m.Total++
		switch fm.Status {
		case models.MappingStatusApproved:
			m.Approved++
		case models.MappingStatusRejected:
			m.Rejected++
		case models.MappingStatusManual:
			m.Manual++
		default:
			m.Pending++
		}
		metrics[key] = m
	}

	for _, s := range t.mapping.Suggestions {
		bump(s)
	}
	for _, tm := range t.mapping.TableMappings {
		for _, fm := range tm.FieldMappings {
			if fm.Status == models.MappingStatusManual {
				bump(fm)
			}
		}
	}

	for key, m := range metrics {
		m.CompletionPercent = (m.Approved + m.Rejected + m.Manual) * 100 / m.Total
		metrics[key] = m
	}
	t.mapping.Metrics = metrics
}
