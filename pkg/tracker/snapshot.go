package tracker

import (
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// Snapshot returns a deep copy of the whole tracker state.
func (t *Tracker) Snapshot() models.WizardSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	return models.WizardSnapshot{
		Project:        t.project.Clone(),
		CurrentPhase:   t.phase,
		CanProceed:     t.canProceedLocked(),
		UserProfile:    t.user,
		Upload:         cloneUpload(t.upload),
		Discovery:      cloneDiscovery(t.discovery),
		Mapping:        cloneMapping(t.mapping),
		CodeGeneration: cloneCodegen(t.codegen),
		Validation:     cloneValidation(t.validation),
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFiles(files []models.SchemaFile) []models.SchemaFile {
	if files == nil {
		return nil
	}
	out := make([]models.SchemaFile, len(files))
	for i, f := range files {
		if f.Preview != nil {
			p := *f.Preview
			p.Tables = append([]string(nil), f.Preview.Tables...)
			f.Preview = &p
		}
		out[i] = f
	}
	return out
}

func cloneUpload(u models.UploadState) models.UploadState {
	return models.UploadState{
		SourceFiles: cloneFiles(u.SourceFiles),
		TargetFiles: cloneFiles(u.TargetFiles),
	}
}

func cloneGraph(g *models.LineageGraph) *models.LineageGraph {
	if g == nil {
		return nil
	}
	out := &models.LineageGraph{
		Tables:        make([]models.LineageTable, len(g.Tables)),
		Relationships: append([]models.LineageRelationship(nil), g.Relationships...),
		Summary:       g.Summary,
	}
	out.Summary.IslandTables = append([]string(nil), g.Summary.IslandTables...)
	for i, tbl := range g.Tables {
		tbl.Columns = append([]models.LineageColumn(nil), tbl.Columns...)
		out.Tables[i] = tbl
	}
	return out
}

func cloneDiscovery(d models.DiscoveryState) models.DiscoveryState {
	d.StartedAt = clonePtr(d.StartedAt)
	d.CompletedAt = clonePtr(d.CompletedAt)
	d.Error = clonePtr(d.Error)
	d.Graph = cloneGraph(d.Graph)
	return d
}

func cloneFieldMappings(in []models.FieldMapping) []models.FieldMapping {
	if in == nil {
		return nil
	}
	out := make([]models.FieldMapping, len(in))
	for i, fm := range in {
		fm.ApprovedAt = clonePtr(fm.ApprovedAt)
		out[i] = fm
	}
	return out
}

func cloneMapping(m models.MappingState) models.MappingState {
	out := m
	out.Suggestions = cloneFieldMappings(m.Suggestions)
	if m.TableMappings != nil {
		out.TableMappings = make([]models.TableMapping, len(m.TableMappings))
		for i, tm := range m.TableMappings {
			tm.FieldMappings = cloneFieldMappings(tm.FieldMappings)
			out.TableMappings[i] = tm
		}
	}
	out.Metrics = make(map[string]models.MappingMetrics, len(m.Metrics))
	for k, v := range m.Metrics {
		out.Metrics[k] = v
	}
	out.GeneratedAt = clonePtr(m.GeneratedAt)
	out.CompletedAt = clonePtr(m.CompletedAt)
	out.Error = clonePtr(m.Error)
	return out
}

func cloneCodegen(c models.CodeGenerationState) models.CodeGenerationState {
	out := c
	out.GeneratedCodes = make(map[models.Platform]*models.GeneratedCode, len(c.GeneratedCodes))
	for p, code := range c.GeneratedCodes {
		out.GeneratedCodes[p] = clonePtr(code)
	}
	out.CompletedAt = clonePtr(c.CompletedAt)
	out.Error = clonePtr(c.Error)
	return out
}

func cloneValidation(v models.ValidationState) models.ValidationState {
	out := v
	if v.Checks != nil {
		out.Checks = make([]models.ValidationCheck, len(v.Checks))
		for i, c := range v.Checks {
			c.CheckedAt = clonePtr(c.CheckedAt)
			out.Checks[i] = c
		}
	}
	out.CompletedAt = clonePtr(v.CompletedAt)
	out.Error = clonePtr(v.Error)
	return out
}
