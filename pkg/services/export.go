package services

import (
	"archive/zip"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// Export filenames offered for download.
const (
	ReadmeFilename        = "README.md"
	CodeArchiveFilename   = "code.zip"
	MappingReportFilename = "mapping-report.xlsx"
)

// Sheet names of the mapping report.
const (
	suggestionsSheet   = "Suggestions"
	tableMappingsSheet = "Table Mappings"
	metricsSheet       = "Metrics"
)

// sortedArtifacts returns generated artifacts ordered by platform.
func sortedArtifacts(codes map[models.Platform]*models.GeneratedCode) []*models.GeneratedCode {
	out := make([]*models.GeneratedCode, 0, len(codes))
	for _, p := range models.ValidPlatforms {
		if c, ok := codes[p]; ok && c != nil {
			out = append(out, c)
		}
	}
	return out
}

// RenderReadme builds the Markdown summary of a migration.
func RenderReadme(snap *models.WizardSnapshot) string {
	var b strings.Builder

	name := "Untitled migration"
	if snap.Project != nil {
		name = snap.Project.Name
	}
	fmt.Fprintf(&b, "# %s\n\n", name)

	if p := snap.Project; p != nil {
		fmt.Fprintf(&b, "- Source dialect: %s\n", p.SourceDialect)
		fmt.Fprintf(&b, "- Target dialect: %s\n", p.TargetDialect)
		fmt.Fprintf(&b, "- Status: %s\n", p.Status)
		fmt.Fprintf(&b, "- Current phase: %s\n", snap.CurrentPhase)
		phases := make([]string, 0, len(p.Progress.CompletedPhases))
		for _, ph := range p.Progress.CompletedPhases.List() {
			phases = append(phases, string(ph))
		}
		if len(phases) > 0 {
			fmt.Fprintf(&b, "- Completed phases: %s\n", strings.Join(phases, ", "))
		}
		b.WriteString("\n")
	}

	if g := snap.Discovery.Graph; g != nil {
		b.WriteString("## Discovery\n\n")
		fmt.Fprintf(&b, "%d tables, %d columns, %d relationships, %d connected components.\n\n",
			g.Summary.TableCount, g.Summary.ColumnCount, g.Summary.RelationshipCount, g.Summary.ConnectedComponents)
		if len(g.Summary.IslandTables) > 0 {
			fmt.Fprintf(&b, "Island tables: %s\n\n", strings.Join(g.Summary.IslandTables, ", "))
		}
	}

	if len(snap.Mapping.Metrics) > 0 {
		b.WriteString("## Field mappings\n\n")
		b.WriteString("| Source table | Target table | Approved | Rejected | Pending | Manual | Complete |\n")
		b.WriteString("|---|---|---|---|---|---|---|\n")
		keys := make([]string, 0, len(snap.Mapping.Metrics))
		for k := range snap.Mapping.Metrics {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			m := snap.Mapping.Metrics[k]
			fmt.Fprintf(&b, "| %s | %s | %d | %d | %d | %d | %d%% |\n",
				m.SourceTable, m.TargetTable, m.Approved, m.Rejected, m.Pending, m.Manual, m.CompletionPercent)
		}
		b.WriteString("\n")
	}

	if artifacts := sortedArtifacts(snap.CodeGeneration.GeneratedCodes); len(artifacts) > 0 {
		b.WriteString("## Generated code\n\n")
		for _, c := range artifacts {
			fmt.Fprintf(&b, "- `%s` (%s, %d bytes, generated %s)\n",
				c.Filename, c.Language, c.Size, c.LastGenerated.UTC().Format(time.RFC3339))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// WriteCodeArchive writes a zip with every generated artifact plus README.md.
func WriteCodeArchive(w io.Writer, snap *models.WizardSnapshot) error {
	zw := zip.NewWriter(w)

	add := func(name string, modified time.Time, content string) error {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified})
		if err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", name, err)
		}
		if _, err := io.WriteString(fw, content); err != nil {
			return fmt.Errorf("failed to write %s to archive: %w", name, err)
		}
		return nil
	}

	var newest time.Time
	for _, c := range sortedArtifacts(snap.CodeGeneration.GeneratedCodes) {
		if err := add(c.Filename, c.LastGenerated, c.Content); err != nil {
			return err
		}
		if c.LastGenerated.After(newest) {
			newest = c.LastGenerated
		}
	}
	if err := add(ReadmeFilename, newest, RenderReadme(snap)); err != nil {
		return err
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}

// WriteMappingReport writes an xlsx workbook with suggestions, saved table
// mappings and per-pair metrics.
func WriteMappingReport(w io.Writer, snap *models.WizardSnapshot) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", suggestionsSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := []interface{}{"ID", "Source Table", "Source Column", "Target Table", "Target Column", "Transformation", "Expression", "Confidence", "Status", "Notes"}
	row := func(fm models.FieldMapping) []interface{} {
		return []interface{}{fm.ID, fm.SourceTable, fm.SourceColumn, fm.TargetTable, fm.TargetColumn,
			string(fm.Transformation), fm.Expression, fm.Confidence, string(fm.Status), fm.Notes}
	}

	if err := writeRows(f, suggestionsSheet, header, len(snap.Mapping.Suggestions), func(i int) []interface{} {
		return row(snap.Mapping.Suggestions[i])
	}); err != nil {
		return err
	}

	var saved []models.FieldMapping
	for _, tm := range snap.Mapping.TableMappings {
		saved = append(saved, tm.FieldMappings...)
	}
	if _, err := f.NewSheet(tableMappingsSheet); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}
	if err := writeRows(f, tableMappingsSheet, header, len(saved), func(i int) []interface{} {
		return row(saved[i])
	}); err != nil {
		return err
	}

	keys := make([]string, 0, len(snap.Mapping.Metrics))
	for k := range snap.Mapping.Metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if _, err := f.NewSheet(metricsSheet); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}
	metricsHeader := []interface{}{"Source Table", "Target Table", "Total", "Approved", "Rejected", "Pending", "Manual", "Complete %"}
	if err := writeRows(f, metricsSheet, metricsHeader, len(keys), func(i int) []interface{} {
		m := snap.Mapping.Metrics[keys[i]]
		return []interface{}{m.SourceTable, m.TargetTable, m.Total, m.Approved, m.Rejected, m.Pending, m.Manual, m.CompletionPercent}
	}); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write mapping report: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, header []interface{}, n int, rowAt func(int) []interface{}) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	for i := 0; i < n; i++ {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := rowAt(i)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
