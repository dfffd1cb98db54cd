package services

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/ekaya-inc/ekaya-migrate/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// CodeGenerationRequest carries what a generator renders from.
type CodeGenerationRequest struct {
	Project       *models.Project
	Platform      models.Platform
	TableMappings []models.TableMapping
	// Suggestions are used when no table mapping has been saved yet.
	Suggestions []models.FieldMapping
}

// CodeGenerator renders migration code for one target platform.
// The returned artifact has no LastGenerated stamp; the caller owns the clock.
type CodeGenerator interface {
	Generate(ctx context.Context, req CodeGenerationRequest) (*models.GeneratedCode, error)
}

type platformTemplate struct {
	label     string
	language  string
	extension string
	quote     func(string) string
	body      *template.Template
}

type templateCodeGenerator struct {
	templates map[models.Platform]platformTemplate
}

// NewTemplateCodeGenerator returns a generator backed by fixed per-platform templates.
func NewTemplateCodeGenerator() CodeGenerator {
	return &templateCodeGenerator{templates: platformTemplates()}
}

var _ CodeGenerator = (*templateCodeGenerator)(nil)

type renderColumn struct {
	Expr   string
	Target string
	Note   string
}

type renderTable struct {
	Source  string
	Target  string
	Columns []renderColumn
}

type renderData struct {
	ProjectName string
	Source      string
	Target      string
	Platform    string
	Tables      []renderTable
}

func (g *templateCodeGenerator) Generate(ctx context.Context, req CodeGenerationRequest) (*models.GeneratedCode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tpl, ok := g.templates[req.Platform]
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownPlatform, req.Platform)
	}

	data := renderData{
		Platform: tpl.label,
		Tables:   collectTables(req, tpl.quote),
	}
	if req.Project != nil {
		data.ProjectName = req.Project.Name
		data.Source = req.Project.SourceDialect
		data.Target = req.Project.TargetDialect
	}

	var buf bytes.Buffer
	if err := tpl.body.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render %s template: %w", req.Platform, err)
	}

	content := buf.String()
	return &models.GeneratedCode{
		Platform: req.Platform,
		Content:  content,
		Filename: "migration_" + string(req.Platform) + tpl.extension,
		Size:     len(content),
		Language: tpl.language,
	}, nil
}

// collectTables groups approved and manual mappings by table pair, sorted by pair key.
func collectTables(req CodeGenerationRequest, quote func(string) string) []renderTable {
	var mappings []models.FieldMapping
	if len(req.TableMappings) > 0 {
		for _, tm := range req.TableMappings {
			mappings = append(mappings, tm.FieldMappings...)
		}
	} else {
		mappings = req.Suggestions
	}

	byPair := make(map[string]*renderTable)
	var keys []string
	for _, fm := range mappings {
		if fm.Status != models.MappingStatusApproved && fm.Status != models.MappingStatusManual {
			continue
		}
		key := models.TablePairKey(fm.SourceTable, fm.TargetTable)
		t, ok := byPair[key]
		if !ok {
			t = &renderTable{Source: quote(fm.SourceTable), Target: quote(fm.TargetTable)}
			byPair[key] = t
			keys = append(keys, key)
		}
		t.Columns = append(t.Columns, renderColumn{
			Expr:   columnExpression(fm, quote),
			Target: quote(fm.TargetColumn),
			Note:   string(fm.Transformation),
		})
	}

	sort.Strings(keys)
	tables := make([]renderTable, 0, len(keys))
	for _, k := range keys {
		tables = append(tables, *byPair[k])
	}
	return tables
}

func columnExpression(fm models.FieldMapping, quote func(string) string) string {
	if fm.Transformation == models.TransformationDirect || strings.TrimSpace(fm.Expression) == "" {
		return quote(fm.SourceColumn)
	}
	return fm.Expression
}

func quoteWith(open, close string) func(string) string {
	return func(ident string) string {
		parts := strings.Split(ident, ".")
		for i, p := range parts {
			parts[i] = open + p + close
		}
		return strings.Join(parts, ".")
	}
}

const sqlTemplate = `-- {{.Platform}} migration{{if .ProjectName}} for {{.ProjectName}}{{end}}
{{- if .Source}}
-- Source dialect: {{.Source}}, target dialect: {{.Target}}
{{- end}}
{{- if not .Tables}}

-- No approved field mappings yet.
{{- end}}
{{range .Tables}}
INSERT INTO {{.Target}} (
{{- range $i, $c := .Columns}}{{if $i}}, {{end}}{{$c.Target}}{{end -}}
)
SELECT
{{- range $i, $c := .Columns}}{{if $i}},{{end}}
    -- {{$c.Note}}
    {{$c.Expr}} AS {{$c.Target}}
{{- end}}
FROM {{.Source}};
{{end}}`

const pysparkTemplate = `# {{.Platform}} migration{{if .ProjectName}} for {{.ProjectName}}{{end}}
{{- if .Source}}
# Source dialect: {{.Source}}, target dialect: {{.Target}}
{{- end}}
from pyspark.sql import SparkSession
from pyspark.sql import functions as F

spark = SparkSession.builder.getOrCreate()
{{- if not .Tables}}

# No approved field mappings yet.
{{- end}}
{{range .Tables}}
(
    spark.table("{{.Source}}")
    .select(
{{- range .Columns}}
        F.expr({{printf "%q" .Expr}}).alias("{{.Target}}"),  # {{.Note}}
{{- end}}
    )
    .write.mode("overwrite")
    .saveAsTable("{{.Target}}")
)
{{end}}`

func platformTemplates() map[models.Platform]platformTemplate {
	plain := func(s string) string { return s }
	mustSQL := func(name string) *template.Template {
		return template.Must(template.New(name).Parse(sqlTemplate))
	}

	return map[models.Platform]platformTemplate{
		models.PlatformBigQuery: {
			label: "BigQuery", language: "sql", extension: ".sql",
			quote: quoteWith("`", "`"),
			body:  mustSQL("bigquery"),
		},
		models.PlatformSnowflake: {
			label: "Snowflake", language: "sql", extension: ".sql",
			quote: quoteWith(`"`, `"`),
			body:  mustSQL("snowflake"),
		},
		models.PlatformRedshift: {
			label: "Redshift", language: "sql", extension: ".sql",
			quote: plain,
			body:  mustSQL("redshift"),
		},
		models.PlatformDatabricks: {
			label: "Databricks", language: "python", extension: ".py",
			quote: plain,
			body:  template.Must(template.New("databricks").Parse(pysparkTemplate)),
		},
	}
}
