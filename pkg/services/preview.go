package services

import (
	"context"
	"fmt"

	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
	"github.com/ekaya-inc/ekaya-migrate/pkg/sql"
)

// PreviewProvider derives a table/column preview from uploaded schema content.
type PreviewProvider interface {
	Preview(ctx context.Context, file models.SchemaFile, content []byte) (*models.SchemaPreview, error)
}

type ddlPreviewProvider struct{}

// NewDDLPreviewProvider returns a provider that counts CREATE TABLE statements
// and their columns.
func NewDDLPreviewProvider() PreviewProvider {
	return &ddlPreviewProvider{}
}

var _ PreviewProvider = (*ddlPreviewProvider)(nil)

func (p *ddlPreviewProvider) Preview(ctx context.Context, file models.SchemaFile, content []byte) (*models.SchemaPreview, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("file %q is empty", file.Name)
	}

	tables, err := sql.ParseCreateTables(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", file.Name, err)
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("no CREATE TABLE statements found in %q", file.Name)
	}

	preview := &models.SchemaPreview{TableCount: len(tables)}
	for _, t := range tables {
		preview.ColumnCount += len(t.Columns)
		preview.Tables = append(preview.Tables, t.Name)
	}
	return preview, nil
}
