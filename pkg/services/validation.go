package services

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

//go:embed fixtures/validation_checks.yaml
var validationChecksYAML []byte

// ValidationProvider runs the post-migration validation checklist.
type ValidationProvider interface {
	Checklist(ctx context.Context, project *models.Project) ([]models.ValidationCheck, error)
}

type validationChecklist struct {
	Checks []models.ValidationCheck `yaml:"checks"`
}

type fixtureValidationProvider struct {
	checks []models.ValidationCheck
}

// NewFixtureValidationProvider returns a provider whose checks all pass.
// The checklist is loaded from the embedded YAML fixture.
func NewFixtureValidationProvider() (ValidationProvider, error) {
	checks, err := parseChecklist(validationChecksYAML)
	if err != nil {
		return nil, err
	}
	return &fixtureValidationProvider{checks: checks}, nil
}

var _ ValidationProvider = (*fixtureValidationProvider)(nil)

func parseChecklist(data []byte) ([]models.ValidationCheck, error) {
	var list validationChecklist
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse validation checklist: %w", err)
	}
	if len(list.Checks) == 0 {
		return nil, fmt.Errorf("validation checklist is empty")
	}

	seen := make(map[string]bool, len(list.Checks))
	for _, c := range list.Checks {
		if c.ID == "" {
			return nil, fmt.Errorf("validation check %q has no id", c.Name)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("duplicate validation check id %q", c.ID)
		}
		seen[c.ID] = true
	}
	return list.Checks, nil
}

func (p *fixtureValidationProvider) Checklist(ctx context.Context, project *models.Project) ([]models.ValidationCheck, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]models.ValidationCheck, len(p.checks))
	for i, c := range p.checks {
		c.Status = models.ValidationCheckPassed
		if project != nil {
			c.Detail = fmt.Sprintf("%s to %s", project.SourceDialect, project.TargetDialect)
		}
		out[i] = c
	}
	return out, nil
}
