package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/domain"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/repository"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/tenant"
)

type templateMatcher struct {
	repo    repository.Querier
	tenants tenant.Lister
	logger  *slog.Logger
}

// NewTemplateMatcher creates a matcher that reads due templates from repo.
// tenants is only needed for FindDueTemplatesAllTenants.
func NewTemplateMatcher(repo repository.Querier, tenants tenant.Lister, logger *slog.Logger) domain.TemplateMatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &templateMatcher{
		repo:    repo,
		tenants: tenants,
		logger:  logger.With("service", "matcher"),
	}
}

// FindDueTemplates returns active templates of one tenant due on or before
// the calendar date of asOf (in asOf's location).
func (m *templateMatcher) FindDueTemplates(ctx context.Context, asOf time.Time, tenantID uuid.UUID) ([]domain.Template, error) {
	rows, err := m.repo.ListDueTemplates(ctx, repository.ListDueTemplatesParams{
		TenantID: repository.UUID(tenantID),
		AsOf:     repository.Date(asOf),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list due templates: %w", err)
	}

	return lo.Map(rows, func(row repository.Invoice, _ int) domain.Template {
		tpl := templateFromRow(row)
		if tpl.ContentErr != nil {
			// Kept in the result; the generator rejects it and it counts as failed.
			m.logger.Warn("template content unreadable",
				"tenant_id", tenantID,
				"template_id", tpl.ID,
				"error", tpl.ContentErr,
			)
		}
		return tpl
	}), nil
}

// FindDueTemplatesAllTenants walks every tenant and merges their due
// templates, each tagged with its owning tenant.
func (m *templateMatcher) FindDueTemplatesAllTenants(ctx context.Context, asOf time.Time) ([]domain.Template, error) {
	if m.tenants == nil {
		return nil, domain.ErrTenantEnumeration.Wrap("matcher.all_tenants", fmt.Errorf("no tenant lister configured"))
	}

	var all []domain.Template
	err := m.tenants.Each(ctx, func(t tenant.Tenant) error {
		templates, err := m.FindDueTemplates(ctx, asOf, t.ID)
		if err != nil {
			return fmt.Errorf("tenant %s: %w", t.ID, err)
		}
		for i := range templates {
			templates[i].TenantID = t.ID
		}
		all = append(all, templates...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}
