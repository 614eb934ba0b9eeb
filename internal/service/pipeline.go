package service

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/helpdesk-proxy/backend/internal/models"
	"github.com/helpdesk-proxy/backend/internal/store"
)

// Pipeline runs the batch stages over the document store. Stages are
// synchronous and strictly ordered: each one fully consumes its input
// documents and writes its complete output before the next starts.
type Pipeline struct {
	Store     *store.Store
	Logger    zerolog.Logger
	PortalURL string
}

// RebuildSummary reports what a full pipeline run produced.
type RebuildSummary struct {
	Tickets   int `json:"tickets"`
	Companies int `json:"companies"`
	Groups    int `json:"groups"`
	Tenants   int `json:"tenants"`
}

// Normalize reads the raw snapshot and writes the simplified ticket list,
// the updated requester cache and the merged company table. A missing or
// malformed raw snapshot is fatal for the run.
func (p *Pipeline) Normalize() (tickets int, companies int, err error) {
	raw, err := p.Store.LoadRawTickets()
	if err != nil {
		return 0, 0, fmt.Errorf("load raw tickets: %w", err)
	}

	cache := p.Store.LoadRequesterCache()
	simplified := NormalizeTickets(raw, cache, p.PortalURL)
	table := BuildCompanyTable(simplified, cache, p.Store.LoadCompaniesOptional())

	if err := p.Store.SaveSimplifiedTickets(simplified); err != nil {
		return 0, 0, err
	}
	if err := p.Store.SaveRequesterCache(cache); err != nil {
		return 0, 0, err
	}
	if err := p.Store.SaveCompanies(table); err != nil {
		return 0, 0, err
	}

	p.Logger.Info().
		Int("raw", len(raw)).
		Int("simplified", len(simplified)).
		Int("companies", len(table)).
		Msg("normalize complete")
	return len(simplified), len(table), nil
}

// Unify computes the unified company groups. Simplified tickets and the
// company table are required inputs; the requester cache falls back to
// empty.
func (p *Pipeline) Unify() (int, error) {
	tickets, err := p.Store.LoadSimplifiedTickets()
	if err != nil {
		return 0, fmt.Errorf("load simplified tickets: %w", err)
	}
	companies, err := p.Store.LoadCompanies()
	if err != nil {
		return 0, fmt.Errorf("load companies: %w", err)
	}
	cache := p.Store.LoadRequesterCache()

	groups := UnifyCompanies(tickets, companies, cache)
	if err := p.Store.SaveGroups(groups); err != nil {
		return 0, err
	}

	p.Logger.Info().Int("groups", len(groups)).Msg("unify complete")
	return len(groups), nil
}

// Partition rebuilds the per-tenant ticket files. A missing groups document
// is tolerated with an empty fallback; the simplified tickets are required.
func (p *Pipeline) Partition() (int, error) {
	tickets, err := p.Store.LoadSimplifiedTickets()
	if err != nil {
		return 0, fmt.Errorf("load simplified tickets: %w", err)
	}
	groups := p.Store.LoadGroupsOptional()
	companies := p.Store.LoadCompaniesOptional()

	partitions := PartitionTickets(tickets, groups, companies)
	for key, bucket := range partitions {
		if err := p.Store.SaveTenant(key, bucket); err != nil {
			return 0, fmt.Errorf("write tenant %s: %w", key, err)
		}
		p.Logger.Debug().Str("tenant", key).Int("tickets", len(bucket)).Msg("tenant written")
	}

	p.Logger.Info().Int("tenants", len(partitions)).Msg("partition complete")
	return len(partitions), nil
}

// Rebuild runs normalize, unify and partition in order, stopping at the
// first failure. Each stage is atomic from the caller's point of view.
func (p *Pipeline) Rebuild() (RebuildSummary, error) {
	var summary RebuildSummary
	var err error

	if summary.Tickets, summary.Companies, err = p.Normalize(); err != nil {
		return summary, err
	}
	if summary.Groups, err = p.Unify(); err != nil {
		return summary, err
	}
	if summary.Tenants, err = p.Partition(); err != nil {
		return summary, err
	}
	return summary, nil
}

// TenantWeekdays loads one tenant partition and computes its weekday
// distribution.
func (p *Pipeline) TenantWeekdays(tenant string) (models.WeekdayAnalysis, error) {
	tickets, err := p.Store.LoadTenant(tenant)
	if err != nil {
		return models.WeekdayAnalysis{}, err
	}
	return AnalyzeWeekdays(tenant, tickets), nil
}
