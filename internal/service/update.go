package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helpdesk-proxy/backend/internal/models"
	"github.com/helpdesk-proxy/backend/internal/store"
)

// ErrTargetNotFound means the requested company or group name matched
// nothing in the unified map or the company table.
var ErrTargetNotFound = errors.New("company or group not found")

// Updater refreshes one company or unified group: it fetches recently
// updated vendor tickets, merges the ones belonging to the target into the
// raw snapshot and re-runs the pipeline in-process.
type Updater struct {
	Store     *store.Store
	Source    TicketSource
	Pipeline  *Pipeline
	Logger    zerolog.Logger
	DaysRange int
}

// UpdateSummary reports what an incremental update did.
type UpdateSummary struct {
	Target    string         `json:"target"`
	MemberIDs []string       `json:"member_ids"`
	Fetched   int            `json:"fetched"`
	Merged    int            `json:"merged"`
	Rebuild   RebuildSummary `json:"rebuild"`
}

// ResolveUpdateTarget matches a user-supplied name against the unified
// group map first, then the company table, using a lower-cased
// whitespace-free substring match. Group names are scanned in sorted order
// so a name matching several groups resolves deterministically.
func ResolveUpdateTarget(arg string, groups map[string]models.UnifiedGroup, companies []models.CompanyRecord) (string, []string, error) {
	needle := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(arg)), " ", "")
	if needle == "" {
		return "", nil, fmt.Errorf("%w: empty name", ErrTargetNotFound)
	}

	groupNames := make([]string, 0, len(groups))
	for name := range groups {
		groupNames = append(groupNames, name)
	}
	sort.Strings(groupNames)
	for _, name := range groupNames {
		if strings.Contains(strings.ReplaceAll(strings.ToLower(name), " ", ""), needle) {
			return name, groups[name].MemberIDs, nil
		}
	}

	for _, c := range companies {
		if strings.Contains(strings.ReplaceAll(strings.ToLower(c.Name), " ", ""), needle) {
			return c.Name, []string{c.ID}, nil
		}
	}
	return "", nil, fmt.Errorf("%w: %s", ErrTargetNotFound, arg)
}

// Update runs one incremental update under the run lock. When the vendor
// returns nothing for the target, the snapshot and pipeline are left
// untouched.
func (u *Updater) Update(ctx context.Context, name string) (UpdateSummary, error) {
	release, err := u.Store.Lock()
	if err != nil {
		return UpdateSummary{}, err
	}
	defer release()

	groups := u.Store.LoadGroupsOptional()
	companies := u.Store.LoadCompaniesOptional()

	target, ids, err := ResolveUpdateTarget(name, groups, companies)
	if err != nil {
		return UpdateSummary{}, err
	}
	summary := UpdateSummary{Target: target, MemberIDs: ids}
	u.Logger.Info().Str("target", target).Strs("ids", ids).Msg("incremental update started")

	days := u.DaysRange
	if days <= 0 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	fetched, err := u.Source.SearchUpdatedSince(ctx, since)
	if err != nil {
		return summary, err
	}

	idSet := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		idSet[id] = struct{}{}
	}
	var matched []models.RawTicket
	for _, t := range fetched {
		if t.CompanyID == nil {
			continue
		}
		if _, ok := idSet[strconv.FormatInt(*t.CompanyID, 10)]; ok {
			matched = append(matched, t)
		}
	}
	summary.Fetched = len(matched)

	if len(matched) == 0 {
		u.Logger.Info().Str("target", target).Msg("no updated tickets for target")
		return summary, nil
	}

	existing := u.Store.LoadRawTicketsOptional()
	merged := mergeRawTickets(existing, matched, true)
	if err := u.Store.SaveRawTickets(merged); err != nil {
		return summary, err
	}
	summary.Merged = len(merged)

	history := u.Store.LoadHistory()
	history[target] = models.UpdateHistoryEntry{
		IDs:            ids,
		LastUpdate:     time.Now().UTC().Format(time.RFC3339),
		TicketsUpdated: len(matched),
	}
	if err := u.Store.SaveHistory(history); err != nil {
		return summary, err
	}

	summary.Rebuild, err = u.Pipeline.Rebuild()
	if err != nil {
		return summary, err
	}
	u.Logger.Info().Str("target", target).Int("tickets", len(matched)).Msg("incremental update finished")
	return summary, nil
}
