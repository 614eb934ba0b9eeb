package service

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/helpdesk-proxy/backend/internal/models"
	"github.com/helpdesk-proxy/backend/internal/store"
)

// TicketSource abstracts the vendor API for extraction and incremental
// updates.
type TicketSource interface {
	SearchCreatedBetween(ctx context.Context, lower, upper time.Time) ([]models.RawTicket, error)
	SearchUpdatedSince(ctx context.Context, since time.Time) ([]models.RawTicket, error)
	Contact(ctx context.Context, requesterID int64) (models.RequesterRecord, error)
}

// validStatuses are the vendor lifecycle states worth keeping: open,
// pending, resolved, closed.
var validStatuses = map[int]struct{}{2: {}, 3: {}, 4: {}, 5: {}}

// Extractor walks the vendor search API month by month from FromDate back
// to ToDateEnd, newest window first, sidestepping the 10-page cap a single
// query is subject to. Each window is merged into the raw snapshot before
// the next starts, so an aborted extraction still leaves usable data.
type Extractor struct {
	Store     *store.Store
	Source    TicketSource
	Logger    zerolog.Logger
	FromDate  time.Time
	ToDateEnd time.Time
	MaxMonths int
}

// Run performs the extraction and returns how many tickets the vendor
// returned across all windows.
func (e *Extractor) Run(ctx context.Context) (int, error) {
	maxMonths := e.MaxMonths
	if maxMonths <= 0 {
		maxMonths = 36
	}

	cache := e.Store.LoadRequesterCache()
	upper := e.FromDate
	months := 0
	total := 0

	for upper.After(e.ToDateEnd) && months < maxMonths {
		lower := upper.AddDate(0, -1, 0)
		if lower.Before(e.ToDateEnd) {
			lower = e.ToDateEnd
		}

		batch, err := e.Source.SearchCreatedBetween(ctx, lower, upper)
		if err != nil {
			return total, err
		}

		kept := filterValidStatus(batch)
		e.enrichRequesters(ctx, kept, cache)

		existing := e.Store.LoadRawTicketsOptional()
		merged := mergeRawTickets(existing, kept, false)
		if err := e.Store.SaveRawTickets(merged); err != nil {
			return total, err
		}
		if err := e.Store.SaveRequesterCache(cache); err != nil {
			return total, err
		}

		total += len(batch)
		e.Logger.Info().
			Str("from", lower.Format("2006-01-02")).
			Str("to", upper.Format("2006-01-02")).
			Int("fetched", len(batch)).
			Int("kept", len(kept)).
			Int("snapshot", len(merged)).
			Msg("extraction window merged")

		upper = lower
		months++
	}
	return total, nil
}

// enrichRequesters resolves unseen requester IDs through the contact
// endpoint and stamps name/email onto the tickets. Lookup failures skip the
// ticket's enrichment but never abort the extraction.
func (e *Extractor) enrichRequesters(ctx context.Context, tickets []models.RawTicket, cache models.RequesterCache) {
	for i := range tickets {
		t := &tickets[i]
		if t.RequesterID == nil {
			continue
		}
		key := strconv.FormatInt(*t.RequesterID, 10)
		record, ok := cache[key]
		if !ok {
			var err error
			record, err = e.Source.Contact(ctx, *t.RequesterID)
			if err != nil {
				e.Logger.Warn().Int64("requester_id", *t.RequesterID).Err(err).Msg("requester lookup failed")
				continue
			}
			cache[key] = record
		}
		if t.RequesterName == "" {
			t.RequesterName = record.Name
		}
		if t.RequesterEmail == "" {
			t.RequesterEmail = record.Email
		}
	}
}

func filterValidStatus(tickets []models.RawTicket) []models.RawTicket {
	out := make([]models.RawTicket, 0, len(tickets))
	for _, t := range tickets {
		if t.Status == nil {
			continue
		}
		if _, ok := validStatuses[*t.Status]; ok {
			out = append(out, t)
		}
	}
	return out
}

// mergeRawTickets merges incoming tickets into the existing snapshot,
// deduplicated by ID and sorted descending by created_at. With
// preferIncoming the new record replaces the stored one (incremental
// updates); without it the stored record wins (initial extraction, which
// already enriched what it kept).
func mergeRawTickets(existing, incoming []models.RawTicket, preferIncoming bool) []models.RawTicket {
	index := make(map[int64]int, len(existing))
	merged := make([]models.RawTicket, 0, len(existing)+len(incoming))
	for _, t := range existing {
		index[t.ID] = len(merged)
		merged = append(merged, t)
	}
	for _, t := range incoming {
		if pos, ok := index[t.ID]; ok {
			if preferIncoming {
				merged[pos] = t
			}
			continue
		}
		index[t.ID] = len(merged)
		merged = append(merged, t)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return parseTicketTime(merged[i].CreatedAt).After(parseTicketTime(merged[j].CreatedAt))
	})
	return merged
}
