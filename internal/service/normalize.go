package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/helpdesk-proxy/backend/internal/models"
	"github.com/helpdesk-proxy/backend/internal/textutil"
)

// NormalizeTickets maps raw vendor tickets to the canonical simplified shape,
// resolving requester identity through the cache, dropping duplicate IDs
// (first occurrence wins) and sorting descending by created_at. The cache is
// updated in place with the freshest non-empty name/email seen per requester.
func NormalizeTickets(raw []models.RawTicket, cache models.RequesterCache, portalURL string) []models.SimplifiedTicket {
	seen := make(map[int64]bool, len(raw))
	out := make([]models.SimplifiedTicket, 0, len(raw))

	for _, t := range raw {
		if t.ID == 0 || seen[t.ID] {
			continue
		}
		seen[t.ID] = true

		name, email := resolveRequester(t, cache)

		tags := t.Tags
		if tags == nil {
			tags = []string{}
		}

		cf := t.CustomFields
		st := models.SimplifiedTicket{
			ID:             t.ID,
			TicketLink:     ticketLink(portalURL, t.ID),
			Subject:        textutil.NormalizeText(t.Subject),
			Description:    normalizeDescription(t),
			Status:         t.Status,
			Priority:       t.Priority,
			Type:           t.Type,
			CompanyID:      t.CompanyID,
			RequesterID:    t.RequesterID,
			RequesterName:  name,
			RequesterEmail: email,
			CreatedAt:      t.CreatedAt,
			UpdatedAt:      t.UpdatedAt,
			DueBy:          t.DueBy,
			IsEscalated:    t.FrEscalated || t.IsEscalated,
			Tags:           tags,
			GroupID:        t.GroupID,
			Module:         firstCustom(cf, "cf_mdulo", "cf_modulo"),
			Process:        firstCustom(cf, "cf_processo", "cf_processo6582"),
			Customization:  firstCustom(cf, "cf_personalizao", "cf_personalizacao"),
			CustomFields: models.CustomFieldSubset{
				Module:        cf["cf_mdulo"],
				Process:       cf["cf_processo"],
				ProcessAlt:    cf["cf_processo6582"],
				Customization: cf["cf_personalizao"],
			},
		}
		out = append(out, st)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return parseTicketTime(out[i].CreatedAt).After(parseTicketTime(out[j].CreatedAt))
	})
	return out
}

// resolveRequester prefers identity embedded on the ticket, falls back to
// the cache, and writes the freshest non-empty values back into the cache.
func resolveRequester(t models.RawTicket, cache models.RequesterCache) (*string, *string) {
	name := strings.TrimSpace(t.RequesterName)
	email := strings.TrimSpace(t.RequesterEmail)

	var key string
	if t.RequesterID != nil {
		key = strconv.FormatInt(*t.RequesterID, 10)
		cached := cache[key]
		if name == "" {
			name = cached.Name
		}
		if email == "" {
			email = cached.Email
		}
		if name != "" || email != "" {
			entry := cache[key]
			if name != "" {
				entry.Name = name
			}
			if email != "" {
				entry.Email = email
			}
			cache[key] = entry
		}
	}
	return optString(name), optString(email)
}

// BuildCompanyTable derives the company table for the current run and merges
// it with the previously persisted one: a new inferred name replaces a stored
// name only when the stored name is a placeholder and the new one is not, so
// names improve monotonically across runs.
func BuildCompanyTable(tickets []models.SimplifiedTicket, cache models.RequesterCache, previous []models.CompanyRecord) []models.CompanyRecord {
	counts := map[string]int{}
	for _, t := range tickets {
		if t.CompanyID == nil {
			continue
		}
		counts[strconv.FormatInt(*t.CompanyID, 10)]++
	}

	prevNames := make(map[string]string, len(previous))
	for _, c := range previous {
		prevNames[c.ID] = c.Name
	}

	// First-occurrence order over the sorted ticket list decides which
	// requester's email gets to name the company.
	var order []string
	guesses := map[string]string{}
	for _, t := range tickets {
		if t.CompanyID == nil {
			continue
		}
		id := strconv.FormatInt(*t.CompanyID, 10)
		if _, ok := guesses[id]; ok {
			continue
		}

		guess := ""
		if t.RequesterID != nil {
			if cached, ok := cache[strconv.FormatInt(*t.RequesterID, 10)]; ok && cached.Email != "" {
				guess = textutil.GuessCompanyNameFromEmail(cached.Email)
			}
		}
		if guess == "" && t.RequesterEmail != nil {
			guess = textutil.GuessCompanyNameFromEmail(*t.RequesterEmail)
		}
		if guess == "" {
			guess = "empresa_" + id
		}
		guesses[id] = guess
		order = append(order, id)
	}

	out := make([]models.CompanyRecord, 0, len(order))
	for _, id := range order {
		name := guesses[id]
		if prev, ok := prevNames[id]; ok {
			if !(textutil.IsPlaceholderName(prev) && !textutil.IsPlaceholderName(name)) {
				name = prev
			}
		}
		out = append(out, models.CompanyRecord{ID: id, Name: name, TotalTickets: counts[id]})
	}

	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

func normalizeDescription(t models.RawTicket) *string {
	if t.DescriptionText != "" {
		return textutil.NormalizeText(t.DescriptionText)
	}
	return textutil.NormalizeText(t.Description)
}

func firstCustom(cf map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := cf[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func ticketLink(portalURL string, id int64) *string {
	if portalURL == "" {
		return nil
	}
	link := fmt.Sprintf("%s/support/tickets/%d", strings.TrimRight(portalURL, "/"), id)
	return &link
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// parseTicketTime parses a vendor timestamp, returning the zero time for
// anything unparsable so malformed records sort as oldest instead of
// breaking the sort.
func parseTicketTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}
