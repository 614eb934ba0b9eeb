package service

import (
	"sort"
	"testing"

	"github.com/helpdesk-proxy/backend/internal/models"
)

func ticketFor(id int64, companyID int64, requesterID int64) models.SimplifiedTicket {
	return models.SimplifiedTicket{
		ID:          id,
		CompanyID:   i64(companyID),
		RequesterID: i64(requesterID),
		CreatedAt:   "2025-01-01T00:00:00Z",
	}
}

func groupOf(t *testing.T, groups map[string]models.UnifiedGroup, companyID string) (string, models.UnifiedGroup) {
	t.Helper()
	for name, g := range groups {
		for _, id := range g.MemberIDs {
			if id == companyID {
				return name, g
			}
		}
	}
	t.Fatalf("company %s not found in any group: %v", companyID, groups)
	return "", models.UnifiedGroup{}
}

func TestUnifySharedEmailMergesCompanies(t *testing.T) {
	// Same requester email under companies 1 and 2: one group, placeholder
	// canonical name from the first company.
	companies := []models.CompanyRecord{
		{ID: "1", Name: "empresa_1"},
		{ID: "2", Name: "empresa_2"},
	}
	cache := models.RequesterCache{
		"10": {Name: "Ana Silva", Email: "ana@x.com"},
		"11": {Name: "Ana Silva", Email: "ana@x.com"},
	}
	tickets := []models.SimplifiedTicket{
		ticketFor(1, 1, 10),
		ticketFor(2, 2, 11),
	}

	groups := UnifyCompanies(tickets, companies, cache)
	if len(groups) != 1 {
		t.Fatalf("expected one group, got %d: %v", len(groups), groups)
	}
	name, g := groupOf(t, groups, "1")
	if name != "empresa_1" {
		t.Fatalf("expected canonical name empresa_1, got %q", name)
	}
	if len(g.MemberIDs) != 2 {
		t.Fatalf("expected both companies in the group, got %v", g.MemberIDs)
	}
	if len(g.Requesters) != 1 {
		t.Fatalf("expected requester deduplicated by email, got %v", g.Requesters)
	}
}

func TestUnifyTransitivity(t *testing.T) {
	// Companies 1-2 share ana@, 2-3 share bia@; 1 and 3 share nobody
	// directly but all three must land in one group.
	cache := models.RequesterCache{
		"1": {Name: "Ana", Email: "ana@x.com"},
		"2": {Name: "Bia", Email: "bia@y.com"},
	}
	companies := []models.CompanyRecord{
		{ID: "1", Name: "empresa_1"},
		{ID: "2", Name: "empresa_2"},
		{ID: "3", Name: "empresa_3"},
	}
	numTickets := []models.SimplifiedTicket{
		ticketFor(1, 1, 1),
		ticketFor(2, 2, 1),
		ticketFor(3, 2, 2),
		ticketFor(4, 3, 2),
	}

	groups := UnifyCompanies(numTickets, companies, cache)
	if len(groups) != 1 {
		t.Fatalf("expected a single transitive group, got %d: %v", len(groups), groups)
	}
	_, g := groupOf(t, groups, "1")
	got := append([]string(nil), g.MemberIDs...)
	sort.Strings(got)
	want := []string{"1", "2", "3"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected members %v, got %v", want, got)
		}
	}
}

func TestUnifyMatchByNormalizedName(t *testing.T) {
	// Same person, different emails, accented vs plain name: the name key
	// joins the companies.
	companies := []models.CompanyRecord{
		{ID: "1", Name: "empresa_1"},
		{ID: "2", Name: "empresa_2"},
	}
	cache := models.RequesterCache{
		"10": {Name: "José Ávila", Email: "jose@a.com"},
		"11": {Name: "jose avila", Email: "javila@b.com"},
	}
	tickets := []models.SimplifiedTicket{
		ticketFor(1, 1, 10),
		ticketFor(2, 2, 11),
	}
	groups := UnifyCompanies(tickets, companies, cache)
	if len(groups) != 1 {
		t.Fatalf("expected one group via name key, got %d", len(groups))
	}
}

func TestUnifyPartitionInvariant(t *testing.T) {
	companies := []models.CompanyRecord{
		{ID: "1", Name: "Alpha"},
		{ID: "2", Name: "empresa_2"},
		{ID: "3", Name: "Gamma"},
		{ID: "4", Name: "empresa_4"},
	}
	cache := models.RequesterCache{
		"1": {Name: "Ana", Email: "ana@alpha.com"},
		"2": {Name: "Bia", Email: "bia@gamma.com"},
	}
	tickets := []models.SimplifiedTicket{
		ticketFor(1, 1, 1),
		ticketFor(2, 2, 1),
		ticketFor(3, 3, 2),
	}

	groups := UnifyCompanies(tickets, companies, cache)

	seen := map[string]int{}
	for _, g := range groups {
		for _, id := range g.MemberIDs {
			seen[id]++
		}
	}
	for _, c := range companies {
		if seen[c.ID] != 1 {
			t.Fatalf("company %s appears %d times across groups", c.ID, seen[c.ID])
		}
	}
	if len(seen) != len(companies) {
		t.Fatalf("groups cover %d companies, want %d", len(seen), len(companies))
	}
}

func TestUnifyCanonicalNamePrefersNonPlaceholder(t *testing.T) {
	companies := []models.CompanyRecord{
		{ID: "1", Name: "empresa_1"},
		{ID: "2", Name: "Polivisor"},
	}
	cache := models.RequesterCache{"1": {Name: "Ana", Email: "ana@x.com"}}
	tickets := []models.SimplifiedTicket{
		ticketFor(1, 1, 1),
		ticketFor(2, 2, 1),
	}
	groups := UnifyCompanies(tickets, companies, cache)
	if _, ok := groups["Polivisor"]; !ok {
		t.Fatalf("expected canonical name Polivisor, got %v", groups)
	}
}

func TestUnifySyntheticCompanyFromUnknownID(t *testing.T) {
	cache := models.RequesterCache{"1": {Name: "Ana", Email: "ana@x.com"}}
	tickets := []models.SimplifiedTicket{ticketFor(1, 777, 1)}

	groups := UnifyCompanies(tickets, nil, cache)
	name, g := groupOf(t, groups, "777")
	if name != "empresa_777" {
		t.Fatalf("expected synthetic placeholder group, got %q", name)
	}
	if len(g.Requesters) != 1 || g.Requesters[0].Email != "ana@x.com" {
		t.Fatalf("expected roster carried over, got %v", g.Requesters)
	}
}

func TestUnifySkipsEmptyRequesters(t *testing.T) {
	companies := []models.CompanyRecord{{ID: "1", Name: "Alpha"}}
	cache := models.RequesterCache{
		"1": {Name: "  ", Email: ""},
	}
	tickets := []models.SimplifiedTicket{
		ticketFor(1, 1, 1),
		{ID: 2, CompanyID: i64(1), CreatedAt: "2025-01-01T00:00:00Z"}, // no requester id
		ticketFor(3, 1, 99),                                          // not in cache
	}
	groups := UnifyCompanies(tickets, companies, cache)
	_, g := groupOf(t, groups, "1")
	if len(g.Requesters) != 0 {
		t.Fatalf("expected empty roster, got %v", g.Requesters)
	}
}

func TestUnifyCanonicalNameCollisionLastWriteWins(t *testing.T) {
	// Two unrelated components with the same display name: the later
	// component overwrites the earlier map entry. Documented behavior, not
	// an accident.
	companies := []models.CompanyRecord{
		{ID: "1", Name: "Dup"},
		{ID: "2", Name: "Dup"},
	}
	cache := models.RequesterCache{
		"1": {Name: "Ana", Email: "ana@x.com"},
		"2": {Name: "Bia", Email: "bia@y.com"},
	}
	tickets := []models.SimplifiedTicket{
		ticketFor(1, 1, 1),
		ticketFor(2, 2, 2),
	}
	groups := UnifyCompanies(tickets, companies, cache)
	if len(groups) != 1 {
		t.Fatalf("expected colliding names to collapse to one entry, got %d", len(groups))
	}
	g := groups["Dup"]
	if len(g.MemberIDs) != 1 || g.MemberIDs[0] != "2" {
		t.Fatalf("expected the later component to win, got %v", g.MemberIDs)
	}
}

func TestUnifyRequestersSortedAndDeduplicated(t *testing.T) {
	companies := []models.CompanyRecord{
		{ID: "1", Name: "empresa_1"},
		{ID: "2", Name: "empresa_2"},
	}
	cache := models.RequesterCache{
		"1": {Name: "Zara", Email: "shared@x.com"},
		"2": {Name: "Ana", Email: "ana@x.com"},
		"3": {Name: "Zara", Email: "SHARED@X.COM"},
	}
	tickets := []models.SimplifiedTicket{
		ticketFor(1, 1, 1),
		ticketFor(2, 1, 2),
		ticketFor(3, 2, 3),
	}
	groups := UnifyCompanies(tickets, companies, cache)
	_, g := groupOf(t, groups, "1")
	if len(g.Requesters) != 2 {
		t.Fatalf("expected 2 unique requesters, got %v", g.Requesters)
	}
	if g.Requesters[0].Name != "Ana" || g.Requesters[1].Name != "Zara" {
		t.Fatalf("expected alphabetical order, got %v", g.Requesters)
	}
}
