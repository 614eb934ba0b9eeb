package service

import (
	"sort"
	"strconv"
	"strings"

	"github.com/helpdesk-proxy/backend/internal/keygraph"
	"github.com/helpdesk-proxy/backend/internal/models"
	"github.com/helpdesk-proxy/backend/internal/textutil"
)

// UnifyCompanies merges company IDs that share requesters into unified
// groups. Two companies belong to the same group when any requester appears
// in both rosters, matched by lower-cased email or by diacritics-insensitive
// normalized name, transitively: if A shares a requester with B and B shares
// a different one with C, all three form one group.
//
// When two unrelated components compute the same canonical name the later
// one overwrites the earlier entry in the result map. Canonical names derive
// from distinct member-ID sets so this is not expected in practice; the
// behavior is covered by a test rather than silently patched.
func UnifyCompanies(tickets []models.SimplifiedTicket, companies []models.CompanyRecord, cache models.RequesterCache) map[string]models.UnifiedGroup {
	names := make(map[string]string, len(companies))
	rosters := make(map[string][]models.Requester, len(companies))
	order := make([]string, 0, len(companies))

	for _, c := range companies {
		if _, ok := names[c.ID]; ok {
			continue
		}
		names[c.ID] = c.Name
		order = append(order, c.ID)
	}

	// Step A: per-company requester rosters, deduplicated by
	// case-insensitive email. Tickets referencing a company absent from the
	// table get a synthetic placeholder record.
	for _, t := range tickets {
		if t.CompanyID == nil || t.RequesterID == nil {
			continue
		}
		cid := strconv.FormatInt(*t.CompanyID, 10)
		req, ok := cache[strconv.FormatInt(*t.RequesterID, 10)]
		if !ok {
			continue
		}
		name := strings.TrimSpace(req.Name)
		email := strings.TrimSpace(req.Email)
		if name == "" && email == "" {
			continue
		}
		if _, known := names[cid]; !known {
			names[cid] = "empresa_" + cid
			order = append(order, cid)
		}

		emailKey := strings.ToLower(email)
		exists := false
		for _, r := range rosters[cid] {
			if strings.ToLower(r.Email) == emailKey {
				exists = true
				break
			}
		}
		if !exists {
			rosters[cid] = append(rosters[cid], models.Requester{Name: name, Email: email})
		}
	}

	// Steps B and C: reverse index and connected components, delegated to
	// the generic key-graph traversal. Email and name keys live in separate
	// namespaces so an email can never collide with a normalized name.
	keysOf := func(cid string) []string {
		roster := rosters[cid]
		keys := make([]string, 0, 2*len(roster))
		for _, r := range roster {
			if r.Email != "" {
				keys = append(keys, "email:"+strings.ToLower(r.Email))
			}
			if k := textutil.NormalizeKey(r.Name); k != "" {
				keys = append(keys, "name:"+k)
			}
		}
		return keys
	}
	components := keygraph.Components(order, keysOf)

	groups := make(map[string]models.UnifiedGroup, len(components))
	for _, component := range components {
		memberNames := make([]string, len(component))
		for i, id := range component {
			memberNames[i] = names[id]
		}

		// Step D: first non-placeholder name wins, in component visit order.
		canonical := ""
		for _, n := range memberNames {
			if !textutil.IsPlaceholderName(n) {
				canonical = n
				break
			}
		}
		if canonical == "" && len(memberNames) > 0 {
			canonical = memberNames[0]
		}
		if canonical == "" {
			canonical = "empresa_" + component[0]
		}

		// Step E: union the rosters, dedup by lower email (name when the
		// email is absent), sort alphabetically by name.
		seen := map[string]bool{}
		var requesters []models.Requester
		for _, id := range component {
			for _, r := range rosters[id] {
				key := strings.ToLower(r.Email)
				if key == "" {
					key = r.Name
				}
				if key == "" || seen[key] {
					continue
				}
				seen[key] = true
				requesters = append(requesters, r)
			}
		}
		sort.Slice(requesters, func(i, j int) bool {
			return requesters[i].Name < requesters[j].Name
		})

		groups[canonical] = models.UnifiedGroup{
			MemberIDs:   component,
			MemberNames: memberNames,
			Requesters:  requesters,
		}
	}
	return groups
}
