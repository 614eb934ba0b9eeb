package service

import (
	"strconv"
	"strings"

	"github.com/helpdesk-proxy/backend/internal/models"
	"github.com/helpdesk-proxy/backend/internal/textutil"
)

// PartitionTickets fans the full ticket set out into one bucket per unified
// group, keyed by a filesystem-safe tenant key. Groups with more than one
// member company get a "grupo_" prefix. Tickets whose company matches no
// group land in a synthetic "empresa_<id>" bucket, including the literal
// "empresa_sem_empresa" bucket for tickets with no company at all. The
// result is a full rebuild: callers overwrite prior tenant files wholesale.
func PartitionTickets(tickets []models.SimplifiedTicket, groups map[string]models.UnifiedGroup, companies []models.CompanyRecord) map[string][]models.SimplifiedTicket {
	idToGroup := map[string]string{}
	fileKeys := map[string]string{}
	for canonical, g := range groups {
		key := textutil.SanitizeFilename(canonical)
		if len(g.MemberIDs) > 1 {
			key = "grupo_" + key
		}
		fileKeys[canonical] = key
		for _, id := range g.MemberIDs {
			idToGroup[id] = canonical
		}
	}

	buckets := map[string][]models.SimplifiedTicket{}
	var bucketOrder []string
	for _, t := range tickets {
		cid := "sem_empresa"
		if t.CompanyID != nil {
			cid = strconv.FormatInt(*t.CompanyID, 10)
		}
		name, ok := idToGroup[cid]
		if !ok {
			name = "empresa_" + cid
		}
		if _, exists := buckets[name]; !exists {
			bucketOrder = append(bucketOrder, name)
		}
		buckets[name] = append(buckets[name], t)
	}

	out := make(map[string][]models.SimplifiedTicket, len(buckets))
	for _, name := range bucketOrder {
		key, ok := fileKeys[name]
		if !ok {
			key = fallbackFileKey(name, companies)
		}
		out[key] = append(out[key], buckets[name]...)
	}
	return out
}

// fallbackFileKey resolves a tenant key for a synthetic "empresa_<id>"
// bucket: a company-table lookup by ID or case-insensitive name first, then
// the sanitized bucket name itself.
func fallbackFileKey(bucket string, companies []models.CompanyRecord) string {
	id := strings.TrimPrefix(bucket, "empresa_")
	for _, c := range companies {
		if c.ID == id || strings.EqualFold(c.Name, bucket) {
			return textutil.SanitizeFilename(c.Name)
		}
	}
	return textutil.SanitizeFilename(bucket)
}
