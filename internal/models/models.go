package models

// RawTicket is the vendor-shaped ticket record as returned by the Freshdesk
// search API and persisted in the raw snapshot. Only the fields the pipeline
// consumes are mapped; everything else is ignored on decode.
type RawTicket struct {
	ID              int64          `json:"id"`
	Subject         string         `json:"subject"`
	Description     string         `json:"description"`
	DescriptionText string         `json:"description_text"`
	Status          *int           `json:"status"`
	Priority        *int           `json:"priority"`
	Type            *string        `json:"type"`
	CompanyID       *int64         `json:"company_id"`
	RequesterID     *int64         `json:"requester_id"`
	RequesterName   string         `json:"requester_name,omitempty"`
	RequesterEmail  string         `json:"requester_email,omitempty"`
	CreatedAt       string         `json:"created_at"`
	UpdatedAt       string         `json:"updated_at"`
	DueBy           *string        `json:"due_by"`
	FrEscalated     bool           `json:"fr_escalated"`
	IsEscalated     bool           `json:"is_escalated"`
	Tags            []string       `json:"tags"`
	GroupID         *int64         `json:"group_id"`
	CustomFields    map[string]any `json:"custom_fields"`
}

// RequesterRecord is a cached contact: name and email of the person who
// opened a ticket. Entries accumulate across runs and are never evicted.
type RequesterRecord struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// RequesterCache maps requester ID (stringified) to the cached contact.
type RequesterCache map[string]RequesterRecord

// CustomFieldSubset carries the vendor custom fields the reporting frontend
// consumes. Key names are the vendor's, kept verbatim so the documents stay
// compatible with existing tenant files.
type CustomFieldSubset struct {
	Module        any `json:"cf_mdulo"`
	Process       any `json:"cf_processo"`
	ProcessAlt    any `json:"cf_processo6582"`
	Customization any `json:"cf_personalizao"`
}

// SimplifiedTicket is the canonical ticket shape produced by the normalizer.
// The collection is unique by ID and sorted descending by CreatedAt.
type SimplifiedTicket struct {
	ID             int64             `json:"id"`
	TicketLink     *string           `json:"ticket_link"`
	Subject        *string           `json:"subject"`
	Description    *string           `json:"description"`
	Status         *int              `json:"status"`
	Priority       *int              `json:"priority"`
	Type           *string           `json:"type"`
	CompanyID      *int64            `json:"company_id"`
	RequesterID    *int64            `json:"requester_id"`
	RequesterName  *string           `json:"requester_name"`
	RequesterEmail *string           `json:"requester_email"`
	CreatedAt      string            `json:"created_at"`
	UpdatedAt      string            `json:"updated_at"`
	DueBy          *string           `json:"due_by"`
	IsEscalated    bool              `json:"is_escalated"`
	Tags           []string          `json:"tags"`
	GroupID        *int64            `json:"group_id"`
	Module         any               `json:"module"`
	Process        any               `json:"process"`
	Customization  any               `json:"customization"`
	CustomFields   CustomFieldSubset `json:"custom_fields"`
}

// CompanyRecord is one row of the persisted company table. Name is either
// inferred from a requester email domain or the "empresa_<id>" placeholder;
// once a real name is assigned it is never downgraded back to a placeholder.
type CompanyRecord struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	TotalTickets int    `json:"total_tickets"`
}

// Requester is a (name, email) pair inside a unified group roster.
type Requester struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UnifiedGroup is one connected component of companies joined by shared
// requesters. MemberIDs partition the full company-ID set across all groups.
type UnifiedGroup struct {
	MemberIDs   []string    `json:"member_company_ids"`
	MemberNames []string    `json:"member_company_names"`
	Requesters  []Requester `json:"requesters"`
}

// UpdateHistoryEntry records the last incremental update of a company or
// unified group.
type UpdateHistoryEntry struct {
	IDs            []string `json:"ids"`
	LastUpdate     string   `json:"last_update"`
	TicketsUpdated int      `json:"tickets_updated"`
}

// UpdateHistory maps company/group name to its last update record.
type UpdateHistory map[string]UpdateHistoryEntry

// WeekdayEntry is one ticket's contribution to a tenant weekday analysis.
type WeekdayEntry struct {
	ID        int64  `json:"id"`
	CreatedAt string `json:"created_at"`
	Weekday   string `json:"weekday"`
}

// WeekdayAnalysis is the per-tenant distribution of tickets by weekday.
type WeekdayAnalysis struct {
	Tenant       string         `json:"tenant"`
	TotalTickets int            `json:"total_tickets"`
	Days         []WeekdayEntry `json:"days"`
	TotalsByDay  map[string]int `json:"totals_by_day"`
}
