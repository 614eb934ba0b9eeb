package service

import (
	"time"

	"github.com/helpdesk-proxy/backend/internal/models"
)

// weekdayNames keeps the pt-BR labels the reporting frontend charts on.
var weekdayNames = map[time.Weekday]string{
	time.Sunday:    "domingo",
	time.Monday:    "segunda-feira",
	time.Tuesday:   "terça-feira",
	time.Wednesday: "quarta-feira",
	time.Thursday:  "quinta-feira",
	time.Friday:    "sexta-feira",
	time.Saturday:  "sábado",
}

const weekdayUnknown = "desconhecido"

// AnalyzeWeekdays computes the weekday distribution of a tenant's tickets
// over created_at. Tickets with unparsable timestamps count under
// "desconhecido" instead of failing the analysis.
func AnalyzeWeekdays(tenant string, tickets []models.SimplifiedTicket) models.WeekdayAnalysis {
	analysis := models.WeekdayAnalysis{
		Tenant:       tenant,
		TotalTickets: len(tickets),
		Days:         make([]models.WeekdayEntry, 0, len(tickets)),
		TotalsByDay:  map[string]int{},
	}
	for _, t := range tickets {
		day := weekdayUnknown
		if ts := parseTicketTime(t.CreatedAt); !ts.IsZero() {
			day = weekdayNames[ts.Weekday()]
		}
		analysis.Days = append(analysis.Days, models.WeekdayEntry{
			ID:        t.ID,
			CreatedAt: t.CreatedAt,
			Weekday:   day,
		})
		analysis.TotalsByDay[day]++
	}
	return analysis
}
