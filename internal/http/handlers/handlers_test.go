package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/helpdesk-proxy/backend/internal/models"
	"github.com/helpdesk-proxy/backend/internal/service"
	"github.com/helpdesk-proxy/backend/internal/store"
)

type stubSource struct {
	updated []models.RawTicket
}

func (s *stubSource) SearchCreatedBetween(context.Context, time.Time, time.Time) ([]models.RawTicket, error) {
	return nil, nil
}

func (s *stubSource) SearchUpdatedSince(context.Context, time.Time) ([]models.RawTicket, error) {
	return s.updated, nil
}

func (s *stubSource) Contact(context.Context, int64) (models.RequesterRecord, error) {
	return models.RequesterRecord{}, nil
}

func newTestHandler(t *testing.T) (*Handler, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st, err := store.New(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	pipe := &service.Pipeline{Store: st, Logger: zerolog.Nop()}
	h := &Handler{
		Store:     st,
		Pipeline:  pipe,
		Updater:   &service.Updater{Store: st, Source: &stubSource{}, Pipeline: pipe, Logger: zerolog.Nop()},
		Validator: validator.New(),
		Logger:    zerolog.Nop(),
	}
	return h, st
}

func testRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.GET("/healthz", h.Healthz)
	r.GET("/api/tickets", h.TicketsList)
	r.GET("/api/companies", h.CompaniesList)
	r.GET("/api/tenants", h.TenantsList)
	r.GET("/api/tenant/:name", h.TenantDetails)
	r.GET("/api/tenant/:name/weekdays", h.TenantWeekdays)
	r.POST("/api/update/:company", h.Update)
	r.POST("/api/rebuild", h.Rebuild)
	return r
}

func doRequest(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	h, _ := newTestHandler(t)
	w := doRequest(testRouter(h), http.MethodGet, "/healthz")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestTicketsListPagination(t *testing.T) {
	h, st := newTestHandler(t)
	var tickets []models.SimplifiedTicket
	for i := int64(1); i <= 5; i++ {
		tickets = append(tickets, models.SimplifiedTicket{ID: i})
	}
	if err := st.SaveSimplifiedTickets(tickets); err != nil {
		t.Fatalf("SaveSimplifiedTickets: %v", err)
	}

	w := doRequest(testRouter(h), http.MethodGet, "/api/tickets?limit=2&offset=4")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Items  []models.SimplifiedTicket `json:"items"`
		Total  int                       `json:"total"`
		Limit  int                       `json:"limit"`
		Offset int                       `json:"offset"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total != 5 || len(body.Items) != 1 || body.Items[0].ID != 5 {
		t.Fatalf("page wrong: %+v", body)
	}
}

func TestCompaniesListEmptyIsArray(t *testing.T) {
	h, _ := newTestHandler(t)
	w := doRequest(testRouter(h), http.MethodGet, "/api/companies")
	if w.Code != http.StatusOK || w.Body.String() != "[]" {
		t.Fatalf("expected empty JSON array, got %d %q", w.Code, w.Body.String())
	}
}

func TestTenantDetails(t *testing.T) {
	h, st := newTestHandler(t)
	if err := st.SaveTenant("acme", []models.SimplifiedTicket{{ID: 1}}); err != nil {
		t.Fatalf("SaveTenant: %v", err)
	}
	r := testRouter(h)

	w := doRequest(r, http.MethodGet, "/api/tenant/acme")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(r, http.MethodGet, "/api/tenant/ghost")
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing tenant: status = %d", w.Code)
	}

	w = doRequest(r, http.MethodGet, "/api/tenant/Acme!")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("key outside [a-z0-9_-] must be rejected, status = %d", w.Code)
	}
}

func TestTenantWeekdays(t *testing.T) {
	h, st := newTestHandler(t)
	if err := st.SaveTenant("acme", []models.SimplifiedTicket{
		{ID: 1, CreatedAt: "2024-06-03T09:00:00Z"},
	}); err != nil {
		t.Fatalf("SaveTenant: %v", err)
	}
	w := doRequest(testRouter(h), http.MethodGet, "/api/tenant/acme/weekdays")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var got models.WeekdayAnalysis
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.TotalsByDay["segunda-feira"] != 1 {
		t.Fatalf("analysis wrong: %+v", got)
	}
}

func TestUpdateUnknownCompany(t *testing.T) {
	h, _ := newTestHandler(t)
	w := doRequest(testRouter(h), http.MethodPost, "/api/update/ghost")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
}

func TestUpdateConflictsWhileLocked(t *testing.T) {
	h, st := newTestHandler(t)
	release, err := st.Lock()
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer release()

	w := doRequest(testRouter(h), http.MethodPost, "/api/update/acme")
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
}

func TestRebuildMissingInput(t *testing.T) {
	h, _ := newTestHandler(t)
	w := doRequest(testRouter(h), http.MethodPost, "/api/rebuild")
	if w.Code != http.StatusPreconditionFailed {
		t.Fatalf("rebuild without a raw snapshot: status = %d: %s", w.Code, w.Body.String())
	}
}

func TestRebuildEndToEnd(t *testing.T) {
	h, st := newTestHandler(t)
	raw := []models.RawTicket{
		{ID: 1, Status: iptr(2), CompanyID: i64(10), RequesterEmail: "ana@acme.com", CreatedAt: "2024-05-01T10:00:00Z"},
	}
	if err := st.SaveRawTickets(raw); err != nil {
		t.Fatalf("SaveRawTickets: %v", err)
	}

	w := doRequest(testRouter(h), http.MethodPost, "/api/rebuild")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var summary service.RebuildSummary
	if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary.Tickets != 1 || summary.Tenants == 0 {
		t.Fatalf("summary wrong: %+v", summary)
	}

	w = doRequest(testRouter(h), http.MethodGet, "/api/tenants")
	if w.Code != http.StatusOK || w.Body.String() == "[]" {
		t.Fatalf("expected tenant keys after rebuild, got %q", w.Body.String())
	}
}

func i64(v int64) *int64 { return &v }
func iptr(v int) *int    { return &v }
