package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Progenics2025/LIMS-sub000/internal/domain"
	"github.com/Progenics2025/LIMS-sub000/internal/http/handler"
	"github.com/Progenics2025/LIMS-sub000/internal/repository"
	"github.com/Progenics2025/LIMS-sub000/internal/service"
	"github.com/Progenics2025/LIMS-sub000/internal/testutil"
)

func setupLeadRouter(t *testing.T) (chi.Router, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	leadRepo := repository.NewLeadRepository(db)
	sampleRepo := repository.NewSampleRepository(db)
	historyRepo := repository.NewLeadStatusHistoryRepository(db)
	idService := service.NewIDService(leadRepo, sampleRepo, logger)

	leadService := service.NewLeadService(
		leadRepo,
		historyRepo,
		repository.NewRecycleRepository(db),
		repository.NewUserRepository(db),
		idService,
		logger,
	)
	conversionService := service.NewConversionService(db, leadRepo, historyRepo, idService, nil, nil, logger)

	h := handler.NewLeadHandler(leadService, conversionService, logger)

	r := chi.NewRouter()
	r.Route("/leads", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/pipeline", h.Pipeline)
		r.Get("/{id}", h.GetByID)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Put("/{id}/status", h.UpdateStatus)
		r.Post("/{id}/convert", h.Convert)
		r.Get("/{id}/history", h.History)
	})
	return r, db
}

func doJSON(t *testing.T, router chi.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestLeadHandler_CreateAndGet(t *testing.T) {
	router, _ := setupLeadRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/leads", map[string]interface{}{
		"patientName": "Asha Rao",
		"serviceName": "Clinical WES",
		"roleHint":    "sales",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Location"))

	var created domain.Lead
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Len(t, created.UniqueID, 10)
	assert.Equal(t, domain.LeadStatusQuoted, created.Status)

	rec = doJSON(t, router, http.MethodGet, "/leads/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLeadHandler_CreateRejectsBadEmail(t *testing.T) {
	router, _ := setupLeadRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/leads", map[string]interface{}{
		"patientName":  "Asha Rao",
		"contactEmail": "not-an-email",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLeadHandler_GetRejectsMalformedID(t *testing.T) {
	router, _ := setupLeadRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/leads/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "UUID")
}

func TestLeadHandler_UpdateStatus(t *testing.T) {
	router, db := setupLeadRouter(t)
	lead := testutil.CreateTestLead(t, db, "26SAHND001", domain.LeadStatusQuoted)

	rec := doJSON(t, router, http.MethodPut, "/leads/"+lead.ID.String()+"/status", map[string]string{
		"status": "cold",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Skipping a stage is refused.
	rec = doJSON(t, router, http.MethodPut, "/leads/"+lead.ID.String()+"/status", map[string]string{
		"status": "won",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLeadHandler_Convert(t *testing.T) {
	router, db := setupLeadRouter(t)
	lead := testutil.CreateTestLead(t, db, "26SAHND002", domain.LeadStatusWon)

	rec := doJSON(t, router, http.MethodPost, "/leads/"+lead.ID.String()+"/convert", map[string]interface{}{
		"amount":   "30000",
		"createGc": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var result domain.ConversionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.NotNil(t, result.Sample)
	assert.NotEmpty(t, result.Sample.SampleID)
	require.NotNil(t, result.GeneticCounselling)
}

func TestLeadHandler_ConvertNonWonLead(t *testing.T) {
	router, db := setupLeadRouter(t)
	lead := testutil.CreateTestLead(t, db, "26SAHND003", domain.LeadStatusHot)

	rec := doJSON(t, router, http.MethodPost, "/leads/"+lead.ID.String()+"/convert", map[string]string{
		"amount": "30000",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLeadHandler_ConvertUnknownLead(t *testing.T) {
	router, _ := setupLeadRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/leads/11111111-1111-1111-1111-111111111111/convert", map[string]string{
		"amount": "30000",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Lead not found")
}

func TestLeadHandler_Pipeline(t *testing.T) {
	router, db := setupLeadRouter(t)
	testutil.CreateTestLead(t, db, "26SAHND004", domain.LeadStatusQuoted)
	testutil.CreateTestLead(t, db, "26SAHND005", domain.LeadStatusWon)

	rec := doJSON(t, router, http.MethodGet, "/leads/pipeline", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var counts domain.PipelineCounts
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &counts))
	assert.Equal(t, int64(1), counts.Quoted)
	assert.Equal(t, int64(1), counts.Won)
}

func TestLeadHandler_Delete(t *testing.T) {
	router, db := setupLeadRouter(t)
	lead := testutil.CreateTestLead(t, db, "26SAHND006", domain.LeadStatusCold)

	rec := doJSON(t, router, http.MethodDelete, "/leads/"+lead.ID.String()+"?reason=duplicate", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/leads/"+lead.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLeadHandler_ListFilters(t *testing.T) {
	router, db := setupLeadRouter(t)
	testutil.CreateTestLead(t, db, "26SAHND007", domain.LeadStatusQuoted)
	testutil.CreateTestLead(t, db, "26SAHND008", domain.LeadStatusHot)

	rec := doJSON(t, router, http.MethodGet, "/leads?status=hot", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page domain.ListResponse[domain.Lead]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "26SAHND008", page.Items[0].UniqueID)
}
