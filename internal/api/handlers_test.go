package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flipradar/server/internal/database"
	"flipradar/server/internal/evaluations"
	"flipradar/server/internal/models"
	"flipradar/server/internal/pricing"
	"flipradar/server/internal/queue"
)

func newTestRouter(t *testing.T) (*gin.Engine, *database.Database, *evaluations.Store, *queue.ObjectQueue) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, err := database.NewDatabase(":memory:")
	require.NoError(t, err)
	// every pooled connection gets its own in-memory database, so keep one
	db.GetDB().SetMaxOpenConns(1)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })

	store := evaluations.NewStore(pricing.DefaultPolicy().Weights)
	pricer := pricing.NewEngine(pricing.DefaultPolicy())
	q := queue.NewObjectQueue(10, logger)

	handler := NewHandler(db, store, pricer, q, nil, logger)
	router := gin.New()
	SetupRoutes(router, handler)
	return router, db, store, q
}

func seedReportFixture(t *testing.T, db *database.Database) {
	t.Helper()
	exec := func(query string) {
		_, err := db.GetDB().Exec(query)
		require.NoError(t, err)
	}

	exec(`INSERT INTO map_areas (id, name) VALUES (1, 'center')`)
	exec(`INSERT INTO addresses (id, map_area_id) VALUES (101, 1)`)
	exec(`INSERT INTO segments (id, map_area_id, name) VALUES (10, 1, 'all')`)
	exec(`INSERT INTO subsegments (id, segment_id, name) VALUES (100, 10, 'any')`)
	exec(`INSERT INTO objects (id, status, address_id, current_price, area_total, property_type, created, updated)
	      VALUES (1000, 'archive', 101, 10000000, 50, '2k', '2025-01-01T00:00:00Z', '2025-05-01T00:00:00Z')`)
}

func doRequest(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetMapAreas(t *testing.T) {
	router, db, _, _ := newTestRouter(t)
	seedReportFixture(t, db)

	w := doRequest(router, http.MethodGet, "/api/areas", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var areas []models.MapArea
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &areas))
	require.Len(t, areas, 1)
	assert.Equal(t, "center", areas[0].Name)
}

func TestGetAreaReports(t *testing.T) {
	router, db, store, _ := newTestRouter(t)
	seedReportFixture(t, db)
	require.NoError(t, store.Set(1000, models.TagFlipping))

	w := doRequest(router, http.MethodGet, "/api/areas/1/reports?as_of=2025-06-01T00:00:00Z", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var reports []models.SubsegmentReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, int64(100), reports[0].SubsegmentID)
	require.NotNil(t, reports[0].Price.PerMeterPrice)
	assert.Equal(t, int64(200000), *reports[0].Price.PerMeterPrice)
}

func TestGetAreaReports_UnknownArea(t *testing.T) {
	router, _, _, _ := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/areas/99/reports", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestGetAreaReports_BadAsOf(t *testing.T) {
	router, db, _, _ := newTestRouter(t)
	seedReportFixture(t, db)

	w := doRequest(router, http.MethodGet, "/api/areas/1/reports?as_of=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetSegmentReports(t *testing.T) {
	router, db, _, _ := newTestRouter(t)
	seedReportFixture(t, db)

	w := doRequest(router, http.MethodGet, "/api/segments/10/reports", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var reports []models.SubsegmentReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reports))
	assert.Len(t, reports, 1)
}

func TestGetSegmentReports_NotFound(t *testing.T) {
	router, db, _, _ := newTestRouter(t)
	seedReportFixture(t, db)

	w := doRequest(router, http.MethodGet, "/api/segments/999/reports", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetSubsegmentObjects(t *testing.T) {
	router, db, _, _ := newTestRouter(t)
	seedReportFixture(t, db)

	w := doRequest(router, http.MethodGet, "/api/subsegments/100/objects", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var objects []models.RealEstateObject
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &objects))
	require.Len(t, objects, 1)
	assert.Equal(t, int64(1000), objects[0].ID)
}

func TestGetSubsegmentObjects_DanglingSegment(t *testing.T) {
	router, db, _, _ := newTestRouter(t)
	seedReportFixture(t, db)
	_, err := db.GetDB().Exec(`INSERT INTO subsegments (id, segment_id, name) VALUES (200, 999, 'orphan')`)
	require.NoError(t, err)

	w := doRequest(router, http.MethodGet, "/api/subsegments/200/objects", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestGetSubsegmentObjects_NotFound(t *testing.T) {
	router, db, _, _ := newTestRouter(t)
	seedReportFixture(t, db)

	w := doRequest(router, http.MethodGet, "/api/subsegments/404/objects", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEvaluationLifecycle(t *testing.T) {
	router, db, store, _ := newTestRouter(t)
	seedReportFixture(t, db)

	// nothing assigned yet
	w := doRequest(router, http.MethodGet, "/api/objects/1000/evaluation", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(router, http.MethodPut, "/api/objects/1000/evaluation", gin.H{"tag": "flipping"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/api/objects/1000/evaluation", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "flipping", resp["tag"])

	// persisted alongside the in-memory store
	persisted, err := db.GetEvaluations()
	require.NoError(t, err)
	assert.Equal(t, models.TagFlipping, persisted[1000])

	w = doRequest(router, http.MethodDelete, "/api/objects/1000/evaluation", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	_, ok := store.Get(1000)
	assert.False(t, ok)
}

func TestPutEvaluation_UnknownTag(t *testing.T) {
	router, db, _, _ := newTestRouter(t)
	seedReportFixture(t, db)

	w := doRequest(router, http.MethodPut, "/api/objects/1000/evaluation", gin.H{"tag": "haunted"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPutEvaluation_ObjectNotFound(t *testing.T) {
	router, db, _, _ := newTestRouter(t)
	seedReportFixture(t, db)

	w := doRequest(router, http.MethodPut, "/api/objects/777/evaluation", gin.H{"tag": "flipping"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIngestObjects(t *testing.T) {
	router, _, _, q := newTestRouter(t)

	batch := []models.RealEstateObject{
		{ID: 1, Status: models.StatusActive, AddressID: 101, CurrentPrice: 9000000, AreaTotal: 40, PropertyType: models.PropertyType1K},
	}
	w := doRequest(router, http.MethodPost, "/api/objects/batch", batch)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, q.Len())
}

func TestIngestObjects_EmptyBatch(t *testing.T) {
	router, _, _, _ := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/objects/batch", []models.RealEstateObject{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
