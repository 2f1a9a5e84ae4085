package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/quantblocks/quantblocks/internal/modules/builder"
	"github.com/quantblocks/quantblocks/internal/modules/strategies"
)

// setupTestHandler creates a handler backed by an in-memory database.
func setupTestHandler(t *testing.T) *Handler {
	t.Helper()

	logger := zerolog.New(nil).Level(zerolog.Disabled)

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, strategies.InitSchema(db))

	repo := strategies.NewRepository(db, logger)

	n := 0
	gen := func() string {
		n++
		return fmt.Sprintf("%06d", n)
	}
	service := strategies.NewService(repo, builder.DefaultRegistry(), builder.DefaultLimits(), gen, logger)

	return NewHandler(service, logger)
}

func setupTestRouter(t *testing.T) *chi.Mux {
	t.Helper()

	router := chi.NewRouter()
	setupTestHandler(t).RegisterRoutes(router)
	return router
}

// crossBody builds a save request with a minimal valid EMA-cross strategy.
func crossBody(t *testing.T, name string) []byte {
	t.Helper()

	f := builder.NewFactory(builder.DefaultRegistry(), nil)
	fast, err := f.Indicator(builder.IndicatorEMA)
	require.NoError(t, err)
	fast.Length = 12
	slow, err := f.Indicator(builder.IndicatorEMA)
	require.NoError(t, err)
	slow.Length = 26

	up, err := f.Operator(builder.OpCrossesAbove)
	require.NoError(t, err)
	down, err := f.Operator(builder.OpCrossesBelow)
	require.NoError(t, err)

	entry := f.Condition()
	entry.Left, entry.Operator, entry.Right = fast, up, slow
	exit := f.Condition()
	exit.Left, exit.Operator, exit.Right = fast, down, slow

	body, err := json.Marshal(map[string]any{
		"name":        name,
		"description": "golden cross",
		"strategy": &builder.Strategy{
			Entry: []builder.Node{entry},
			Exit:  []builder.Node{exit},
		},
	})
	require.NoError(t, err)
	return body
}

// emptyBody builds a save request whose tree has no conditions at all.
func emptyBody(t *testing.T, name string) []byte {
	t.Helper()

	body, err := json.Marshal(map[string]any{
		"name":     name,
		"strategy": &builder.Strategy{},
	})
	require.NoError(t, err)
	return body
}

func createStrategy(t *testing.T, router *chi.Mux, name string) string {
	t.Helper()

	req := httptest.NewRequest("POST", "/strategies", bytes.NewReader(crossBody(t, name)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	id, ok := response["id"].(string)
	require.True(t, ok)
	return id
}

func TestHandleCreate(t *testing.T) {
	router := setupTestRouter(t)

	req := httptest.NewRequest("POST", "/strategies", bytes.NewReader(crossBody(t, "EMA Cross")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "EMA Cross", response["name"])
	assert.NotEmpty(t, response["id"])

	validation := response["validation"].(map[string]interface{})
	assert.Empty(t, validation["errors"])
	assert.Equal(t, float64(2), validation["indicatorCount"])
}

func TestHandleCreateInvalidTree(t *testing.T) {
	router := setupTestRouter(t)

	req := httptest.NewRequest("POST", "/strategies", bytes.NewReader(emptyBody(t, "Empty")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))

	validation := response["validation"].(map[string]interface{})
	errs := validation["errors"].([]interface{})
	assert.Contains(t, errs, "Missing entry conditions")
	assert.Contains(t, errs, "Missing exit conditions")
}

func TestHandleCreateMissingName(t *testing.T) {
	router := setupTestRouter(t)

	req := httptest.NewRequest("POST", "/strategies", bytes.NewReader(crossBody(t, "")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleCreateMissingTree(t *testing.T) {
	router := setupTestRouter(t)

	req := httptest.NewRequest("POST", "/strategies", bytes.NewReader([]byte(`{"name":"No Tree"}`)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGetNotFound(t *testing.T) {
	router := setupTestRouter(t)

	req := httptest.NewRequest("GET", "/strategies/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleListAfterCreate(t *testing.T) {
	router := setupTestRouter(t)
	createStrategy(t, router, "First")
	createStrategy(t, router, "Second")

	req := httptest.NewRequest("GET", "/strategies", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var summaries []map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&summaries))
	assert.Len(t, summaries, 2)
}

func TestHandleUpdateNotFound(t *testing.T) {
	router := setupTestRouter(t)

	req := httptest.NewRequest("PUT", "/strategies/missing", bytes.NewReader(crossBody(t, "Renamed")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleDeleteThenGet(t *testing.T) {
	router := setupTestRouter(t)
	id := createStrategy(t, router, "Short Lived")

	req := httptest.NewRequest("DELETE", "/strategies/"+id, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest("GET", "/strategies/"+id, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleValidate(t *testing.T) {
	router := setupTestRouter(t)

	req := httptest.NewRequest("POST", "/strategies/validate", bytes.NewReader(emptyBody(t, "Draft")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Validation itself always succeeds; violations are in the payload.
	assert.Equal(t, http.StatusOK, w.Code)

	var result map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.NotEmpty(t, result["errors"])
}

func TestHandleCompile(t *testing.T) {
	router := setupTestRouter(t)

	req := httptest.NewRequest("POST", "/strategies/compile", bytes.NewReader(crossBody(t, "EMA Cross")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Contains(t, response, "dsl")
	assert.Contains(t, response, "validation")

	dsl := response["dsl"].(map[string]interface{})
	assert.Equal(t, float64(1), dsl["version"])
	assert.Len(t, dsl["indicators"], 2)
}

func TestHandleDescribe(t *testing.T) {
	router := setupTestRouter(t)

	req := httptest.NewRequest("POST", "/strategies/describe", bytes.NewReader(crossBody(t, "EMA Cross")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "Enter when EMA(12) crosses above EMA(26)", response["entry"])
	assert.Equal(t, "Exit when EMA(12) crosses below EMA(26)", response["exit"])
}

func TestHandleExportImportRoundTrip(t *testing.T) {
	router := setupTestRouter(t)
	id := createStrategy(t, router, "Portable")

	req := httptest.NewRequest("GET", "/strategies/"+id+"/export", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/x-msgpack", w.Header().Get("Content-Type"))
	bundle := w.Body.Bytes()
	require.NotEmpty(t, bundle)

	// Import into a fresh database.
	other := setupTestRouter(t)
	req = httptest.NewRequest("POST", "/strategies/import", bytes.NewReader(bundle))
	w = httptest.NewRecorder()
	other.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "Portable", response["name"])
	assert.NotEqual(t, id, response["id"])
}

func TestHandleImportGarbage(t *testing.T) {
	router := setupTestRouter(t)

	req := httptest.NewRequest("POST", "/strategies/import", bytes.NewReader([]byte("not msgpack")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
