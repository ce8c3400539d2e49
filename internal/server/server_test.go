// Package server_test contains the unit tests for the server package.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ASHISH26940/petitiondesk/internal/dispatch"
	"github.com/ASHISH26940/petitiondesk/internal/metrics"
	"github.com/ASHISH26940/petitiondesk/internal/persistence"
	"github.com/ASHISH26940/petitiondesk/internal/petition"
	"github.com/ASHISH26940/petitiondesk/internal/store"
)

// mockStore is a mock implementation of the PetitionStore interface whose
// writes always fail to persist.
type mockStore struct {
	mu   sync.RWMutex
	data map[string]petition.Record
}

func (m *mockStore) Create(petition.Fields) (petition.Record, error) {
	return petition.Record{}, &store.PersistenceError{Op: "create", Path: "mock", Err: errors.New("read-only")}
}

func (m *mockStore) Get(id string) (petition.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.data[id]
	if !ok {
		return petition.Record{}, store.ErrNotFound
	}
	return rec, nil
}

func (m *mockStore) List() []petition.Record { return nil }

func (m *mockStore) Update(string, petition.Patch) (petition.Record, error) {
	return petition.Record{}, &store.PersistenceError{Op: "update", Path: "mock", Err: errors.New("read-only")}
}

func (m *mockStore) Delete(string) error {
	return &store.PersistenceError{Op: "delete", Path: "mock", Err: errors.New("read-only")}
}

func newTestServer(t *testing.T) (*Server, *store.Store, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	collector, err := metrics.New(reg)
	require.NoError(t, err)

	st, err := store.Open(
		persistence.NewFile(filepath.Join(t.TempDir(), "database.json")),
		store.WithObserver(collector),
	)
	require.NoError(t, err)
	return New(st, dispatch.New(st, nil), reg, nil), st, reg
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)
	return rr
}

func TestServer_RESTLifecycle(t *testing.T) {
	s, _, _ := newTestServer(t)

	// 1. Create
	rr := do(t, s, http.MethodPost, "/api/petitions", `{"name":"Clean Water Access","description":"Petition for clean water","id":"chosen"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created petition.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.NotEqual(t, "chosen", created.ID)
	assert.True(t, created.CreatedAt.Equal(created.UpdatedAt))

	// 2. Get
	rr = do(t, s, http.MethodGet, "/api/petitions/"+created.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)

	// 3. Patch
	rr = do(t, s, http.MethodPatch, "/api/petitions/"+created.ID, `{"description":"Updated text"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var updated petition.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	assert.Equal(t, "Clean Water Access", updated.Name)
	assert.Equal(t, "Updated text", updated.Description)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	// 4. List
	rr = do(t, s, http.MethodGet, "/api/petitions", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list []petition.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 1)

	// 5. Delete, twice
	rr = do(t, s, http.MethodDelete, "/api/petitions/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = do(t, s, http.MethodDelete, "/api/petitions/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, s, http.MethodGet, "/api/petitions", "")
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestServer_RESTErrors(t *testing.T) {
	s, _, _ := newTestServer(t)

	rr := do(t, s, http.MethodPost, "/api/petitions", `{"name":"no description"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var body dispatch.Error
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, dispatch.KindValidation, body.Kind)

	rr = do(t, s, http.MethodPost, "/api/petitions", `not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, s, http.MethodGet, "/api/petitions/missing", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, s, http.MethodPatch, "/api/petitions/missing", `{"name":"x"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServer_PersistenceFailureIs500(t *testing.T) {
	mock := &mockStore{data: map[string]petition.Record{}}
	s := New(mock, dispatch.New(mock, nil), nil, nil)

	rr := do(t, s, http.MethodPost, "/api/petitions", `{"name":"n","description":"d"}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	rr = do(t, s, http.MethodDelete, "/api/petitions/any", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	// Metrics are disabled without a gatherer.
	rr = do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServer_BindEndpoint(t *testing.T) {
	s, st, _ := newTestServer(t)

	rr := do(t, s, http.MethodPost, "/bind/newPetition", `["Bike Lanes","More protected bike lanes"]`)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp dispatch.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.True(t, resp.OK)
	require.NotNil(t, resp.Petition)
	assert.Equal(t, 1, st.Len())

	rr = do(t, s, http.MethodPost, "/bind/editPetition", `["`+resp.Petition.ID+`","Bike Lanes","Edited"]`)
	require.Equal(t, http.StatusOK, rr.Code)
	resp = dispatch.Response{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, "Edited", resp.Petition.Description)

	rr = do(t, s, http.MethodPost, "/bind/listPetitions", "")
	resp = dispatch.Response{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp.Petitions, 1)

	rr = do(t, s, http.MethodPost, "/bind/deletePetition", `["nope"]`)
	resp = dispatch.Response{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.OK)
	assert.Equal(t, dispatch.KindNotFound, resp.Error.Kind)

	rr = do(t, s, http.MethodPost, "/bind/newPetition", `{"name":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestServer_Dashboard(t *testing.T) {
	s, st, _ := newTestServer(t)

	rr := do(t, s, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "No petitions yet.")

	_, err := st.Create(petition.Fields{Name: "<Clean Water>", Description: "Petition for clean water"})
	require.NoError(t, err)

	rr = do(t, s, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "&lt;Clean Water&gt;")
	assert.Contains(t, rr.Body.String(), "Petition for clean water")
}

func TestServer_Metrics(t *testing.T) {
	s, st, _ := newTestServer(t)
	_, err := st.Create(petition.Fields{Name: "n", Description: "d"})
	require.NoError(t, err)

	rr := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `petitiondesk_store_operations_total{op="create",result="ok"} 1`)
	assert.Contains(t, rr.Body.String(), "petitiondesk_store_records 1")
}
