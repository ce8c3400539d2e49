package metrics

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ASHISH26940/petitiondesk/internal/persistence"
	"github.com/ASHISH26940/petitiondesk/internal/petition"
	"github.com/ASHISH26940/petitiondesk/internal/store"
)

func TestResult(t *testing.T) {
	assert.Equal(t, "ok", Result(nil))
	assert.Equal(t, "not_found", Result(fmt.Errorf("%w: x", store.ErrNotFound)))
	assert.Equal(t, "validation", Result(&petition.ValidationError{Field: "name"}))
	assert.Equal(t, "persistence", Result(&store.PersistenceError{Err: errors.New("x")}))
	assert.Equal(t, "error", Result(errors.New("x")))
}

func TestCollector_WiredToStore(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	require.NoError(t, err)

	s, err := store.Open(persistence.NewFile(filepath.Join(t.TempDir(), "database.json")), store.WithObserver(c))
	require.NoError(t, err)

	rec, err := s.Create(petition.Fields{Name: "a", Description: "d"})
	require.NoError(t, err)
	_, err = s.Create(petition.Fields{Name: "b", Description: "d"})
	require.NoError(t, err)
	_, err = s.Create(petition.Fields{Name: "c"})
	require.Error(t, err)
	require.NoError(t, s.Delete(rec.ID))
	require.Error(t, s.Delete(rec.ID))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.operations.WithLabelValues("create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("create", "validation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("delete", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("delete", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.records))
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}
