package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoute(t *testing.T) {
	tests := map[string]string{
		"/editor/login":             "/editor/login",
		"/editor/collections":       "/editor/collections",
		"/editor/projects":          "/editor/projects",
		"/editor/projects/abc123":   "/editor/projects/:id",
		"/editor/collections/c1/p2": "/editor/collections/:id/:id",
		"/other/projects/abc":       "/other/projects/abc",
		"/editor/unknown/abc":       "/editor/unknown/abc",
	}
	for in, want := range tests {
		assert.Equal(t, want, Route(in), in)
	}
}

func TestRecordSketch(t *testing.T) {
	before := testutil.ToFloat64(sketchesTotal.WithLabelValues(ActionCreate, "error"))
	RecordSketch(ActionCreate, false)
	assert.Equal(t, before+1, testutil.ToFloat64(sketchesTotal.WithLabelValues(ActionCreate, "error")))
}

func TestRecordAPIRequest(t *testing.T) {
	c := apiRequestsTotal.WithLabelValues("PUT", "/editor/projects/:id", "200")
	before := testutil.ToFloat64(c)
	RecordAPIRequest("PUT", "/editor/projects/65f0c0ffee", 200, 10*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}

func TestWriteFile(t *testing.T) {
	RecordUpload(3, 120)
	RecordRun(2 * time.Second)

	path := filepath.Join(t.TempDir(), "sketchsync.prom")
	require.NoError(t, WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "sketchsync_files_uploaded_total")
	assert.Contains(t, string(data), "sketchsync_last_run_duration_seconds 2")
}
