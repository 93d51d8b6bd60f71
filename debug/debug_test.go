package debug

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() *Record {
	r := NewRecord("cg")
	res := 1.0
	for i := 0; i <= 10; i++ {
		r.Update(i, res)
		res *= 0.1
	}
	return r
}

func TestRecord(t *testing.T) {
	r := sampleRecord()
	assert.Equal(t, 11, r.Len())
	assert.InDelta(t, 0.1, r.Rate(), 1e-12)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf))
	var back Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, "cg", back.Name)

	r.Reset()
	assert.Equal(t, 0, r.Len())
	assert.True(t, math.IsNaN(r.Rate()))
}

func TestChartsRender(t *testing.T) {
	zero := NewRecord("exact")
	zero.Update(0, 1)
	zero.Update(1, 0)
	c := &Charts{
		Title:   "laplace",
		Records: []*Record{sampleRecord(), zero},
		Levels:  []Level{{Rows: 1024, Nnz: 4992}, {Rows: 512, Nnz: 3000}, {Rows: 90, Nnz: 700}},
	}
	var buf bytes.Buffer
	require.NoError(t, c.Render(&buf))
	assert.Contains(t, buf.String(), "laplace")
	assert.Contains(t, buf.String(), "L2 rows=90")

	w := httptest.NewRecorder()
	c.Handler(w, httptest.NewRequest("GET", "/", nil))
	assert.Contains(t, w.Body.String(), "echarts")
}

func TestSavePlot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "residual.png")
	zero := NewRecord("exact")
	zero.Update(0, 0)
	require.NoError(t, SavePlot(path, "residual", sampleRecord(), zero))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
	assert.Len(t, zero.XYs(), 0)
}
