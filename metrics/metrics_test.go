package metrics

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rwlock_kv/audit"
	"rwlock_kv/table"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	assert := assert.New(t)
	r := New()

	r.LockAcquired("WRITE")
	r.LockReleased("WRITE", 3*time.Microsecond)
	r.LockAcquired("READ")
	r.LockAcquired("READ")
	r.LockReleased("READ", time.Microsecond)
	r.Outcome("insert", "duplicate")

	assert.Equal(1.0, testutil.ToFloat64(r.acquisitions.WithLabelValues("WRITE")))
	assert.Equal(2.0, testutil.ToFloat64(r.acquisitions.WithLabelValues("READ")))
	assert.Equal(1.0, testutil.ToFloat64(r.releases.WithLabelValues("READ")))
	assert.Equal(1.0, testutil.ToFloat64(r.operations.WithLabelValues("insert", "duplicate")))
	assert.Equal(2, testutil.CollectAndCount(r.held))
}

func TestRecorderWiredToTable(t *testing.T) {
	assert := assert.New(t)
	r := New()
	tb := table.New(audit.New(&bytes.Buffer{}), table.NewLockCounters(), table.WithRecorder(r))

	tb.Insert(1, "Alice", 1)
	tb.Update(2, "Alice", 2)
	tb.Search(3, "Bob")

	assert.Equal(2.0, testutil.ToFloat64(r.acquisitions.WithLabelValues("WRITE")))
	assert.Equal(1.0, testutil.ToFloat64(r.releases.WithLabelValues("READ")))
	assert.Equal(1.0, testutil.ToFloat64(r.operations.WithLabelValues("update", "updated")))
	assert.Equal(1.0, testutil.ToFloat64(r.operations.WithLabelValues("search", "not_found")))
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.LockAcquired("WRITE")
	r.LockReleased("WRITE", time.Microsecond)

	path := filepath.Join(t.TempDir(), "rwkv.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, `rwkv_lock_acquisitions_total{mode="WRITE"} 1`), text)
	assert.Contains(t, text, "# HELP rwkv_lock_hold_seconds")
}
