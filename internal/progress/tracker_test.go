package progress

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTracker_CountersAccumulate(t *testing.T) {
	tr := NewTracker()
	tr.AddRows(100)
	tr.AddRows(50)
	tr.AddBytes(4096)

	snap := tr.Snapshot()
	assert.Equal(t, int64(150), snap.TotalRows)
	assert.Equal(t, int64(4096), snap.BytesProcessed)
}

func TestTracker_ConcurrentAdds(t *testing.T) {
	tr := NewTracker()

	const workers = 16
	const perWorker = 1000

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				tr.AddRows(1)
				tr.AddBytes(10)
			}
		}()
	}
	wg.Wait()

	snap := tr.Snapshot()
	assert.Equal(t, int64(workers*perWorker), snap.TotalRows)
	assert.Equal(t, int64(workers*perWorker*10), snap.BytesProcessed)
}

func TestTracker_ThroughputDerivation(t *testing.T) {
	tr := NewTracker()
	start := tr.startTime
	tr.now = func() time.Time { return start.Add(10 * time.Second) }

	tr.AddRows(5000)
	tr.AddBytes(10 * 1024 * 1024)

	snap := tr.Snapshot()
	assert.Equal(t, 10*time.Second, snap.Elapsed)
	assert.InDelta(t, 500, snap.RowsPerSecond, 0.001)
	assert.InDelta(t, float64(1024*1024), snap.BytesPerSecond, 0.001)
}

func TestTracker_Status(t *testing.T) {
	tr := NewTracker()
	assert.Equal(t, "initializing", tr.Snapshot().Status)

	tr.SetStatus("running")
	assert.Equal(t, "running", tr.Snapshot().Status)
}
