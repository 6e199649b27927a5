package transcript

import (
	"context"
	"sync"
	"time"

	"github.com/NBMedia786/chabot/internal/logging"
	"github.com/NBMedia786/chabot/internal/metrics"
)

const saveTimeout = 30 * time.Second

// Writer saves blobs in the background. Failures are logged and counted,
// never returned.
type Writer struct {
	store   Store
	metrics *metrics.Metrics
	wg      sync.WaitGroup
}

// NewWriter returns a Writer that saves through store.
func NewWriter(store Store, m *metrics.Metrics) *Writer {
	return &Writer{store: store, metrics: m}
}

// Write starts saving data as name and returns immediately. Cancelling ctx
// does not abort the save.
func (w *Writer) Write(ctx context.Context, name string, data []byte) {
	log := logging.From(ctx)
	ctx = context.WithoutCancel(ctx)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, saveTimeout)
		defer cancel()

		if err := w.store.Save(ctx, name, data); err != nil {
			w.metrics.TranscriptWrite("failed")
			log.Error("failed to save transcript", "name", name, "error", err)
			return
		}
		w.metrics.TranscriptWrite("saved")
		log.Debug("transcript saved", "name", name, "bytes", len(data))
	}()
}

// Wait blocks until every started save has finished.
func (w *Writer) Wait() {
	w.wg.Wait()
}
