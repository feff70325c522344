package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCycleFinished(t *testing.T) {
	before := testutil.ToFloat64(cycles.WithLabelValues("test-cycles", ResultSuccess))

	CycleFinished("test-cycles", ResultSuccess, 2*time.Second)
	CycleFinished("test-cycles", ResultSkipped, 0)

	assert.Equal(t, before+1, testutil.ToFloat64(cycles.WithLabelValues("test-cycles", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(cycles.WithLabelValues("test-cycles", ResultSkipped)))
}

func TestItemSavedAndFetchError(t *testing.T) {
	ItemSaved("test-items")
	ItemSaved("test-items")
	FetchError("test-items", "transport")

	assert.Equal(t, 2.0, testutil.ToFloat64(itemsSaved.WithLabelValues("test-items")))
	assert.Equal(t, 1.0, testutil.ToFloat64(fetchErrors.WithLabelValues("test-items", "transport")))
}

func TestWatermarkSet(t *testing.T) {
	when := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	WatermarkSet("test-watermark", when)

	assert.Equal(t, float64(when.Unix()), testutil.ToFloat64(watermark.WithLabelValues("test-watermark")))
}
