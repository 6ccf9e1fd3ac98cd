package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordSweep(t *testing.T) {
	before := testutil.ToFloat64(ItemsTotal.WithLabelValues("test-sweep", "failed"))

	RecordSweep("test-sweep", time.Now().Add(-time.Second), 2, 1, 0)

	assert.Equal(t, before+1, testutil.ToFloat64(ItemsTotal.WithLabelValues("test-sweep", "failed")))
	assert.GreaterOrEqual(t, testutil.CollectAndCount(SweepDuration), 1)
}

func TestRecordPublish(t *testing.T) {
	before := testutil.ToFloat64(PublishTotal.WithLabelValues("test-platform", "published"))
	RecordPublish("test-platform", "published")
	assert.Equal(t, before+1, testutil.ToFloat64(PublishTotal.WithLabelValues("test-platform", "published")))
}
