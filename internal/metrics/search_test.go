package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterSearchMetrics_Idempotent(t *testing.T) {
	RegisterSearchMetrics()
	RegisterSearchMetrics()
}

func TestObserveIndexOp(t *testing.T) {
	before := testutil.ToFloat64(IndexOperationsTotal.WithLabelValues("redis", "count", "error"))

	ObserveIndexOp("redis", "count", errors.New("boom"))
	ObserveIndexOp("redis", "count", nil)

	after := testutil.ToFloat64(IndexOperationsTotal.WithLabelValues("redis", "count", "error"))
	if after-before != 1 {
		t.Errorf("error counter delta = %v, want 1", after-before)
	}
	if ok := testutil.ToFloat64(IndexOperationsTotal.WithLabelValues("redis", "count", "ok")); ok < 1 {
		t.Errorf("ok counter = %v, want >= 1", ok)
	}
}
