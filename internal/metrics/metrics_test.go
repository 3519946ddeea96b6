package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRemoteCall(t *testing.T) {
	okBefore := testutil.ToFloat64(RemoteCalls.WithLabelValues("containers", "ok"))
	errBefore := testutil.ToFloat64(RemoteCalls.WithLabelValues("containers", "error"))

	RecordRemoteCall("containers", nil)
	RecordRemoteCall("containers", errors.New("boom"))
	RecordRemoteCall("containers", errors.New("boom"))

	if got := testutil.ToFloat64(RemoteCalls.WithLabelValues("containers", "ok")) - okBefore; got != 1 {
		t.Fatalf("ok calls: got %v", got)
	}
	if got := testutil.ToFloat64(RemoteCalls.WithLabelValues("containers", "error")) - errBefore; got != 2 {
		t.Fatalf("error calls: got %v", got)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET /healthz", "200"))
	RecordAPIRequest("GET /healthz", 200)
	if got := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET /healthz", "200")) - before; got != 1 {
		t.Fatalf("api requests: got %v", got)
	}
}
