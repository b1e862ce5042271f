package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/videos", "200"))
	RecordAPIRequest("GET", "/api/v1/videos", "200", 25*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/videos", "200"))
	if after != before+1 {
		t.Fatalf("expected counter to grow by one, got %v -> %v", before, after)
	}
}

func TestRecordDeletionOutcome(t *testing.T) {
	okBefore := testutil.ToFloat64(MediaDeletions.WithLabelValues("ok"))
	errBefore := testutil.ToFloat64(MediaDeletions.WithLabelValues("error"))

	RecordDeletion(nil)
	RecordDeletion(errors.New("boom"))

	if got := testutil.ToFloat64(MediaDeletions.WithLabelValues("ok")); got != okBefore+1 {
		t.Fatalf("ok deletions: got %v", got)
	}
	if got := testutil.ToFloat64(MediaDeletions.WithLabelValues("error")); got != errBefore+1 {
		t.Fatalf("failed deletions: got %v", got)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Fatalf("expected gauge to increase, got %v", got)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Fatalf("expected gauge to return, got %v", got)
	}
}
