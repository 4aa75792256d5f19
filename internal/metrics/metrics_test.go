package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserve(t *testing.T) {
	okBefore := testutil.ToFloat64(buildTotal.WithLabelValues("ok"))
	failBefore := testutil.ToFloat64(buildTotal.WithLabelValues("fail"))
	ObserveBuild(true, time.Millisecond)
	ObserveBuild(false, time.Millisecond)
	ObserveBuild(true, time.Millisecond)
	if got := testutil.ToFloat64(buildTotal.WithLabelValues("ok")) - okBefore; got != 2 {
		t.Errorf("want 2 successful builds, got %v", got)
	}
	if got := testutil.ToFloat64(buildTotal.WithLabelValues("fail")) - failBefore; got != 1 {
		t.Errorf("want 1 failed build, got %v", got)
	}

	tiles := testutil.ToFloat64(tilesLoaded)
	TileAdded()
	TileAdded()
	TileRemoved()
	if got := testutil.ToFloat64(tilesLoaded) - tiles; got != 1 {
		t.Errorf("want 1 tile loaded, got %v", got)
	}

	ObserveQuery("find_path", false, time.Microsecond)
	if got := testutil.ToFloat64(queryTotal.WithLabelValues("find_path", "fail")); got < 1 {
		t.Errorf("query not counted")
	}

	ObserveCrowdUpdate(time.Millisecond, 7)
	if got := testutil.ToFloat64(crowdActiveAgents); got != 7 {
		t.Errorf("want 7 active agents, got %v", got)
	}
}

func TestHandler(t *testing.T) {
	ObserveQuery("raycast", true, time.Microsecond)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("status %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "ainav_query_total") {
		t.Fatal("query counter missing from /metrics")
	}
}
