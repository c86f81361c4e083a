package livedemo_test

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	Lo "github.com/maroda/livedemo/obvy"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestStatsInternal(t *testing.T) {
	t.Run("counts updates by kind", func(t *testing.T) {
		s := Lo.NewStatsInternal()
		s.RecUpdate("value")
		s.RecUpdate("value")
		s.RecUpdate("label")

		assertFloat(t, testutil.ToFloat64(s.Updates.WithLabelValues("value")), 2)
		assertFloat(t, testutil.ToFloat64(s.Updates.WithLabelValues("label")), 1)
	})

	t.Run("tracks clients, fires, and record errors", func(t *testing.T) {
		s := Lo.NewStatsInternal()
		s.SetClients(3)
		s.RecCountdownFire()
		s.RecRecordError()
		s.RecRecordError()

		assertFloat(t, testutil.ToFloat64(s.Clients), 3)
		assertFloat(t, testutil.ToFloat64(s.CountdownFires), 1)
		assertFloat(t, testutil.ToFloat64(s.RecordErrors), 2)
	})

	t.Run("registries are private", func(t *testing.T) {
		a := Lo.NewStatsInternal()
		b := Lo.NewStatsInternal()
		a.RecCountdownFire()
		assertFloat(t, testutil.ToFloat64(b.CountdownFires), 0)
	})

	t.Run("serves the exposition format", func(t *testing.T) {
		s := Lo.NewStatsInternal()
		s.RecWWW("200", "GET")
		s.RecPollTimer(0.02)

		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		body, _ := io.ReadAll(rec.Body)

		for _, want := range []string{
			`livedemo_www_requests_total{code="200",method="GET"} 1`,
			"livedemo_poll_seconds_count 1",
			"go_goroutines",
		} {
			if !strings.Contains(string(body), want) {
				t.Errorf("metrics missing %q", want)
			}
		}
	})
}

func TestInitOTel(t *testing.T) {
	for _, backend := range []string{"", "ENOENT", "none"} {
		t.Run("no-op for "+backend, func(t *testing.T) {
			shutdown, err := Lo.InitOTel(context.Background(), backend)
			if err != nil {
				t.Fatalf("got %v", err)
			}
			shutdown()
		})
	}

	t.Run("rejects unknown backends", func(t *testing.T) {
		if _, err := Lo.InitOTel(context.Background(), "jaeger"); err == nil {
			t.Error("want an error for an unknown backend")
		}
	})
}

func assertFloat(t testing.TB, got, want float64) {
	t.Helper()
	if got != want {
		t.Errorf("did not get correct value, got %f, want %f", got, want)
	}
}
