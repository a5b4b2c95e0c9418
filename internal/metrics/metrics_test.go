package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew(t *testing.T) {
	c := New(nil)
	if c.Registry() == nil {
		t.Fatal("registry not created")
	}

	// A caller-provided registry is used as is.
	reg := prometheus.NewRegistry()
	if New(reg).Registry() != reg {
		t.Error("provided registry not used")
	}
}

func TestRecordAccepted(t *testing.T) {
	c := New(prometheus.NewRegistry())

	c.RecordAccepted("markup", 4, []string{"wall", "np", "zone", "x", "ne"})
	c.RecordAccepted("plain", 2, nil)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"markup accepted", testutil.ToFloat64(c.sentencesTotal.WithLabelValues("markup", ResultAccepted)), 1},
		{"plain accepted", testutil.ToFloat64(c.sentencesTotal.WithLabelValues("plain", ResultAccepted)), 1},
		{"wall annotations", testutil.ToFloat64(c.annotationsTotal.WithLabelValues("wall")), 1},
		{"forced annotations", testutil.ToFloat64(c.annotationsTotal.WithLabelValues("forced")), 2},
		{"ne annotations", testutil.ToFloat64(c.annotationsTotal.WithLabelValues("ne")), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}

	if n := testutil.CollectAndCount(c.tokensPerSentence); n != 1 {
		t.Errorf("histogram series = %d, want 1", n)
	}
}

func TestRecordRejected(t *testing.T) {
	c := New(prometheus.NewRegistry())
	c.RecordRejected("markup", "constraint_range")
	c.RecordRejected("markup", "constraint_range")
	c.RecordRejected("markup", "parse")

	if got := testutil.ToFloat64(c.sentencesTotal.WithLabelValues("markup", ResultRejected)); got != 3 {
		t.Errorf("rejected sentences = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.rejectionsTotal.WithLabelValues("constraint_range")); got != 2 {
		t.Errorf("constraint_range rejections = %v, want 2", got)
	}
}

func TestRecordCacheAndReload(t *testing.T) {
	c := New(prometheus.NewRegistry())
	c.RecordCache(true)
	c.RecordCache(true)
	c.RecordCache(false)
	c.RecordConfigReload()

	if got := testutil.ToFloat64(c.cacheHitsTotal); got != 2 {
		t.Errorf("cache hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.cacheMissesTotal); got != 1 {
		t.Errorf("cache misses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.configReloads); got != 1 {
		t.Errorf("config reloads = %v, want 1", got)
	}
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	c.RecordAccepted("plain", 1, []string{"wall"})
	c.RecordRejected("plain", "parse")
	c.RecordCache(true)
	c.RecordConfigReload()
}

func TestHandler(t *testing.T) {
	c := New(prometheus.NewRegistry())
	c.RecordAccepted("plain", 3, nil)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`xmlinput_sentences_total{path="plain",result="accepted"} 1`,
		"xmlinput_tokens_per_sentence_bucket",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestTagClass(t *testing.T) {
	for tag, want := range map[string]string{"wall": "wall", "zone": "zone", "ne": "ne", "np": "forced", "": "forced"} {
		if got := TagClass(tag); got != want {
			t.Errorf("TagClass(%q) = %q, want %q", tag, got, want)
		}
	}
}
