package obs

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                          "/",
		"/metrics":                  "/metrics",
		"/v1/servers/abc":           "/v1/servers/:id",
		"/v1/applications/a-b-c":    "/v1/applications/:id",
		"/v1/users/42":              "/v1/users/:id",
		"/v1/audit":                 "/v1/audit",
		"/v1/audit?action=CREATE":   "/v1/audit",
		"/v1/grants":                "/v1/grants",
		"/v1/datastores/xyz?x=1":    "/v1/datastores/:id",
		"/v1/platforms/aws/unknown": "/v1/platforms/:id/unknown",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}

type flushRecorder struct {
	*httptest.ResponseRecorder
	flushed bool
}

func (f *flushRecorder) Flush() { f.flushed = true }

func TestInstrumentPreservesFlusher(t *testing.T) {
	handler := Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("instrumented writer does not implement http.Flusher")
		}
		_, _ = w.Write([]byte("data: x\n\n"))
		flusher.Flush()
	}))

	rec := &flushRecorder{ResponseRecorder: httptest.NewRecorder()}
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/audit/stream", nil))

	if !rec.flushed {
		t.Fatal("Flush did not reach the underlying writer")
	}
}
