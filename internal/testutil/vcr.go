// Package testutil contains helpers shared by provider adapter tests.
package testutil

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/dnaeon/go-vcr.v2/cassette"
	"gopkg.in/dnaeon/go-vcr.v2/recorder"
)

// RecordEnv switches cassettes to recording when set to "record".
const RecordEnv = "VCR_MODE"

// secretHeaders never reach a cassette.
var secretHeaders = []string{"Authorization", "X-Goog-Api-Key", "Cookie"}

// CassetteClient returns an HTTP client that replays
// testdata/fixtures/<name>.yaml. The recorder is stopped when the test ends.
func CassetteClient(t *testing.T, name string) *http.Client {
	t.Helper()

	mode := recorder.ModeReplaying
	if Recording() {
		mode = recorder.ModeRecording
	}

	rec, err := recorder.NewAsMode(filepath.Join("testdata", "fixtures", name), mode, nil)
	if err != nil {
		t.Fatalf("open cassette %s: %v", name, err)
	}

	// Screenshot payloads make bodies large and unstable.
	rec.SetMatcher(matchRoute)
	rec.AddFilter(scrubSecrets)

	t.Cleanup(func() {
		if err := rec.Stop(); err != nil {
			t.Errorf("stop cassette %s: %v", name, err)
		}
	})

	return &http.Client{Transport: rec}
}

func matchRoute(r *http.Request, i cassette.Request) bool {
	return r.Method == i.Method && r.URL.String() == i.URL
}

func scrubSecrets(i *cassette.Interaction) error {
	for _, h := range secretHeaders {
		delete(i.Request.Headers, h)
	}
	return nil
}

// APIKey returns the named environment variable, or a placeholder when replaying.
func APIKey(envVar string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return "test-key"
}

// Recording reports whether cassettes are being re-recorded.
func Recording() bool {
	return os.Getenv(RecordEnv) == "record"
}
