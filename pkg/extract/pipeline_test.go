package extract

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestExtractAllPrefersJSONLD(t *testing.T) {
	html := `<html><body>
	<script type="application/ld+json">
	{"@type": "JobPosting", "title": "Backend Engineer", "url": "https://x.com/careers/jobs/123456"}
	</script>
	<a href="/careers/jobs/999999">Other Role</a>
	</body></html>`

	jobs, err := ExtractAll(logrus.New(), html, "https://x.com")
	if err != nil {
		t.Fatalf("ExtractAll: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Title != "Backend Engineer" {
		t.Fatalf("unexpected jobs: %+v", jobs)
	}
}

func TestExtractAllFallsBackToAnchor(t *testing.T) {
	html := `<html><body>
	<a href="/careers/jobs/654321">Senior Platform Engineer</a>
	</body></html>`

	jobs, err := ExtractAll(logrus.New(), html, "https://x.com")
	if err != nil {
		t.Fatalf("ExtractAll: %v", err)
	}
	if len(jobs) != 1 || !strings.Contains(jobs[0].Link, "654321") {
		t.Fatalf("unexpected jobs: %+v", jobs)
	}
}

func TestExtractAllEmptyWhenNoSignal(t *testing.T) {
	html := `<html><body><p>No jobs right now.</p></body></html>`
	jobs, err := ExtractAll(logrus.New(), html, "https://x.com")
	if err != nil {
		t.Fatalf("ExtractAll: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected no jobs, got %+v", jobs)
	}
}
