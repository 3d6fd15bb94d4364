package extract

import "testing"

func TestLooksLikeJobDetailURLGreenhouse(t *testing.T) {
	if !LooksLikeJobDetailURL("https://boards.greenhouse.io/acme/jobs/6012345") {
		t.Fatal("expected greenhouse numeric job id to look like a detail url")
	}
}

func TestLooksLikeJobDetailURLLeverUUID(t *testing.T) {
	if !LooksLikeJobDetailURL("https://jobs.lever.co/acme/3f1b7c4a-1234-4abc-8def-0123456789ab") {
		t.Fatal("expected lever uuid leaf to look like a detail url")
	}
}

func TestLooksLikeJobDetailURLRejectsSavedJobs(t *testing.T) {
	if LooksLikeJobDetailURL("https://boards.greenhouse.io/acme/saved-jobs/list") {
		t.Fatal("saved-jobs path should not look like a detail url")
	}
}

func TestLooksLikeJobDetailURLRejectsListingPage(t *testing.T) {
	if LooksLikeJobDetailURL("https://example.com/careers?page=2") {
		t.Fatal("bare listing page with ?page= should not look like a detail url")
	}
}

func TestCleanAnchorTextRejectsCTA(t *testing.T) {
	for _, cta := range []string{"Apply", "Learn More", "Sign in"} {
		if got := ctaOnlyRe.FindString(cta); got == "" {
			t.Fatalf("expected %q to match the CTA-only pattern", cta)
		}
	}
}

func TestIsGenericClassKey(t *testing.T) {
	if !IsGenericClassKey("row col") {
		t.Fatal("expected 'row col' to be generic")
	}
	if !IsGenericClassKey("") {
		t.Fatal("expected empty class key to be generic")
	}
	if IsGenericClassKey("job-post") {
		t.Fatal("expected 'job-post' to not be generic")
	}
}

func TestSelectorFromKey(t *testing.T) {
	if got := SelectorFromKey("tr", "job-post"); got != "tr.job-post" {
		t.Fatalf("SelectorFromKey() = %q, want %q", got, "tr.job-post")
	}
}
