package canonical

import "testing"

func TestJobURLDropsVolatileParams(t *testing.T) {
	in := "https://boards.greenhouse.io/acme/jobs/123?gh_src=abc&utm_source=x&location=Zurich&foo=bar"
	want := "https://boards.greenhouse.io/acme/jobs/123?foo=bar"
	if got := JobURL(in); got != want {
		t.Fatalf("JobURL() = %q, want %q", got, want)
	}
}

func TestJobURLCollapsesRepeatedResultsSegment(t *testing.T) {
	in := "https://x.com/jobs/results/jobs/results/jobs/results?id=1"
	want := "https://x.com/jobs/results?id=1"
	if got := JobURL(in); got != want {
		t.Fatalf("JobURL() = %q, want %q", got, want)
	}
}

func TestJobURLIdempotent(t *testing.T) {
	in := "https://x.com/jobs/results/jobs/results?utm_campaign=z&b=2&a=1"
	once := JobURL(in)
	twice := JobURL(once)
	if once != twice {
		t.Fatalf("JobURL not idempotent: %q != %q", once, twice)
	}
}

func TestJobURLSortsRemainingParams(t *testing.T) {
	in := "https://x.com/jobs/1?z=1&a=2&m=3"
	want := "https://x.com/jobs/1?a=2&m=3&z=1"
	if got := JobURL(in); got != want {
		t.Fatalf("JobURL() = %q, want %q", got, want)
	}
}

func TestListingIdentityDropsPageOne(t *testing.T) {
	in := "https://x.com/jobs?page=1&pg=1&q=go engineer"
	got := ListingIdentity(in)
	want := "https://x.com/jobs?q=go%20engineer"
	if got != want {
		t.Fatalf("ListingIdentity() = %q, want %q", got, want)
	}
}

func TestListingIdentityDropsZeroOffset(t *testing.T) {
	in := "https://x.com/jobs?offset=0&start=0&q=1"
	want := "https://x.com/jobs?q=1"
	if got := ListingIdentity(in); got != want {
		t.Fatalf("ListingIdentity() = %q, want %q", got, want)
	}
}

func TestListingIdentityIdempotent(t *testing.T) {
	in := "https://x.com/jobs?page=3&b=2&a=1"
	once := ListingIdentity(in)
	twice := ListingIdentity(once)
	if once != twice {
		t.Fatalf("ListingIdentity not idempotent: %q != %q", once, twice)
	}
}

func TestListingIdentityKeepsNonZeroPage(t *testing.T) {
	in := "https://x.com/jobs?page=2"
	want := "https://x.com/jobs?page=2"
	if got := ListingIdentity(in); got != want {
		t.Fatalf("ListingIdentity() = %q, want %q", got, want)
	}
}
