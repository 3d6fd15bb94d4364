package renderer

import "testing"

func TestBlockedURLPatternsCoverCommonHeavyAssets(t *testing.T) {
	want := []string{"*.png", "*.woff", "*.mp4"}
	for _, w := range want {
		found := false
		for _, p := range blockedURLPatterns {
			if p == w {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("expected %q in blockedURLPatterns", w)
		}
	}
}

func TestConsentSelectorsNonEmpty(t *testing.T) {
	if len(consentSelectors) == 0 {
		t.Fatal("expected at least one consent selector")
	}
}
