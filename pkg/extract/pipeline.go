package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"jobwatch/pkg/model"
)

// stage is one extraction strategy in the pipeline.
type stage struct {
	name string
	run  func(*goquery.Document, string) []model.Job
}

// pipeline runs highest-signal first; the first stage that returns any jobs
// wins, so weaker heuristics never dilute a confident extraction.
var pipeline = []stage{
	{"jsonld", ExtractJSONLD},
	{"listitem", ExtractListItems},
	{"repeated_blocks", ExtractRepeatedBlocks},
	{"anchor_strict", ExtractAnchorsStrict},
}

// ExtractAll parses html and runs the pipeline against it, returning the
// first stage's non-empty result.
func ExtractAll(log *logrus.Logger, html, baseURL string) ([]model.Job, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	for _, st := range pipeline {
		jobs := st.run(doc, baseURL)
		if log != nil {
			log.WithFields(logrus.Fields{"extractor": st.name, "base_url": baseURL, "found": len(jobs)}).Debug("extract: stage ran")
		}
		if len(jobs) > 0 {
			return jobs, nil
		}
	}
	return nil, nil
}
