package extract

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobwatch/pkg/canonical"
	"jobwatch/pkg/model"
)

// ExtractJSONLD pulls JobPosting nodes out of <script type="application/ld+json">
// blocks, following @graph/mainEntity/item nesting. Highest-signal extractor:
// tried first in the pipeline.
func ExtractJSONLD(doc *goquery.Document, baseURL string) []model.Job {
	var jobs []model.Job

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}

		var payload interface{}
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return
		}

		for _, node := range iterLDNodes(payload) {
			typeVal, ok := node["@type"]
			if !ok || !isJobPostingType(typeVal) {
				continue
			}

			title := stringField(node, "title")
			if title == "" {
				title = stringField(node, "name")
			}
			rawURL := stringField(node, "url")
			if rawURL == "" {
				rawURL = stringField(node, "applicationUrl")
			}
			if title == "" || rawURL == "" {
				continue
			}

			abs := canonical.Absolute(rawURL, baseURL)
			if LooksLikeJobDetailURL(abs) {
				jobs = append(jobs, model.Job{Title: title, Link: canonical.JobURL(abs)})
			}
		}
	})

	return jobs
}

func isJobPostingType(v interface{}) bool {
	switch t := v.(type) {
	case string:
		return t == "JobPosting"
	case []interface{}:
		for _, el := range t {
			if s, ok := el.(string); ok && s == "JobPosting" {
				return true
			}
		}
	}
	return false
}

func stringField(node map[string]interface{}, key string) string {
	v, ok := node[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// iterLDNodes normalizes an LD+JSON payload (dict, list, or @graph/mainEntity/
// item wrappers) into a flat slice of dict nodes.
func iterLDNodes(payload interface{}) []map[string]interface{} {
	var nodes []map[string]interface{}
	var add func(interface{})
	add = func(v interface{}) {
		switch n := v.(type) {
		case map[string]interface{}:
			nodes = append(nodes, n)
			if graph, ok := n["@graph"].([]interface{}); ok {
				for _, g := range graph {
					add(g)
				}
			}
			if main, ok := n["mainEntity"].(map[string]interface{}); ok {
				add(main)
			}
			if item, ok := n["item"].(map[string]interface{}); ok {
				add(item)
			}
		case []interface{}:
			for _, el := range n {
				add(el)
			}
		}
	}
	add(payload)
	return nodes
}
