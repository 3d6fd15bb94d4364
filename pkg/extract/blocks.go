package extract

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobwatch/pkg/canonical"
	"jobwatch/pkg/model"
)

type blockKey struct {
	tag      string
	classKey string
}

const repeatedBlockMinChildren = 3

// ExtractRepeatedBlocks looks for containers whose direct children repeat the
// same (tag, class) combination at least repeatedBlockMinChildren times,
// treats that combination as an item prototype, then queries the whole
// document for every matching element to pull a link and title from each.
func ExtractRepeatedBlocks(doc *goquery.Document, baseURL string) []model.Job {
	var jobs []model.Job
	seenLinks := map[string]bool{}
	candidateKeys := map[blockKey]bool{}

	doc.Find("div, section, main, article").Each(func(_ int, container *goquery.Selection) {
		groups := map[blockKey]int{}
		container.Children().Each(func(_ int, child *goquery.Selection) {
			tag := goquery.NodeName(child)
			classVal, _ := child.Attr("class")
			classKey := sortedClassKey(classVal)
			if tag == "" || IsGenericClassKey(classKey) {
				return
			}
			groups[blockKey{tag, classKey}]++
		})
		for key, n := range groups {
			if n >= repeatedBlockMinChildren {
				candidateKeys[key] = true
			}
		}
	})

	if len(candidateKeys) == 0 {
		return nil
	}

	for key := range candidateKeys {
		selector := SelectorFromKey(key.tag, key.classKey)
		doc.Find(selector).Each(func(_ int, item *goquery.Selection) {
			a := item.Find(`a[data-automation-id="jobTitle"][href]`).First()
			if a.Length() == 0 {
				a = item.Find(`a.posting-title[href]`).First()
			}
			if a.Length() == 0 {
				a = item.Find("a[href]").First()
			}
			if a.Length() == 0 {
				return
			}

			href, _ := a.Attr("href")
			link := canonical.Absolute(href, baseURL)
			if !LooksLikeJobDetailURL(link) {
				return
			}
			link = canonical.JobURL(link)

			title := MaxHeadingText(item)
			if title == "" {
				title = TitleFromAttrs(a)
			}
			if title == "" {
				title = CleanAnchorText(a)
			}
			if title == "" {
				title = MaxHeadingText(a)
			}
			if title == "" {
				return
			}

			if seenLinks[link] {
				return
			}
			seenLinks[link] = true
			jobs = append(jobs, model.Job{Title: title, Link: link})
		})
	}

	return jobs
}

func sortedClassKey(classVal string) string {
	classes := strings.Fields(classVal)
	sort.Strings(classes)
	return strings.Join(classes, " ")
}
