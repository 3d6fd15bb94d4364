package ats

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"jobwatch/pkg/canonical"
	"jobwatch/pkg/httpclient"
	"jobwatch/pkg/model"
)

var workdayHostRe = regexp.MustCompile(`(?i)(^|\.)(?:wd\d+\.)?myworkdayjobs\.com$`)
var workdayLocaleRe = regexp.MustCompile(`^[a-z]{2}-[A-Z]{2}$`)
var workdaySubdomainTenantRe = regexp.MustCompile(`(?i)^([^.]+)\.wd\d+\.myworkdayjobs\.com$`)

var workdayAppliedFacetKeys = map[string]bool{
	"locations": true, "location": true, "locationhierarchy1": true, "locationhierarchy2": true,
	"locationcity": true, "locationstate": true, "timetype": true, "workersubtype": true,
	"jobfamilygroup": true, "jobfamily": true, "category": true,
}

// WorkdayAdapter scrapes Workday-hosted career sites through the undocumented
// cxs search API (the same endpoint the site's own React app calls), rather
// than the rendered DOM.
type WorkdayAdapter struct {
	HTTP *httpclient.Client
}

func NewWorkdayAdapter(c *httpclient.Client) *WorkdayAdapter { return &WorkdayAdapter{HTTP: c} }

func (a *WorkdayAdapter) Name() string  { return "workday" }
func (a *WorkdayAdapter) Renders() bool { return false }
func (a *WorkdayAdapter) Matches(u string) bool {
	return workdayHostRe.MatchString(hostOf(u))
}

func workdaySiteParts(rawURL string) (host, tenant, careerSite string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", ""
	}
	host = u.Host
	segs := pathSegments(rawURL)

	if m := workdaySubdomainTenantRe.FindStringSubmatch(host); m != nil {
		tenant = m[1]
	}

	i := 0
	if len(segs) > i && workdayLocaleRe.MatchString(segs[i]) {
		i++
	}
	if tenant != "" {
		if len(segs) > i {
			careerSite = segs[i]
		}
	} else {
		if len(segs) > i {
			tenant = segs[i]
		}
		if len(segs) > i+1 {
			careerSite = segs[i+1]
		}
	}

	if host == "" || tenant == "" || careerSite == "" {
		return "", "", ""
	}
	return host, tenant, careerSite
}

type workdayPosting struct {
	Title               string `json:"title"`
	TitleSimple         string `json:"titleSimple"`
	ExternalPath        string `json:"externalPath"`
	CanonicalPositionURL string `json:"canonicalPositionUrl"`
}

type workdaySearchResponse struct {
	JobPostings []workdayPosting `json:"jobPostings"`
	Total       json.Number      `json:"total"`
	TotalFound  json.Number      `json:"totalFound"`
}

func (a *WorkdayAdapter) Scrape(ctx context.Context, rawURL string, timeout time.Duration, maxPages int) ([]model.Job, error) {
	host, tenant, careerSite := workdaySiteParts(rawURL)
	if host == "" {
		return nil, nil
	}

	endpoint := fmt.Sprintf("https://%s/wday/cxs/%s/%s/jobs", host, tenant, careerSite)

	u, _ := url.Parse(rawURL)
	applied := map[string][]string{}
	if u != nil {
		for k, vals := range u.Query() {
			kl := strings.ToLower(k)
			if !workdayAppliedFacetKeys[kl] {
				continue
			}
			for _, v := range vals {
				if v != "" {
					applied[kl] = append(applied[kl], v)
				}
			}
		}
	}

	headers := http.Header{}
	headers.Set("Accept", "application/json")
	headers.Set("Content-Type", "application/json")

	const limit = 20
	offset := 0
	seen := map[string]model.Job{}

	for i := 0; i < maxPages; i++ {
		payload := map[string]interface{}{
			"appliedFacets": applied,
			"limit":         limit,
			"offset":        offset,
			"searchText":    "",
		}
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}

		data, _, err := a.HTTP.FetchJSON(ctx, endpoint, bytes.NewReader(body), http.MethodPost, headers)
		if err != nil {
			break
		}

		var resp workdaySearchResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			break
		}
		if len(resp.JobPostings) == 0 {
			break
		}

		for _, p := range resp.JobPostings {
			title := strings.TrimSpace(p.Title)
			if title == "" {
				title = strings.TrimSpace(p.TitleSimple)
			}
			path := strings.TrimSpace(p.ExternalPath)
			if path == "" {
				path = strings.TrimSpace(p.CanonicalPositionURL)
			}
			if title == "" || path == "" {
				continue
			}
			link := canonical.JobURL(canonical.Absolute(path, "https://"+host))
			if _, ok := seen[link]; !ok {
				seen[link] = model.Job{Title: title, Link: link}
			}
		}

		offset += limit
		total := resp.Total.String()
		if total == "" {
			total = resp.TotalFound.String()
		}
		if total != "" {
			var totalN int
			if _, err := fmt.Sscanf(total, "%d", &totalN); err == nil && offset >= totalN {
				break
			}
		}
	}

	jobs := make([]model.Job, 0, len(seen))
	for _, j := range seen {
		jobs = append(jobs, j)
	}
	return jobs, nil
}
