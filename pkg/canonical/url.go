// Package canonical normalises job and listing URLs so the same posting is
// recognised across scrapes regardless of tracking parameters or accidental
// path repetition.
package canonical

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// jobIgnoreParams must never affect job identity: pagination markers,
// referral/tracking params, analytics, and coarse location facets that ATS
// boards sometimes echo back onto the detail link.
var jobIgnoreParams = map[string]bool{
	"page": true, "start": true, "offset": true,
	"ref": true, "referral": true, "src": true, "source": true,
	"gh_src": true, "gh_jid": true,
	"_gl": true, "_ga": true, "_gac": true,
	"utm_source": true, "utm_medium": true, "utm_campaign": true,
	"utm_term": true, "utm_content": true,
	"locations": true, "location": true,
	"locationhierarchy1": true, "locationhierarchy2": true,
	"locationcity": true, "locationstate": true,
	"lat": true, "lng": true,
}

var repeatedResultsSegment = regexp.MustCompile(`/(jobs/results)(?:/jobs/results)+`)

// JobURL canonicalises a job detail URL: repeated "/jobs/results/" segments
// collapse to one, volatile query parameters are dropped, and the remaining
// parameters are sorted alphabetically with their values preserved. Scheme,
// host, path and fragment are otherwise left untouched. Idempotent.
func JobURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	path := repeatedResultsSegment.ReplaceAllString(u.Path, "/$1")

	kept := filterQuery(u.Query(), jobIgnoreParams)

	out := *u
	out.Path = path
	out.RawQuery = encodeSorted(kept)
	return out.String()
}

var pageOneKeys = map[string]bool{"page": true, "pg": true, "p": true, "pagenumber": true}
var zeroOffsetKeys = map[string]bool{"start": true, "offset": true, "from": true, "startrow": true}

// ListingIdentity normalises a listing URL for within-session dedup: drops
// page=1/pg=1/p=1/pageNumber=1 and start=0/offset=0/from=0/startrow=0
// variants, sorts remaining parameters, and encodes spaces as %20. Idempotent.
func ListingIdentity(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	q := u.Query()
	for k, vals := range q {
		if len(vals) == 0 {
			continue
		}
		last := vals[len(vals)-1]
		lk := strings.ToLower(k)
		if pageOneKeys[lk] && last == "1" {
			q.Del(k)
		} else if zeroOffsetKeys[lk] && last == "0" {
			q.Del(k)
		}
	}

	out := *u
	out.RawQuery = encodeSorted(q)
	return strings.ReplaceAll(out.String(), "+", "%20")
}

// Absolute resolves href against base, returning href unchanged if either
// fails to parse or href is already absolute.
func Absolute(href, base string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}

func filterQuery(q url.Values, ignore map[string]bool) url.Values {
	kept := url.Values{}
	for k, vals := range q {
		if ignore[strings.ToLower(k)] {
			continue
		}
		kept[k] = vals
	}
	return kept
}

func encodeSorted(q url.Values) string {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		vals := q[k]
		sort.Strings(vals)
		for j, v := range vals {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
			_ = i
			_ = j
		}
	}
	return b.String()
}
