package guard

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Navigator performs a client-side redirect
type Navigator interface {
	Navigate(w http.ResponseWriter, r *http.Request, dest string, query url.Values)
}

// RedirectNavigator answers with an HTTP redirect
type RedirectNavigator struct {
	// Status defaults to 302 Found
	Status int
}

// Navigate writes a redirect to dest with the given query
func (n RedirectNavigator) Navigate(w http.ResponseWriter, r *http.Request, dest string, query url.Values) {
	status := n.Status
	if status == 0 {
		status = http.StatusFound
	}
	http.Redirect(w, r, BuildLocation(dest, query), status)
}

// BuildLocation joins dest and query. Keys are sorted and spaces are encoded
// as %20 rather than '+'.
func BuildLocation(dest string, query url.Values) string {
	if len(query) == 0 {
		return dest
	}

	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		for _, v := range query[k] {
			if sb.Len() > 0 {
				sb.WriteByte('&')
			}
			sb.WriteString(escape(k))
			sb.WriteByte('=')
			sb.WriteString(escape(v))
		}
	}
	if sb.Len() == 0 {
		return dest
	}
	return dest + "?" + sb.String()
}

// escape percent-encodes s for a query component. QueryEscape already turns a
// literal '+' into %2B, so the remaining '+' are spaces.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
