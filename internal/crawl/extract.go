package crawl

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// emailRe is deliberately permissive; the model picks the usable address.
var emailRe = regexp.MustCompile(`[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+`)

// hiddenSelectors never contribute visible text.
const hiddenSelectors = "script, style, noscript, template, svg, iframe, head"

// VisibleText returns the document's human-visible text with whitespace
// collapsed. Text nodes are joined with spaces so adjacent blocks don't fuse.
func VisibleText(doc *goquery.Document) string {
	doc.Find(hiddenSelectors).Remove()

	var b strings.Builder
	collectText(doc.Selection, &b)
	return strings.Join(strings.Fields(b.String()), " ")
}

func collectText(s *goquery.Selection, b *strings.Builder) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			b.WriteString(c.Text())
			b.WriteByte(' ')
			return
		}
		collectText(c, b)
	})
}

// SameSiteLinks returns the distinct same-host links of the page in document
// order, resolved against base, with fragments removed.
func SameSiteLinks(doc *goquery.Document, base *url.URL) []string {
	seen := make(map[string]bool)
	var links []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		lower := strings.ToLower(href)
		if href == "" ||
			strings.HasPrefix(lower, "#") ||
			strings.HasPrefix(lower, "mailto:") ||
			strings.HasPrefix(lower, "tel:") ||
			strings.HasPrefix(lower, "javascript:") {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		if !strings.EqualFold(abs.Hostname(), base.Hostname()) {
			return
		}
		abs.Fragment = ""
		if abs.Path == "" {
			abs.Path = "/"
		}

		u := abs.String()
		if !seen[u] {
			seen[u] = true
			links = append(links, u)
		}
	})
	return links
}

// ExtractEmails returns the addresses found in text.
func ExtractEmails(text string) []string {
	var out []string
	for _, m := range emailRe.FindAllString(text, -1) {
		if m = strings.TrimRight(m, ".-"); strings.Contains(m[strings.LastIndex(m, "@"):], ".") {
			out = append(out, m)
		}
	}
	return out
}

// sortedSet returns the distinct values of set in ascending order.
func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
