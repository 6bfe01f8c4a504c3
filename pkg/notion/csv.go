package notion

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// CSVMapper maps a CSV row to a flat key-value map using the header row.
type CSVMapper struct{}

// MapRow pairs each header with the corresponding value in the row.
// If the row has fewer columns than headers, missing values become empty strings.
func (m CSVMapper) MapRow(headers []string, row []string) map[string]string {
	result := make(map[string]string, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(h)
		if i < len(row) {
			result[h] = strings.TrimSpace(row[i])
		} else {
			result[h] = ""
		}
	}
	return result
}

// websiteAliases are header names treated as the row's Website column.
var websiteAliases = []string{"website", "url", "domain"}

// ImportResult tallies an import.
type ImportResult struct {
	Created    int
	Duplicates int
	NoWebsite  int
}

// ImportCSV reads a CSV file and creates one page per candidate row in the
// database. The website column (Website, URL or Domain) is normalized to an
// https URL, written under "Website", and used to skip rows already present
// in the file or the database. Columns the database schema lacks are dropped.
func ImportCSV(ctx context.Context, c Client, dbID string, csvPath string) (ImportResult, error) {
	var res ImportResult

	f, err := os.Open(csvPath)
	if err != nil {
		return res, eris.Wrap(err, fmt.Sprintf("notion: open csv %s", csvPath))
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return res, eris.Wrap(err, "notion: read csv")
	}

	if len(records) < 2 {
		return res, nil // header only or empty
	}

	headers := records[0]
	urlKey := ""
	for _, h := range headers {
		for _, alias := range websiteAliases {
			if strings.EqualFold(strings.TrimSpace(h), alias) {
				urlKey = strings.TrimSpace(h)
				break
			}
		}
		if urlKey != "" {
			break
		}
	}
	if urlKey == "" {
		return res, eris.New("notion: csv has no Website, URL or Domain column")
	}

	db, err := c.GetDatabase(ctx, dbID)
	if err != nil {
		return res, eris.Wrap(err, "notion: load import schema")
	}
	schema := SchemaOf(db)

	existing, err := QueryAll(ctx, c, dbID, nil)
	if err != nil {
		return res, eris.Wrap(err, "notion: load existing rows")
	}
	seen := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		if prop, ok := p.Properties["Website"]; ok {
			if u := WebsiteKey(PropertyText(prop)); u != "" {
				seen[u] = struct{}{}
			}
		}
	}

	mapper := CSVMapper{}
	for _, row := range records[1:] {
		if ctx.Err() != nil {
			return res, eris.Wrap(ctx.Err(), "notion: import csv cancelled")
		}

		mapped := mapper.MapRow(headers, row)
		website := NormalizeURL(mapped[urlKey])
		if website == "" {
			res.NoWebsite++
			continue
		}
		key := WebsiteKey(website)
		if _, dup := seen[key]; dup {
			res.Duplicates++
			continue
		}
		seen[key] = struct{}{}

		delete(mapped, urlKey)
		mapped["Website"] = website
		for k, v := range mapped {
			if v == "" {
				delete(mapped, k)
			}
		}

		props, skipped := BuildProperties(mapped, schema)
		if len(skipped) > 0 {
			zap.L().Debug("notion: csv columns not in schema", zap.Strings("columns", skipped))
		}

		req := &notionapi.PageCreateRequest{
			Parent: notionapi.Parent{
				Type:       notionapi.ParentTypeDatabaseID,
				DatabaseID: notionapi.DatabaseID(dbID),
			},
			Properties: props,
		}
		if _, err := c.CreatePage(ctx, req); err != nil {
			return res, eris.Wrap(err, "notion: create page from csv row")
		}
		res.Created++
	}

	return res, nil
}

// NormalizeURL ensures a domain has an https:// scheme prefix.
func NormalizeURL(domain string) string {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return ""
	}
	if !strings.Contains(domain, "://") {
		return "https://" + domain
	}
	return domain
}

// WebsiteKey reduces a URL to a comparison key: lower-case host and path
// without scheme, "www." prefix or trailing slash.
func WebsiteKey(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	s = strings.TrimPrefix(s, "www.")
	return strings.TrimRight(s, "/")
}
