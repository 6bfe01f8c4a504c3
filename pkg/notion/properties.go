package notion

import (
	"strconv"
	"strings"

	"github.com/jomei/notionapi"
)

// maxTextChunk is Notion's limit on the content of one rich text object.
const maxTextChunk = 2000

// Schema maps a database's property names to their Notion property types
// ("title", "rich_text", "url", ...).
type Schema map[string]string

// SchemaOf extracts the property schema of a database.
func SchemaOf(db *notionapi.Database) Schema {
	s := make(Schema, len(db.Properties))
	for name, cfg := range db.Properties {
		if cfg == nil {
			continue
		}
		s[name] = string(cfg.GetType())
	}
	return s
}

// TitleProperty returns the name of the schema's title property, or "".
func (s Schema) TitleProperty() string {
	for name, typ := range s {
		if typ == "title" {
			return name
		}
	}
	return ""
}

// PlainText concatenates the plain text of a rich text array.
func PlainText(rt []notionapi.RichText) string {
	var b strings.Builder
	for _, r := range rt {
		if r.PlainText != "" {
			b.WriteString(r.PlainText)
		} else if r.Text != nil {
			b.WriteString(r.Text.Content)
		}
	}
	return b.String()
}

// PropertyText collapses a page property value to plain text. Unsupported
// property types yield "".
func PropertyText(prop notionapi.Property) string {
	switch p := prop.(type) {
	case *notionapi.TitleProperty:
		return PlainText(p.Title)
	case *notionapi.RichTextProperty:
		return PlainText(p.RichText)
	case *notionapi.URLProperty:
		return p.URL
	case *notionapi.EmailProperty:
		return p.Email
	case *notionapi.PhoneNumberProperty:
		return p.PhoneNumber
	case *notionapi.NumberProperty:
		return strconv.FormatFloat(p.Number, 'f', -1, 64)
	case *notionapi.SelectProperty:
		return p.Select.Name
	case *notionapi.StatusProperty:
		return p.Status.Name
	case *notionapi.MultiSelectProperty:
		names := make([]string, 0, len(p.MultiSelect))
		for _, o := range p.MultiSelect {
			names = append(names, o.Name)
		}
		return strings.Join(names, ", ")
	case *notionapi.FormulaProperty:
		return p.Formula.String
	}
	return ""
}

// RichText splits v into rich text objects no longer than Notion's per-object limit.
func RichText(v string) []notionapi.RichText {
	runes := []rune(v)
	if len(runes) == 0 {
		return []notionapi.RichText{}
	}
	var out []notionapi.RichText
	for start := 0; start < len(runes); start += maxTextChunk {
		end := min(start+maxTextChunk, len(runes))
		out = append(out, notionapi.RichText{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: string(runes[start:end])},
		})
	}
	return out
}

// BuildProperty encodes v as a property value of the given Notion type.
// It returns false when v cannot be represented (e.g. non-numeric text for a
// number property) or the type is not writable.
func BuildProperty(typ, v string) (notionapi.Property, bool) {
	switch typ {
	case "title":
		return notionapi.TitleProperty{Type: notionapi.PropertyTypeTitle, Title: RichText(v)}, true
	case "rich_text":
		return notionapi.RichTextProperty{Type: notionapi.PropertyTypeRichText, RichText: RichText(v)}, true
	case "url":
		return notionapi.URLProperty{Type: notionapi.PropertyTypeURL, URL: v}, true
	case "email":
		return notionapi.EmailProperty{Type: notionapi.PropertyTypeEmail, Email: v}, true
	case "phone_number":
		return notionapi.PhoneNumberProperty{Type: notionapi.PropertyTypePhoneNumber, PhoneNumber: v}, true
	case "select":
		return notionapi.SelectProperty{Type: notionapi.PropertyTypeSelect, Select: notionapi.Option{Name: v}}, true
	case "status":
		return notionapi.StatusProperty{Type: notionapi.PropertyTypeStatus, Status: notionapi.Status{Name: v}}, true
	case "multi_select":
		var opts []notionapi.Option
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				opts = append(opts, notionapi.Option{Name: part})
			}
		}
		return notionapi.MultiSelectProperty{Type: notionapi.PropertyTypeMultiSelect, MultiSelect: opts}, true
	case "number":
		cleaned := strings.NewReplacer(",", "", "$", "", " ", "").Replace(v)
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return nil, false
		}
		return notionapi.NumberProperty{Type: notionapi.PropertyTypeNumber, Number: f}, true
	}
	return nil, false
}

// BuildProperties encodes a field map against a database schema. Fields the
// schema does not know or cannot hold are returned in skipped. With a nil
// schema, "Name" becomes the title, "URL" and "Website" become url properties
// and everything else rich text.
func BuildProperties(fields map[string]string, schema Schema) (props notionapi.Properties, skipped []string) {
	props = make(notionapi.Properties, len(fields))
	for k, v := range fields {
		typ := guessType(k)
		if schema != nil {
			var ok bool
			if typ, ok = schema[k]; !ok {
				skipped = append(skipped, k)
				continue
			}
		}
		prop, ok := BuildProperty(typ, v)
		if !ok {
			skipped = append(skipped, k)
			continue
		}
		props[k] = prop
	}
	return props, skipped
}

func guessType(name string) string {
	switch {
	case strings.EqualFold(name, "Name"):
		return "title"
	case strings.EqualFold(name, "URL"), strings.EqualFold(name, "Website"):
		return "url"
	}
	return "rich_text"
}
