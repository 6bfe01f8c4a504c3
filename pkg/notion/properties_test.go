package notion

import (
	"strings"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaOf(t *testing.T) {
	s := SchemaOf(leadsDB())
	assert.Equal(t, Schema{
		"Name":     "title",
		"Website":  "url",
		"Location": "rich_text",
		"Email":    "email",
	}, s)
	assert.Equal(t, "Name", s.TitleProperty())
	assert.Equal(t, "", Schema{"Notes": "rich_text"}.TitleProperty())
}

func TestPropertyText(t *testing.T) {
	tests := []struct {
		name string
		prop notionapi.Property
		want string
	}{
		{"title", &notionapi.TitleProperty{Title: []notionapi.RichText{{PlainText: "Acme "}, {PlainText: "Robotics"}}}, "Acme Robotics"},
		{"rich text falls back to content", &notionapi.RichTextProperty{RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: "Austin"}}}}, "Austin"},
		{"url", &notionapi.URLProperty{URL: "https://acme.io"}, "https://acme.io"},
		{"email", &notionapi.EmailProperty{Email: "hi@acme.io"}, "hi@acme.io"},
		{"number", &notionapi.NumberProperty{Number: 2500000}, "2500000"},
		{"select", &notionapi.SelectProperty{Select: notionapi.Option{Name: "Contacted"}}, "Contacted"},
		{"status", &notionapi.StatusProperty{Status: notionapi.Status{Name: "Skipped"}}, "Skipped"},
		{"multi select", &notionapi.MultiSelectProperty{MultiSelect: []notionapi.Option{{Name: "AI"}, {Name: "Health"}}}, "AI, Health"},
		{"unsupported", &notionapi.CheckboxProperty{Checkbox: true}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PropertyText(tt.prop))
		})
	}
}

func TestRichTextChunks(t *testing.T) {
	assert.Empty(t, RichText(""))

	long := strings.Repeat("é", maxTextChunk+10)
	rt := RichText(long)
	require.Len(t, rt, 2)
	assert.Len(t, []rune(rt[0].Text.Content), maxTextChunk)
	assert.Len(t, []rune(rt[1].Text.Content), 10)
	assert.Equal(t, long, PlainText(rt))
}

func TestBuildProperty(t *testing.T) {
	p, ok := BuildProperty("number", "$1,250,000")
	require.True(t, ok)
	assert.InDelta(t, 1250000, p.(notionapi.NumberProperty).Number, 0.001)

	_, ok = BuildProperty("number", "about a million")
	assert.False(t, ok)

	p, ok = BuildProperty("multi_select", "AI, , Health")
	require.True(t, ok)
	assert.Equal(t, []notionapi.Option{{Name: "AI"}, {Name: "Health"}}, p.(notionapi.MultiSelectProperty).MultiSelect)

	p, ok = BuildProperty("status", "Contacted")
	require.True(t, ok)
	assert.Equal(t, "Contacted", p.(notionapi.StatusProperty).Status.Name)

	_, ok = BuildProperty("people", "x")
	assert.False(t, ok)
}

func TestBuildProperties_WithSchema(t *testing.T) {
	props, skipped := BuildProperties(map[string]string{
		"Name":    "Acme",
		"Website": "https://acme.io",
		"Revenue": "10",
	}, SchemaOf(leadsDB()))

	assert.Len(t, props, 2)
	assert.IsType(t, notionapi.TitleProperty{}, props["Name"])
	assert.IsType(t, notionapi.URLProperty{}, props["Website"])
	assert.Equal(t, []string{"Revenue"}, skipped)
}

func TestBuildProperties_NilSchema(t *testing.T) {
	props, skipped := BuildProperties(map[string]string{
		"Name":    "Acme",
		"website": "https://acme.io",
		"Notes":   "series A",
	}, nil)

	assert.Empty(t, skipped)
	assert.IsType(t, notionapi.TitleProperty{}, props["Name"])
	assert.IsType(t, notionapi.URLProperty{}, props["website"])
	assert.IsType(t, notionapi.RichTextProperty{}, props["Notes"])
}
