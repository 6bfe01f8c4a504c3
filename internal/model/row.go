package model

import "strings"

// Mode selects the processing profile and the counterpart set a row is scored against.
type Mode string

const (
	ModeVentures  Mode = "Ventures"  // rows are ventures, scored against mandates
	ModeInvestors Mode = "Investors" // rows are investors, scored against ventures
)

// ParseMode accepts the mode name case-insensitively.
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ventures", "venture":
		return ModeVentures, true
	case "investors", "investor":
		return ModeInvestors, true
	}
	return "", false
}

// CounterpartKind names what the row is scored against in this mode.
func (m Mode) CounterpartKind() string {
	if m == ModeInvestors {
		return "venture"
	}
	return "mandate"
}

// Status is the value written to a row's STATUS field.
type Status string

const (
	StatusUnset        Status = ""
	StatusContacted    Status = "Contacted"
	StatusNotContacted Status = "not contacted yet"
	StatusSkipped      Status = "Skipped"
)

// Row schema field names shared with the row store.
const (
	FieldWebsite      = "Website"
	FieldEmail        = "Email"
	FieldLocation     = "Location"
	FieldTotalFunding = "Total Funding Amount"
	FieldDescription  = "Description"
	FieldStatus       = "STATUS"
	FieldNote3        = "Note3"
)

// Row is one candidate organization tracked through the pipeline.
// Fields outside the stable schema travel in Extra so migration carries them.
type Row struct {
	ID           string            `json:"id"`
	Title        string            `json:"title,omitempty"`
	Website      string            `json:"website"`
	Email        string            `json:"email,omitempty"`
	Location     string            `json:"location,omitempty"`
	TotalFunding string            `json:"total_funding,omitempty"`
	Description  string            `json:"description,omitempty"`
	Status       Status            `json:"status,omitempty"`
	Note3        string            `json:"note3,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// Fields flattens the row into a field-name keyed map. Empty values are omitted.
func (r Row) Fields() map[string]string {
	out := make(map[string]string, len(r.Extra)+7)
	for k, v := range r.Extra {
		if v != "" {
			out[k] = v
		}
	}
	set := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	set(FieldWebsite, r.Website)
	set(FieldEmail, r.Email)
	set(FieldLocation, r.Location)
	set(FieldTotalFunding, r.TotalFunding)
	set(FieldDescription, r.Description)
	set(FieldStatus, string(r.Status))
	set(FieldNote3, r.Note3)
	return out
}

// RowFromFields is the inverse of Fields. Unknown keys land in Extra.
func RowFromFields(id string, fields map[string]string) Row {
	r := Row{ID: id}
	for k, v := range fields {
		switch k {
		case FieldWebsite:
			r.Website = v
		case FieldEmail:
			r.Email = v
		case FieldLocation:
			r.Location = v
		case FieldTotalFunding:
			r.TotalFunding = v
		case FieldDescription:
			r.Description = v
		case FieldStatus:
			r.Status = Status(v)
		case FieldNote3:
			r.Note3 = v
		default:
			if r.Extra == nil {
				r.Extra = make(map[string]string)
			}
			r.Extra[k] = v
		}
	}
	return r
}

// Unprocessed reports whether the row is eligible for selection.
func (r Row) Unprocessed() bool {
	return !strings.EqualFold(strings.TrimSpace(string(r.Status)), string(StatusContacted))
}

// Table is a row-store table as listed by the store.
type Table struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
