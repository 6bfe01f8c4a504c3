package scoring

import (
	"fmt"
	"strings"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
)

const systemPrompt = `You are an expert matchmaking assistant for %s, an advisory firm that connects ventures with investors. You score organizations against counterpart records and draft outreach email. You always answer with a single JSON object and nothing else.`

const rowPrompt = `Here is the data about the %s:
Location: %s
Total Funding Amount: %s

Scraped Text:
"""%s"""

Found emails: %s
Database email: %s
`

const taskPrompt = `Your task has three parts:

1. For each of the following %[1]ss, score how well it matches the %[2]s on a scale of 1-10, where 10 is a perfect match, 7-9 a strong match and 1-6 a weak or no match. Only a score of %[3]d or higher is a "fit".

%[4]ss to evaluate (format: %[5]s):
%[6]s

2. From the found and database emails, choose the one most appropriate for contacting this %[2]s about %[7]s. Use "" if none is suitable.

3. Only if at least one %[1]s scores %[3]d or higher, write a short professional email proposing a connection:
- Start with "%[8]s"
- Say your name is %[9]s, researcher at %[10]s, and that we would be interested in %[11]s.
- Reference the matched %[1]ss without naming their acronyms.
- Say they can find out more on our website (%[12]s).
- Keep it under 300 words, professional and enthusiastic.

Output the entire result as one JSON object:
{"matches":[{"acronym":"ABC","score":9,"fit":true},{"acronym":"XYZ","score":4,"fit":false}],"selected_email":"someone@example.com","subject":"Email subject","email_body":"Full email text"}

"matches" lists every %[1]s. If no %[1]s scores %[3]d or higher, "selected_email", "subject" and "email_body" must all be "".
`

// modeProfile holds the wording that differs between modes.
type modeProfile struct {
	subject   string // what the row is
	format    string
	purpose   string
	greeting  string
	interest  string
	reference string
}

var profiles = map[model.Mode]modeProfile{
	model.ModeVentures: {
		subject:  "company",
		format:   "[Acronym - Notes]",
		purpose:  "fund raising",
		greeting: "Dear [Venture name] Team,",
		interest: "potentially connecting them with investors in our network",
	},
	model.ModeInvestors: {
		subject:  "investor",
		format:   "[Acronym - Industry - Notes - Raising]",
		purpose:  "investment opportunities",
		greeting: "Dear [Contact name],",
		interest: "exploring a partnership between us and them",
	},
}

// Prompt is the assembled model request.
type Prompt struct {
	System string
	User   string
}

// BuildPrompt assembles the system and user text for one row. Text is cut to
// textChars characters and counterparts to maxCounterparts entries.
func BuildPrompt(req Request, sender config.SenderConfig, textChars, maxCounterparts, threshold int) Prompt {
	mode := req.Mode
	p, ok := profiles[mode]
	if !ok {
		mode = model.ModeVentures
		p = profiles[mode]
	}
	kind := mode.CounterpartKind()

	counterparts := req.Counterparts
	if maxCounterparts > 0 && len(counterparts) > maxCounterparts {
		counterparts = counterparts[:maxCounterparts]
	}
	summaries := make([]string, 0, len(counterparts))
	for _, c := range counterparts {
		summaries = append(summaries, c.Summary(mode))
	}

	org := orDefault(sender.Organization, "our firm")
	user := fmt.Sprintf(rowPrompt,
		p.subject,
		orDefault(req.Location, "Unknown"),
		orDefault(req.Funding, "Unknown"),
		truncateRunes(req.Text, textChars),
		orDefault(strings.Join(req.Emails, ", "), "None"),
		orDefault(req.KnownEmail, "None"),
	) + "\n" + fmt.Sprintf(taskPrompt,
		kind,
		p.subject,
		threshold,
		capitalize(kind),
		p.format,
		strings.Join(summaries, "\n"),
		p.purpose,
		p.greeting,
		orDefault(sender.PersonaName, "a member of our team"),
		org,
		p.interest,
		orDefault(sender.Website, "our website"),
	)

	return Prompt{
		System: fmt.Sprintf(systemPrompt, org),
		User:   user,
	}
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
