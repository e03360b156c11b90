package criteria

import (
	"strconv"
	"strings"
)

const describeHeader = `You are a JSON-response CV evaluation system. Your task is to evaluate the provided CV text and return ONLY a JSON object with specific scores and notes.

RESPONSE FORMAT RULES:
1. Return ONLY raw JSON - no markdown, no code blocks, no explanations
2. Use exactly these fields in your response:
`

// Describe renders the instruction block handed verbatim to the scoring service.
// The output depends only on the criteria and their order.
func (s *Schema) Describe() string {
	var b strings.Builder
	b.WriteString(describeHeader)

	for _, c := range s.criteria {
		b.WriteString("   - ")
		b.WriteString(c.ScoreField())
		b.WriteString(" (")
		b.WriteString(formatNumber(c.MinScore))
		b.WriteString("-")
		b.WriteString(formatNumber(c.MaxScore))
		b.WriteString(")\n")
		b.WriteString("   - ")
		b.WriteString(c.NotesField())
		b.WriteString("\n")
	}
	b.WriteString("   - " + TotalField + " (sum of all scores)\n\n")

	b.WriteString("Evaluation Criteria:\n")
	for _, c := range s.criteria {
		b.WriteString("- ")
		b.WriteString(c.Name)
		b.WriteString(": ")
		b.WriteString(c.Description)
		b.WriteString("\n")
		b.WriteString("  Required aspects to consider:\n")
		for _, aspect := range c.RequiredAspects {
			b.WriteString("  * ")
			b.WriteString(aspect)
			b.WriteString("\n")
		}
	}

	return b.String()
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
