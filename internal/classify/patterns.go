package classify

import "regexp"

const (
	// DefaultTopLines is the number of leading lines kept in a page excerpt.
	DefaultTopLines = 45
	// DefaultTopChars caps the excerpt length in characters after line truncation.
	DefaultTopChars = 3500
	// AggregateKeyword is the literal counted in aggregate mode.
	AggregateKeyword = "Trade"
)

// PatternSet holds the compiled OCR-tolerant patterns used to recognise job tickets.
// All patterns are case-insensitive.
type PatternSet struct {
	// Trade matches the "Trade:" label, including common OCR misreads such as "Tr ade;" or "Trad0:".
	Trade *regexp.Regexp
	// QualifierA and QualifierB are the trade-type codes (PA, LB) that must accompany the label.
	QualifierA *regexp.Regexp
	QualifierB *regexp.Regexp
	// Headers are ticket header markers. They are reported by Explain but do not affect selection.
	Headers []*regexp.Regexp
	// Stop matches the safety checklist heading that closes a ticket.
	Stop *regexp.Regexp
	// Blockers invalidate a candidate page when they appear before the trade label.
	Blockers []*regexp.Regexp
	// Keyword is counted over full page text in aggregate mode.
	Keyword *regexp.Regexp
}

// DefaultPatterns returns the pattern set used for Falkirk job tickets.
func DefaultPatterns() *PatternSet {
	return &PatternSet{
		Trade:      regexp.MustCompile(`(?i)Tr[a-z0-9 ]{0,4}[dclo0e]{1}[e ]{0,2}[:;]\s*`),
		QualifierA: regexp.MustCompile(`(?i)PA\b`),
		QualifierB: regexp.MustCompile(`(?i)LB\b`),
		Headers: []*regexp.Regexp{
			regexp.MustCompile(`(?i)Falkirk`),
			regexp.MustCompile(`(?i)JOB\s*T[I1]CKET`),
			regexp.MustCompile(`(?i)Work\s*Programme`),
			regexp.MustCompile(`(?i)VOID`),
			regexp.MustCompile(`(?i)Printed\s*Date`),
			regexp.MustCompile(`(?i)Issued\s*Date`),
			regexp.MustCompile(`(?i)Target\s*Date`),
		},
		Stop: regexp.MustCompile(`(?i)HEALTH\s+AND\s+SAFETY\s+CHECK\s*LIST`),
		Blockers: []*regexp.Regexp{
			regexp.MustCompile(`(?i)Job\s+Visit\s+Details\s+for`),
			regexp.MustCompile(`(?i)Additional\s+Info`),
		},
		Keyword: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(AggregateKeyword)),
	}
}
