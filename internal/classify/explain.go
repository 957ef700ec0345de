package classify

import (
	"fmt"
	"strings"
)

// PageReport describes how the selective rules saw one page.
type PageReport struct {
	Page       int      `json:"page"`
	Trade      Match    `json:"trade"`
	QualifierA bool     `json:"qualifier_a"`
	QualifierB bool     `json:"qualifier_b"`
	Blockers   []string `json:"blockers,omitempty"`
	Blocked    bool     `json:"blocked"`
	Headers    []string `json:"headers,omitempty"`
	Stop       bool     `json:"stop"`
	// RunStart is set when the page opened a run during classification.
	RunStart bool `json:"run_start"`
	// InRun is the 1-based start of the run covering this page, or 0.
	InRun int `json:"in_run,omitempty"`
}

// Candidate reports whether the page qualifies as a run start, ignoring blockers.
func (r PageReport) Candidate() bool {
	return r.Trade.Matched && (r.QualifierA || r.QualifierB)
}

// String formats the report as a single diagnostic line.
func (r PageReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "page %d:", r.Page)
	if r.Trade.Matched {
		fmt.Fprintf(&b, " trade@%d", r.Trade.Pos)
	} else {
		b.WriteString(" trade=none")
	}
	if r.QualifierA {
		b.WriteString(" PA")
	}
	if r.QualifierB {
		b.WriteString(" LB")
	}
	if len(r.Blockers) > 0 {
		fmt.Fprintf(&b, " blockers=%s", strings.Join(r.Blockers, ","))
	}
	if r.Blocked {
		b.WriteString(" BLOCKED")
	}
	if r.Stop {
		b.WriteString(" stop")
	}
	switch {
	case r.RunStart:
		b.WriteString(" [run start]")
	case r.InRun > 0:
		fmt.Fprintf(&b, " [in run %d]", r.InRun)
	}
	return b.String()
}

// Explain evaluates every pattern against every page excerpt independently and
// marks the runs a selective classification would produce.
func (c *Classifier) Explain(pages []Page) []PageReport {
	reports := make([]PageReport, len(pages))
	for i, p := range pages {
		trade := Search(c.patterns.Trade, p.Excerpt)
		r := PageReport{
			Page:       i + 1,
			Trade:      trade,
			QualifierA: Test(c.patterns.QualifierA, p.Excerpt),
			QualifierB: Test(c.patterns.QualifierB, p.Excerpt),
			Blocked:    c.IsBlocked(p.Excerpt, trade),
			Stop:       Test(c.patterns.Stop, p.Excerpt),
		}
		for _, b := range c.patterns.Blockers {
			if Test(b, p.Excerpt) {
				r.Blockers = append(r.Blockers, b.String())
			}
		}
		for _, h := range c.patterns.Headers {
			if Test(h, p.Excerpt) {
				r.Headers = append(r.Headers, h.String())
			}
		}
		reports[i] = r
	}

	result := selective(c, pages)
	for _, run := range result.Runs {
		reports[run.Start-1].RunStart = true
		for p := run.Start; p <= run.End; p++ {
			reports[p-1].InRun = run.Start
		}
	}
	return reports
}
