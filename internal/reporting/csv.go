package reporting

import (
	"strconv"
	"strings"
	"time"

	"github.com/KAMLESH7939/backend-inclusight/internal/domain/analyses"
)

// DefaultDateLayout mirrors the en-US locale rendering of a date and time.
const DefaultDateLayout = "1/2/2006, 3:04:05 PM"

// ViolationHeader is the header row preceding the violation rows.
var ViolationHeader = []string{"Issue Type", "Impact", "Description", "Help URL", "Nodes"}

// CSVEncoder renders a stored Analysis as quoted CSV text. The output is meant
// for spreadsheets and is not parsed back.
type CSVEncoder struct {
	Location   *time.Location // defaults to UTC
	DateLayout string         // defaults to DefaultDateLayout
}

// Encode renders the fixed row layout: summary rows, a blank separator, the
// header and one row per violation in stored order.
func (e CSVEncoder) Encode(a *analyses.Analysis) (string, error) {
	if a == nil {
		return "", analyses.Errorf(analyses.KindEncoding, "encode csv", "analysis is nil")
	}
	if a.URL == "" {
		return "", analyses.Errorf(analyses.KindEncoding, "encode csv", "analysis %s has no url", a.ID)
	}

	rows := make([][]string, 0, 6+len(a.Details.RuleEngine.Violations))
	rows = append(rows,
		[]string{"URL", a.URL},
		[]string{"Date", e.formatDate(a.Timestamp)},
		[]string{"Accessibility Score", formatNumber(a.Summary.Score)},
		[]string{"Total Violations", strconv.Itoa(a.Summary.TotalViolations)},
		[]string{},
		ViolationHeader,
	)
	for _, v := range a.Details.RuleEngine.Violations {
		impact := ""
		if v.Impact != nil {
			impact = *v.Impact
		}
		rows = append(rows, []string{v.ID, impact, v.Description, v.HelpURL, JoinSelectors(v.Nodes)})
	}

	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j, field := range row {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(Quote(field))
		}
	}
	return b.String(), nil
}

// Quote wraps a field in double quotes and doubles any embedded quote.
func Quote(field string) string {
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

// JoinSelectors joins the targets of a node with ", " and the nodes with " | ".
func JoinSelectors(nodes []analyses.Node) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = strings.Join(n.Target, ", ")
	}
	return strings.Join(parts, " | ")
}

// Filename is the attachment name used for an exported report.
func Filename(id analyses.ID) string {
	return "report-" + string(id) + ".csv"
}

func (e CSVEncoder) formatDate(t time.Time) string {
	loc := e.Location
	if loc == nil {
		loc = time.UTC
	}
	layout := e.DateLayout
	if layout == "" {
		layout = DefaultDateLayout
	}
	return t.In(loc).Format(layout)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
