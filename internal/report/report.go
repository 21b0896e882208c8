// Package report renders human-readable session summaries: the end-of-run
// report printed at shutdown and the run history table.
package report

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/pixil98/go-crawl/internal/autoplay"
	"github.com/pixil98/go-crawl/internal/runlog"
)

// templateFuncs provides utility functions for templates.
var templateFuncs = sprig.TxtFuncMap()

const sessionTemplate = `=== Session Report ===
Character: {{ .Character }}
Outcome:   {{ .Outcome }}{{ if .Cause }} ({{ .Cause }}){{ end }}
Final:     {{ .Place }} | XL {{ .XL }} | turn {{ .Turn }}

Record: {{ .Totals.Attempts }} attempts, {{ .Totals.Wins }} wins, {{ .Totals.Deaths }} deaths
{{- if .Autoplay }}

Autoplay: {{ .Autoplay.Actions }} actions, {{ .Autoplay.Kills }} kills, {{ .Autoplay.Pickups }} pickups
Stopped:  {{ .Autoplay.StopReason }}
{{- range .Autoplay.Events }}
  - {{ . }}
{{- end }}
{{- end }}
`

const historyTemplate = `=== Run History ===
{{- range .Runs }}
{{ .StartedAt.Format "2006-01-02 15:04" }}  {{ printf "%-9s" .Outcome }} {{ .Character }}{{ if .Place }} ({{ .Place }}, XL {{ .XL }}, turn {{ .Turn }}){{ end }}
{{- end }}
`

// Session is everything the end-of-run report shows.
type Session struct {
	Character string
	Outcome   string
	Cause     string
	Place     string
	XL        int
	Turn      int
	Totals    runlog.Totals
	Autoplay  *autoplay.Report
}

// RenderSession renders the end-of-run summary.
func RenderSession(s Session) (string, error) {
	return render("session", sessionTemplate, s)
}

// RenderHistory renders the stored run history, oldest first.
func RenderHistory(runs []*runlog.Run) (string, error) {
	return render("history", historyTemplate, struct{ Runs []*runlog.Run }{Runs: runs})
}

func render(name, tmplStr string, data any) (string, error) {
	tmpl, err := template.New(name).Funcs(templateFuncs).Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("parsing %s template: %w", name, err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("executing %s template: %w", name, err)
	}

	return buf.String(), nil
}
