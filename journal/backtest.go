package journal

import (
	"fmt"
	"io"
	"os"
	"text/template"
	"time"
)

var runOrgFuncs = template.FuncMap{
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
	"short": shortID,
}

var runOrg = template.Must(template.New("run").Funcs(runOrgFuncs).Parse(RunOrgTemplate))

// WriteOrg renders the run as an Org-mode block.
func (r Run) WriteOrg(w io.Writer) error {
	if err := runOrg.Execute(w, r); err != nil {
		return fmt.Errorf("journal: render run %s: %w", r.RunID, err)
	}
	return nil
}

// WriteOrgFile writes the Org-mode block of the run to path.
func (r Run) WriteOrgFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("journal: create %s: %w", path, err)
	}
	if err := r.WriteOrg(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}

const RunOrgTemplate = `* BACKTEST: {{.Strategy}} {{if .Pair}}{{.Pair}}{{else}}(pair?){{end}} ({{short .RunID}})
:PROPERTIES:
:RUN_ID:      {{.RunID}}
:STRATEGY:    {{.Strategy}}
:PAIR:        {{.Pair}}
:DATASET:     {{if .Dataset}}{{.Dataset}}{{else}}(dataset?){{end}}
:START_DATE:  {{.Start.Format "2006-01-02"}}
:END_DATE:    {{.End.Format "2006-01-02"}}
:NET_PL:      {{printf "%.2f" .PL}}
:MAX_DD:      {{printf "%.2f" .MaxDrawdown}}
:TRADES:      {{.Trades}}
:BUYS:        {{.Buys}}
:SELLS:       {{.Sells}}
:NORM_PROFIT: {{printf "%.6g" .NormProfit}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Performance Summary
- Net P/L:          *{{printf "%.2f" .PL}}*
- Max Drawdown:     *{{printf "%.2f" .MaxDrawdown}}*
- Final position:   *{{printf "%.8g" .FinalPos}}*
{{- if .Config}}

** Configuration
#+begin_src yaml
{{printf "%s" .Config}}#+end_src
{{- end}}
`
