package report

import (
	"html/template"
	"strings"

	"github.com/starford/hypnos/internal/stats"
)

type reportData struct {
	Title       string
	GeneratedAt string
	SourceFile  string
	Stats       []stats.BandStat
	Analysis    stats.Analysis
	Shares      []shareRow
	ScoreColor  string
	Narrative   template.HTML
}

var reportTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>{{.Title}} {{.GeneratedAt}}</title>
<style>
  body { font-family: Arial, sans-serif; margin: 20px; line-height: 1.6; color: #333; }
  .header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 30px; border-radius: 10px; text-align: center; margin-bottom: 30px; }
  .stats-table { border-collapse: collapse; width: 100%; margin: 20px 0; }
  .stats-table th, .stats-table td { border: 1px solid #ddd; padding: 12px; text-align: left; }
  .stats-table th { background-color: #f8f9fa; }
  .section { background: white; padding: 25px; margin: 20px 0; border-radius: 8px; box-shadow: 0 2px 10px rgba(0,0,0,0.1); }
  h1, h2, h3 { color: #2c3e50; border-left: 4px solid #3498db; padding-left: 15px; }
  .error { color: #e74c3c; background: #ffeaa7; padding: 10px; border-radius: 5px; }
</style>
</head>
<body>
<div class="header">
  <h1>{{.Title}}</h1>
  <p>Generated: {{.GeneratedAt}} | Source: {{.SourceFile}}</p>
</div>
<div class="section">
  <h3>Band statistics</h3>
  {{if .Stats}}<table class="stats-table">
    <tr><th>Band</th><th>Mean</th><th>Std</th><th>Min</th><th>Max</th></tr>
    {{range .Stats}}<tr><td>{{.Band}}</td><td>{{printf "%.2f" .Mean}}</td><td>{{printf "%.2f" .Std}}</td><td>{{printf "%.2f" .Min}}</td><td>{{printf "%.2f" .Max}}</td></tr>
    {{end}}
  </table>{{else}}<p>No band columns available.</p>{{end}}
</div>
<div class="section">
  <h3>Sleep-stage distribution</h3>
  {{if .Analysis.Valid}}<ul>
    {{range .Shares}}<li>{{.Stage}} ({{.Band}}): {{.Pct}}%</li>
    {{end}}
  </ul>
  <h4>Sleep quality score: <span style="color: {{.ScoreColor}}">{{.Analysis.Score}}/100 ({{.Analysis.Quality}})</span></h4>
  {{else}}<p>No valid sleep data.</p>{{end}}
</div>
<div class="section">
  <h2>AI assessment</h2>
  {{.Narrative}}
</div>
</body>
</html>
`))

func renderReport(data reportData) (string, error) {
	var b strings.Builder
	if err := reportTmpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
