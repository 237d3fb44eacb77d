package export

import (
	"bytes"
	"html/template"
	"time"
)

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"formatDate": func(t time.Time, layout string) string {
		return t.Format(layout)
	},
	"inc": func(i int) int { return i + 1 },
}).Parse(reportHTML))

// RenderReportHTML renders the report template with provided data
func RenderReportHTML(report Report) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, report); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const reportHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.SessionTitle}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.5; max-width: 800px; margin: 2rem auto; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    table { width: 100%; border-collapse: collapse; }
    th, td { text-align: left; padding: 0.4rem; border-bottom: 1px solid #ddd; }
    td.num { text-align: right; }
    ul.sub { margin: 0.2rem 0 0 1rem; color: #444; font-size: 0.9em; }
  </style>
</head>
<body>
  <h1>{{.SessionTitle}}</h1>
  <div class="meta">{{.Responses}} responses | generated {{formatDate .GeneratedAt "Jan 2, 2006 15:04 MST"}}</div>
  <h2>Topics</h2>
  {{if .Topics}}
  <table>
    <tr><th>#</th><th>Topic</th><th>More</th><th>Less</th><th>Net</th></tr>
    {{range $i, $t := .Topics}}
    <tr>
      <td>{{inc $i}}</td>
      <td>{{$t.Title}}{{if $t.Subtopics}}<ul class="sub">{{range $t.Subtopics}}<li>{{.}}</li>{{end}}</ul>{{end}}</td>
      <td class="num">{{$t.More}}</td>
      <td class="num">{{$t.Less}}</td>
      <td class="num">{{$t.Net}}</td>
    </tr>
    {{end}}
  </table>
  {{else}}
  <p>No topics.</p>
  {{end}}
  {{if .Retired}}
  <h2>Retired topics</h2>
  <table>
    <tr><th>Topic</th><th>More</th><th>Less</th></tr>
    {{range .Retired}}<tr><td>{{.Title}}</td><td class="num">{{.More}}</td><td class="num">{{.Less}}</td></tr>{{end}}
  </table>
  {{end}}
</body>
</html>`
