package api

import (
	"html/template"
	"net/http"

	"go.uber.org/zap"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>crawlgate</title>
</head>
<body>
<h1>crawlgate</h1>
<p>Admission checks for outbound fetches.</p>
<table>
<tr><th>User agent</th><td>{{.UserAgent}}</td></tr>
<tr><th>robots.txt</th><td>{{if .ObeyRobots}}obeyed{{else}}ignored{{end}}</td></tr>
<tr><th>Allow list</th><td>{{if .AllowDomains}}{{range $i, $d := .AllowDomains}}{{if $i}}, {{end}}{{$d}}{{end}}{{else}}unrestricted{{end}}</td></tr>
<tr><th>Deny list</th><td>{{if .DenyDomains}}{{range $i, $d := .DenyDomains}}{{if $i}}, {{end}}{{$d}}{{end}}{{else}}empty{{end}}</td></tr>
<tr><th>Default budget</th><td>{{.DefaultPerMinute}}/min</td></tr>
<tr><th>Overrides</th><td>{{len .Overrides}}</td></tr>
</table>
<form method="get" action="/v1/check">
<input type="url" name="url" placeholder="https://example.com/page" required>
<button type="submit">Check</button>
</form>
</body>
</html>
`))

type indexView struct {
	UserAgent        string
	ObeyRobots       bool
	AllowDomains     []string
	DenyDomains      []string
	DefaultPerMinute int
	Overrides        map[string]int
}

func (s *Server) index(w http.ResponseWriter, _ *http.Request) {
	c := s.cfg.Compliance
	view := indexView{
		UserAgent:        c.UserAgent,
		ObeyRobots:       c.ObeyRobotsTxt,
		AllowDomains:     c.AllowDomains,
		DenyDomains:      c.DenyDomains,
		DefaultPerMinute: c.RateLimits.DefaultPerMinute,
		Overrides:        c.RateLimits.Overrides,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, view); err != nil {
		s.logger.Error("render index failed", zap.Error(err))
	}
}
