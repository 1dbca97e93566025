package devserver

import (
	"html/template"
	"net/http"

	"git.home.luguber.info/inful/assetpack/internal/build"
	"git.home.luguber.info/inful/assetpack/internal/foundation/errors"
)

var errorPage = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Build failed</title>
<style>
body { font-family: ui-monospace, monospace; background: #1e1e1e; color: #eee; margin: 2rem; }
h1 { color: #ff6b6b; font-size: 1.4rem; }
pre { white-space: pre-wrap; background: #2a2a2a; padding: 1rem; border-radius: 4px; }
dt { color: #999; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<pre>{{.Message}}</pre>
{{with .Context}}<dl>{{range $k, $v := .}}<dt>{{$k}}</dt><dd>{{$v}}</dd>{{end}}</dl>{{end}}
{{with .BuildID}}<p>Build {{.}}</p>{{end}}
{{if .Hot}}<script src="{{.Script}}"></script>{{end}}
</body>
</html>
`))

type errorView struct {
	Title   string
	Message string
	Context map[string]any
	BuildID string
	Hot     bool
	Script  string
}

// renderError writes the build error page. It carries the live-reload client
// so the page recovers on the next good build.
func (s *Server) renderError(w http.ResponseWriter, err error, report *build.Report) {
	v := errorView{
		Title:   "Build failed",
		Message: err.Error(),
		Hot:     s.cfg.DevServer.Hot,
		Script:  ScriptPath,
	}
	if ce, ok := errors.AsClassified(err); ok {
		v.Title = "Build failed: " + string(ce.Category()) + " error"
		v.Context = ce.Context()
	}
	if report != nil {
		v.BuildID = report.BuildID
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusInternalServerError)
	if err := errorPage.Execute(w, v); err != nil {
		s.logger.Debug("render error page", "error", err)
	}
}
