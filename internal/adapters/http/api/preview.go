package api

import (
	"bytes"
	"html/template"
	"net/http"
)

// previewHandler serves a page showing the live scoreboard.
type previewHandler struct {
	deps Dependencies
	page *template.Template
}

func newPreviewHandler(deps Dependencies) *previewHandler {
	return &previewHandler{
		deps: deps,
		page: template.Must(template.New("preview").Parse(previewPage)),
	}
}

type previewData struct {
	Board   template.HTML
	Message string
}

// HandlePreview handles GET / requests. The markup is bound to ephemeral
// handles, which the page loads back from this server.
func (h *previewHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	scale, err := scaleParam(r)
	if err != nil {
		fail(w, WrapKind("api.preview", ErrBadRequest, err))
		return
	}
	var data previewData
	status := http.StatusOK
	markup, err := h.deps.Preview(scale)
	if err != nil {
		status, _ = statusFor(err)
		data.Message = err.Error()
	} else {
		// Markup is produced by our own encoder from typed nodes.
		data.Board = template.HTML(markup) //nolint:gosec // trusted renderer output
	}
	var buf bytes.Buffer
	if err := h.page.Execute(&buf, data); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

const previewPage = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>Best 30</title>
    <style>
      body{margin:0;padding:16px;background:#1b1424;color:#eee;font-family:sans-serif}
      .board svg{max-width:100%;height:auto;display:block;margin:0 auto}
      nav{margin-bottom:12px}
      nav form{display:inline}
      .message{padding:24px;text-align:center;opacity:.8}
    </style>
  </head>
  <body>
    <nav>
      <form method="post" action="/export?format=png"><button>Export PNG</button></form>
      <form method="post" action="/export?format=svg-inline"><button>Export SVG</button></form>
      <a href="/scoreboard.png">PNG</a>
      <a href="/state">State</a>
    </nav>
    {{if .Board}}<div class="board">{{.Board}}</div>{{else}}<p class="message">{{.Message}}</p>{{end}}
  </body>
</html>`
