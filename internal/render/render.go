// Package render turns content batches into shareable artifacts. The
// default backend emits an HTML digest suitable for chat delivery;
// alternative backends (e.g. an image renderer) plug in behind the same
// interface.
package render

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"

	"codewatch/internal/watch"
	logx "codewatch/pkg/logx"
)

// MIMEHTML marks artifacts holding an HTML text digest.
const MIMEHTML = "text/html"

//go:embed templates/digest.html.tmpl
var digestSrc string

// HTML renders digests with html/template. Entry text fields already
// carry deliberate markup (headlines, converted markdown) and pass
// through raw; everything else is escaped.
type HTML struct {
	log  logx.Logger
	tmpl *template.Template
}

func NewHTML(log logx.Logger) (*HTML, error) {
	tmpl, err := template.New("digest").Funcs(template.FuncMap{
		"raw": func(s string) template.HTML { return template.HTML(s) },
	}).Parse(digestSrc)
	if err != nil {
		return nil, fmt.Errorf("parse digest template: %w", err)
	}
	return &HTML{log: log, tmpl: tmpl}, nil
}

func (h *HTML) Render(ctx context.Context, name string, req watch.RenderRequest) (watch.Artifact, error) {
	if name != watch.DigestTemplate {
		return watch.Artifact{}, fmt.Errorf("unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, req); err != nil {
		return watch.Artifact{}, fmt.Errorf("render digest: %w", err)
	}
	h.log.Debug("digest rendered",
		logx.String("cache_id", req.CacheID),
		logx.Int("entries", len(req.Entries)),
		logx.Int("bytes", buf.Len()))
	return watch.Artifact{MIME: MIMEHTML, Data: buf.Bytes()}, nil
}
