package render

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"blogview/internal/seo"
)

// mountPoint is where the client runtime expects its markup.
const mountPoint = `<div id="app">`

// Shells sometimes ship a placeholder title; it has to go so the
// injected head carries the only one.
var titleRe = regexp.MustCompile(`(?is)<title>.*?</title>`)

// Assembler splices rendered markup and metadata into a tenant's shell
// document. It never fails: a shell missing its anchors degrades to
// appending at the document end, which browsers still parse.
type Assembler struct {
	logger *slog.Logger
}

// NewAssembler creates an assembler.
func NewAssembler(logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{logger: logger}
}

// Assemble builds the final document: existing titles removed, head
// metadata injected before </head>, markup mounted into the app div,
// and the hydration payload scripted before </body>.
func (a *Assembler) Assemble(shell, markup string, state map[string]any, meta seo.Meta) string {
	doc := titleRe.ReplaceAllString(shell, "")
	doc = injectBefore(doc, "</head>", meta.HeadHTML())
	doc = a.mount(doc, markup)
	if script := hydrationScript(state); script != "" {
		doc = injectBefore(doc, "</body>", script)
	}
	return doc
}

func (a *Assembler) mount(doc, markup string) string {
	if markup == "" {
		return doc
	}
	idx := strings.Index(doc, mountPoint)
	if idx < 0 {
		a.logger.Warn("shell has no mount point, appending markup before </body>")
		return injectBefore(doc, "</body>", markup)
	}
	insert := idx + len(mountPoint)
	return doc[:insert] + markup + doc[insert:]
}

// injectBefore inserts payload ahead of the first occurrence of the
// closing tag, matched case-insensitively. Without the tag the payload
// lands at the end of the document.
func injectBefore(doc, closing, payload string) string {
	idx := strings.Index(strings.ToLower(doc), closing)
	if idx < 0 {
		return doc + payload
	}
	return doc[:idx] + payload + doc[idx:]
}

// hydrationScript serializes the client boot state. json.Marshal
// escapes angle brackets by default, so page content can never
// terminate the script element early.
func hydrationScript(state map[string]any) string {
	if len(state) == 0 {
		return ""
	}
	data, err := json.Marshal(state)
	if err != nil {
		return ""
	}
	return `<script>window.__BV_STATE__ = ` + string(data) + `;</script>`
}
