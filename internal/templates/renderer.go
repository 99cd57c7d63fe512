package templates

import (
	htmltemplate "html/template"
	"regexp"
	"strings"
	texttemplate "text/template"

	"github.com/dmitrymomot/notifyhub/internal/notification"
)

// Rendered is a template filled with request variables. For push, Subject
// is the title.
type Rendered struct {
	Subject string
	Body    string
}

type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render fills tpl for ch. Failures are *notification.RenderError.
func (r *Renderer) Render(ch notification.Channel, tpl Template, vars map[string]any) (Rendered, error) {
	if vars == nil {
		vars = map[string]any{}
	}
	fail := func(err error) (Rendered, error) {
		return Rendered{}, &notification.RenderError{TemplateCode: tpl.Code, Err: err}
	}

	subject, err := renderText("subject", tpl.Subject, vars)
	if err != nil {
		return fail(err)
	}

	var body string
	switch ch {
	case notification.ChannelEmail:
		body, err = renderHTML("body", tpl.Body, vars)
	case notification.ChannelPush:
		body, err = renderText("body", tpl.Body, vars)
	default:
		err = notification.ErrUnknownChannel
	}
	if err != nil {
		return fail(err)
	}

	return Rendered{Subject: strings.TrimSpace(subject), Body: body}, nil
}

func renderText(name, src string, vars map[string]any) (string, error) {
	t, err := texttemplate.New(name).Option("missingkey=error").Parse(normalize(src))
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := t.Execute(&sb, vars); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func renderHTML(name, src string, vars map[string]any) (string, error) {
	t, err := htmltemplate.New(name).Option("missingkey=error").Parse(normalize(src))
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := t.Execute(&sb, vars); err != nil {
		return "", err
	}
	return sb.String(), nil
}

var placeholder = regexp.MustCompile(`\{\{(-?\s*)([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*)(\s*-?)\}\}`)

// words that are valid bare actions in Go templates
var reserved = map[string]bool{
	"end": true, "else": true, "break": true, "continue": true,
	"nil": true, "true": true, "false": true,
}

// normalize rewrites handlebars-style {{name}} to {{.name}}.
func normalize(src string) string {
	return placeholder.ReplaceAllStringFunc(src, func(m string) string {
		parts := placeholder.FindStringSubmatch(m)
		if reserved[parts[2]] {
			return m
		}
		return "{{" + parts[1] + "." + parts[2] + parts[3] + "}}"
	})
}
