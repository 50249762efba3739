package util

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// promptFuncs are the helpers available to prompt templates.
var promptFuncs = template.FuncMap{
	"default": func(defaultVal any, val any) any {
		if val == nil || val == "" {
			return defaultVal
		}
		return val
	},
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"trim":  strings.TrimSpace,
	"truncate": func(n int, s string) string {
		r := []rune(s)
		if len(r) <= n {
			return s
		}
		return string(r[:n]) + "..."
	},
	"join": func(sep string, items []string) string {
		return strings.Join(items, sep)
	},
	"percent": func(f float64) string {
		return fmt.Sprintf("%.0f%%", f*100)
	},
}

// Template is a parsed prompt template.
type Template struct {
	tmpl *template.Template
}

// MustParseTemplate parses text or panics. It is meant for package level
// prompt definitions.
func MustParseTemplate(name, text string) *Template {
	return &Template{tmpl: template.Must(template.New(name).Funcs(promptFuncs).Parse(text))}
}

// Render executes the template against data.
func (t *Template) Render(data any) (string, error) {
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderTemplate replaces template variables in text. Text without template
// markers is returned unchanged.
func RenderTemplate(text string, data any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}
	tmpl, err := template.New("prompt").Funcs(promptFuncs).Parse(text)
	if err != nil {
		return "", err
	}
	return (&Template{tmpl: tmpl}).Render(data)
}
