package templates

import (
	"bytes"
	"embed"
	"fmt"
	htmpl "html/template"
	"strings"
	texttpl "text/template"
	"time"
)

//go:embed *.tmpl
var FS embed.FS

const (
	Welcome       = "welcome"
	PasswordReset = "password_reset"
)

// Data is the payload shared by every notification template.
type Data struct {
	AppName   string `json:"AppName"`
	Name      string `json:"Name"`
	UID       string `json:"UID"`
	Email     string `json:"Email"`
	ActorName string `json:"ActorName,omitempty"`
	At        string `json:"At"`
}

// ToMap flattens Data into the job payload.
func ToMap(d Data) map[string]any {
	if d.At == "" {
		d.At = time.Now().UTC().Format(time.RFC1123)
	}
	m := map[string]any{
		"AppName": d.AppName,
		"Name":    d.Name,
		"UID":     d.UID,
		"Email":   d.Email,
		"At":      d.At,
	}
	if d.ActorName != "" {
		m["ActorName"] = d.ActorName
	}
	return m
}

func funcs() map[string]any {
	return map[string]any{
		"upper": strings.ToUpper,
		"default": func(fallback, value any) any {
			if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
				return fallback
			}
			if value == nil {
				return fallback
			}
			return value
		},
	}
}

func renderFile(filename string, isHTML bool, data any) (string, error) {
	var buf bytes.Buffer
	if isHTML {
		tpl, err := htmpl.New(filename).Funcs(htmpl.FuncMap(funcs())).ParseFS(FS, filename)
		if err != nil {
			return "", fmt.Errorf("parse html %q: %w", filename, err)
		}
		if err := tpl.Execute(&buf, data); err != nil {
			return "", fmt.Errorf("exec %q: %w", filename, err)
		}
		return buf.String(), nil
	}
	tpl, err := texttpl.New(filename).Funcs(texttpl.FuncMap(funcs())).ParseFS(FS, filename)
	if err != nil {
		return "", fmt.Errorf("parse text %q: %w", filename, err)
	}
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("exec %q: %w", filename, err)
	}
	return buf.String(), nil
}

// Render renders <name>.subject.tmpl, <name>.text.tmpl and <name>.html.tmpl.
func Render(name string, data any) (subject, text, html string, err error) {
	if subject, err = renderFile(name+".subject.tmpl", false, data); err != nil {
		return "", "", "", err
	}
	if text, err = renderFile(name+".text.tmpl", false, data); err != nil {
		return "", "", "", err
	}
	if html, err = renderFile(name+".html.tmpl", true, data); err != nil {
		return "", "", "", err
	}
	return strings.TrimSpace(subject), text, html, nil
}
