// Package render turns response keys into the JSON payloads sent to chat clients.
//
// A response text takes one of three shapes:
//
//	prompt|butt=Yes&resp=yes|link=Docs&resp=https://example.com   options
//	summary.tmpl                                                  custom template
//	anything else                                                 plain text
//
// Message keys name entries of a bundle stored as "res_<lowercased ref>".
package render

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"text/template"

	"github.com/bbkanego/seerbot/pkg/domain"
	"gopkg.in/yaml.v3"
)

//go:embed messages.yaml
var defaultMessages []byte

//go:embed templates/*.tmpl
var defaultTemplates embed.FS

// Prefix is prepended to message refs to form bundle keys.
const Prefix = "res_"

const templateSuffix = ".tmpl"

// Payload types.
const (
	TypeText    = "text"
	TypeOptions = "options"
	TypeCustom  = "custom"
)

// Payload is the JSON document returned to chat clients.
type Payload struct {
	Type    string   `json:"type"`
	Message string   `json:"message"`
	Options []Option `json:"options,omitempty"`
	Intent  string   `json:"intent,omitempty"`
}

// Option is one clickable choice of an options payload.
type Option struct {
	Option        string `json:"option"`
	Type          string `json:"type"`
	ClickResponse string `json:"clickResponse"`
}

// Renderer implements ports.TemplateRenderer.
type Renderer struct {
	messages  map[string]string
	templates fs.FS
	parsed    sync.Map // name -> *template.Template
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithMessages merges bundle entries over the defaults.
func WithMessages(messages map[string]string) RendererOption {
	return func(r *Renderer) {
		for k, v := range messages {
			r.messages[strings.ToLower(k)] = v
		}
	}
}

// WithTemplates replaces the directory custom templates are read from.
func WithTemplates(fsys fs.FS) RendererOption {
	return func(r *Renderer) {
		r.templates = fsys
	}
}

// New creates a renderer with the built-in bundle and templates.
func New(opts ...RendererOption) (*Renderer, error) {
	base, err := ParseMessages(defaultMessages)
	if err != nil {
		return nil, err
	}
	sub, err := fs.Sub(defaultTemplates, "templates")
	if err != nil {
		return nil, err
	}
	r := &Renderer{messages: base, templates: sub}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// ParseMessages decodes a YAML bundle. Keys are lowercased.
func ParseMessages(data []byte) (map[string]string, error) {
	raw := map[string]string{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse message bundle: %w", err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[strings.ToLower(k)] = v
	}
	return out, nil
}

// Message returns the bundle entry for ref.
func (r *Renderer) Message(ref string) (string, bool) {
	text, ok := r.messages[Prefix+strings.ToLower(ref)]
	return text, ok
}

// Render resolves key to text and formats it. vars are exposed to custom
// templates as .attributes.
func (r *Renderer) Render(ctx context.Context, key domain.ResponseKey, vars map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	text := key.Ref
	if key.Kind == domain.ResponseMessage {
		msg, ok := r.Message(key.Ref)
		if !ok {
			return "", fmt.Errorf("message %s%s: %w", Prefix, strings.ToLower(key.Ref), domain.ErrNotFound)
		}
		text = msg
	}

	p, err := r.Format(text, vars)
	if err != nil {
		return "", err
	}
	p.Intent = key.Intent

	out, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode response: %w", err)
	}
	return string(out), nil
}

// Format classifies text and builds its payload.
func (r *Renderer) Format(text string, vars map[string]any) (Payload, error) {
	switch {
	case strings.Contains(text, "|"):
		return parseOptions(text), nil
	case strings.HasSuffix(strings.TrimSpace(text), templateSuffix):
		msg, err := r.execute(strings.TrimPrefix(strings.TrimSpace(text), "/"), vars)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Type: TypeCustom, Message: msg}, nil
	default:
		return Payload{Type: TypeText, Message: text}, nil
	}
}

func (r *Renderer) execute(name string, vars map[string]any) (string, error) {
	tpl, err := r.lookup(name)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, map[string]any{"attributes": vars}); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return strings.NewReplacer("\n", "", "\t", "").Replace(buf.String()), nil
}

func (r *Renderer) lookup(name string) (*template.Template, error) {
	if cached, ok := r.parsed.Load(name); ok {
		return cached.(*template.Template), nil
	}
	src, err := fs.ReadFile(r.templates, name)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", name, err)
	}
	tpl, err := template.New(name).Option("missingkey=zero").Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	actual, _ := r.parsed.LoadOrStore(name, tpl)
	return actual.(*template.Template), nil
}

func parseOptions(text string) Payload {
	var parts []string
	for _, p := range strings.Split(text, "|") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	p := Payload{Type: TypeOptions}
	if len(parts) == 0 {
		return p
	}
	p.Message = parts[0]
	for _, part := range parts[1:] {
		label, resp, ok := strings.Cut(part, "&")
		if !ok {
			continue
		}
		var opt Option
		switch {
		case strings.HasPrefix(label, "butt="):
			opt.Type = "button"
		case strings.HasPrefix(label, "link="):
			opt.Type = "link"
		default:
			continue
		}
		_, opt.Option, _ = strings.Cut(label, "=")
		_, opt.ClickResponse, _ = strings.Cut(resp, "=")
		p.Options = append(p.Options, opt)
	}
	return p
}
