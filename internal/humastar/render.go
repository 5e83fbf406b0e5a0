package humastar

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// dict builds a map from alternating key/value arguments, for passing more
// than one value into a nested template.
var funcMap = template.FuncMap{
	"dict": func(values ...any) map[string]any {
		if len(values)%2 != 0 {
			return nil
		}
		m := make(map[string]any, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			if key, ok := values[i].(string); ok {
				m[key] = values[i+1]
			}
		}
		return m
	},
}

// Renderer holds the parsed fragment templates. Rendering takes a read
// lock so Reload can swap the set under a running server.
type Renderer struct {
	mu        sync.RWMutex
	dir       string
	templates *template.Template
}

// NewRenderer parses every *.html fragment in dir.
func NewRenderer(dir string) (*Renderer, error) {
	templates, err := parseFragments(dir)
	if err != nil {
		return nil, err
	}
	return &Renderer{dir: dir, templates: templates}, nil
}

// parseFragments names each template after its file with the .html
// extension stripped, so handlers render "farm-sheet", not
// "farm-sheet.html". ParseGlob keeps the extension, hence the manual walk.
func parseFragments(dir string) (*template.Template, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no fragments in %s", dir)
	}

	root := template.New("").Funcs(funcMap)
	for _, p := range paths {
		src, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(p), ".html")
		if _, err := root.New(name).Parse(string(src)); err != nil {
			return nil, fmt.Errorf("parsing fragment %s: %w", name, err)
		}
	}
	return root, nil
}

// Render executes a named fragment to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToBuffer(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToBuffer executes a named fragment into buf.
func (r *Renderer) RenderToBuffer(buf *bytes.Buffer, name string, data any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.templates.ExecuteTemplate(buf, name, data)
}

// Reload re-parses the fragment directory, for template edits during
// development. A parse error leaves the current set in place.
func (r *Renderer) Reload() error {
	templates, err := parseFragments(r.dir)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.templates = templates
	r.mu.Unlock()
	return nil
}
