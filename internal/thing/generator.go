package thing

import (
	"fmt"
	"io/fs"
)

// Generator renders the Thing Description from a template file.
type Generator struct {
	fsys fs.FS
	name string
	cfg  Config
}

// NewGenerator creates a Generator reading the template name from fsys.
func NewGenerator(fsys fs.FS, name string, cfg Config) *Generator {
	return &Generator{fsys: fsys, name: name, cfg: cfg}
}

// Generate reads the template and renders it. The result is never cached.
func (g *Generator) Generate() ([]byte, error) {
	tmpl, err := fs.ReadFile(g.fsys, g.name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTemplateUnavailable, err)
	}
	return Render(tmpl, g.cfg), nil
}
