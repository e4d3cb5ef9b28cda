package assets

import (
	"embed"
	"io/fs"
	"os"
)

// Names of the files inside the FS returned by Source.
const (
	TemplateName    = "TD.template"
	DescriptionName = "DESC.md"
)

//go:embed TD.template DESC.md
var content embed.FS

// Source returns an fs.FS holding TemplateName and DescriptionName.
//
// A non-empty path replaces the embedded copy of that file. Overrides are
// opened on every access, so an edited template takes effect without a
// restart and a deleted one surfaces as a read error.
func Source(templateFile, descriptionFile string) fs.FS {
	overrides := make(map[string]string, 2)
	if templateFile != "" {
		overrides[TemplateName] = templateFile
	}
	if descriptionFile != "" {
		overrides[DescriptionName] = descriptionFile
	}
	if len(overrides) == 0 {
		return content
	}
	return overlay{base: content, files: overrides}
}

// overlay serves some names from the local filesystem and the rest from base.
type overlay struct {
	base  fs.FS
	files map[string]string
}

func (o overlay) Open(name string) (fs.File, error) {
	if path, ok := o.files[name]; ok {
		f, err := os.Open(path) //nolint:gosec // operator-supplied asset path
		if err != nil {
			return nil, &fs.PathError{Op: "open", Path: name, Err: err}
		}
		return f, nil
	}
	return o.base.Open(name)
}
