package catalog

import (
	_ "embed"
	"io"
	"os"
)

//go:embed data/template.json
var templateData []byte

// WriteTemplate writes an annotated starter dataset to w. The template
// is itself a loadable catalog file.
func WriteTemplate(w io.Writer) error {
	_, err := w.Write(templateData)
	return err
}

// SaveTemplate writes the starter dataset to path.
func SaveTemplate(path string) error {
	return os.WriteFile(path, templateData, 0o644)
}
