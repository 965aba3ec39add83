package showfield

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"k8s.io/klog/v2"
)

//go:embed assets/gallery.tmpl
var galleryTmpl string

// RenderGallery writes the gallery fragment for the given entries to path,
// replacing whatever was there. Entries are emitted in the order given.
func RenderGallery(entries []Entry, path string) error {
	bs, err := renderGallery(entries)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	klog.V(1).Infof("writing gallery with %d entries to %s", len(entries), path)
	return os.WriteFile(path, bs, 0o644)
}

func renderGallery(entries []Entry) ([]byte, error) {
	tmpl, err := template.New("gallery").Parse(galleryTmpl)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	data := struct {
		Entries []Entry
	}{
		Entries: entries,
	}

	var tpl bytes.Buffer
	if err := tmpl.Execute(&tpl, data); err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}

	return tpl.Bytes(), nil
}
