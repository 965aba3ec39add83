package showfield

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/otiai10/copy"
	"k8s.io/klog/v2"
)

// Place copies src into outDir under a name built from the identified
// vehicle, e.g. chevrolet_camaro_1969.jpg. The source is never moved and an
// existing file is never overwritten: collisions get _1, _2, ... suffixes.
// Returns the destination path.
func Place(src string, r TagResult, outDir string) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}

	base := baseName(r)
	ext := strings.ToLower(filepath.Ext(src))

	dest := filepath.Join(outDir, base+ext)
	for n := 1; ; n++ {
		if _, err := os.Stat(dest); os.IsNotExist(err) {
			break
		}
		dest = filepath.Join(outDir, fmt.Sprintf("%s_%d%s", base, n, ext))
	}

	klog.V(1).Infof("copying %s -> %s", src, dest)
	if err := copy.Copy(src, dest); err != nil {
		return "", fmt.Errorf("copy: %w", err)
	}

	return dest, nil
}

// baseName joins the sanitized make, model and year.
func baseName(r TagResult) string {
	parts := []string{}
	for _, p := range []string{r.Make, r.Model, r.Year} {
		if s := sanitize(p); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "untitled"
	}
	return strings.Join(parts, "_")
}

// sanitize lowercases and replaces every non-alphanumeric run with a single
// underscore, trimming leading and trailing ones.
func sanitize(s string) string {
	var b strings.Builder
	lastUnder := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnder = false
		default:
			if !lastUnder {
				b.WriteByte('_')
				lastUnder = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
