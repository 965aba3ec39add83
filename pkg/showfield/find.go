package showfield

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/barasher/go-exiftool"
	"github.com/karrick/godirwalk"
	"k8s.io/klog/v2"
)

// imageExts are the raster formats the pipeline accepts.
var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

var yearToken = regexp.MustCompile(`^\d{4}$`)

// Scan lists the image files directly inside dir, in enumeration order.
func Scan(dir string) ([]*Photo, error) {
	dirents, err := godirwalk.ReadDirents(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	found := []*Photo{}
	for _, de := range dirents {
		if !de.IsRegular() {
			continue
		}
		if !imageExts[strings.ToLower(filepath.Ext(de.Name()))] {
			klog.V(1).Infof("skipping non-image %s", de.Name())
			continue
		}

		p := filepath.Join(dir, de.Name())
		klog.V(1).Infof("found %s", p)
		found = append(found, &Photo{
			Path:  p,
			Hints: DeriveHints(de.Name()),
		})
	}

	return found, nil
}

// DeriveHints splits a filename into weak priors for the model: the first
// 4-digit token becomes the year hint, everything else a word hint.
func DeriveHints(filename string) Hints {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	tokens := strings.FieldsFunc(base, func(r rune) bool {
		return r == '_' || r == ' ' || r == '-' || r == '.'
	})

	h := Hints{}
	for _, tok := range tokens {
		if h.Year == "" && yearToken.MatchString(tok) {
			h.Year = tok
			continue
		}
		h.Words = append(h.Words, tok)
	}
	return h
}

// EnrichHints appends EXIF description and keywords to the word hints.
// Anything exiftool can't extract is simply left out.
func EnrichHints(et *exiftool.Exiftool, path string, h Hints) Hints {
	fis := et.ExtractMetadata(path)
	fi := fis[0]
	if fi.Err != nil {
		klog.V(1).Infof("no exif hints for %s: %v", path, fi.Err)
		return h
	}

	if desc, err := fi.GetString("ImageDescription"); err == nil {
		h.Words = append(h.Words, strings.Fields(desc)...)
	}
	if kws, err := fi.GetStrings("Keywords"); err == nil {
		h.Words = append(h.Words, kws...)
	}
	return h
}
