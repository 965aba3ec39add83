package showfield

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/barasher/go-exiftool"
	"k8s.io/klog/v2"
)

// Run processes every image in the input directory exactly once: classify,
// validate, copy into place, and render the gallery fragment of everything
// that identified cleanly. Images are handled strictly one at a time; a
// failure on one image never aborts the batch.
func Run(ctx context.Context, c *Config, cl Classifier) (*Summary, error) {
	photos, err := Scan(c.InDir)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	klog.Infof("found %d images in %s", len(photos), c.InDir)

	et, err := exiftool.NewExiftool()
	if err != nil {
		klog.Warningf("exiftool unavailable, filename hints only: %v", err)
		et = nil
	} else {
		defer func() {
			if err := et.Close(); err != nil {
				klog.Errorf("close exiftool: %v", err)
			}
		}()
	}

	s := &Summary{Scanned: len(photos)}
	entries := []Entry{}

	for _, p := range photos {
		hints := p.Hints
		if et != nil {
			hints = EnrichHints(et, p.Path, hints)
		}

		r := cl.Classify(ctx, p.Path, hints)
		if r.Outcome != OutcomeOK {
			klog.Warningf("no usable reply for %s, skipping", p.Path)
			s.Failed++
			continue
		}
		if !r.Valid() {
			klog.Infof("unidentified vehicle in %s (make=%q model=%q), skipping", p.Path, r.Make, r.Model)
			s.Skipped++
			continue
		}

		dest, err := Place(p.Path, r, c.OutDir)
		if err != nil {
			klog.Errorf("place %s: %v", p.Path, err)
			s.Failed++
			continue
		}

		klog.Infof("tagged %s as %q", filepath.Base(p.Path), r.Title())
		entries = append(entries, Entry{
			Year:        r.Year,
			Make:        r.Make,
			Model:       r.Model,
			Description: r.Description,
			ImagePath:   filepath.Base(dest),
		})
		s.Tagged++
	}

	if err := RenderGallery(entries, c.GalleryPath); err != nil {
		return s, fmt.Errorf("render gallery: %w", err)
	}

	klog.Infof("done: %d scanned, %d tagged, %d skipped, %d failed",
		s.Scanned, s.Tagged, s.Skipped, s.Failed)
	return s, nil
}
