package showfield

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	"k8s.io/klog/v2"
)

// variantDir is the subdirectory holding generated variants, kept out of the
// way of the published originals.
var variantDir = "_"

// manifestName is the manifest file written next to the variants.
var manifestName = "variants.json"

// Variant describes one generated rendition of a source image.
type Variant struct {
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
}

// Manifest maps each source image (by base name) to its renditions.
type Manifest map[string][]Variant

// BuildVariants resizes every published gallery image into the configured
// width/quality matrix and writes a manifest. JPEG is always produced;
// WebP and AVIF are added when cwebp/avifenc are installed.
func BuildVariants(c *Config) (Manifest, error) {
	photos, err := Scan(c.OutDir)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	outDir := filepath.Join(c.OutDir, variantDir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}

	webp := encoderPath("cwebp")
	avif := encoderPath("avifenc")

	m := Manifest{}
	for _, p := range photos {
		vs, err := buildImageVariants(p.Path, outDir, c.Variants, webp, avif)
		if err != nil {
			klog.Errorf("variants for %s: %v", p.Path, err)
			continue
		}
		m[filepath.Base(p.Path)] = vs
	}

	if err := writeManifest(m, filepath.Join(outDir, manifestName)); err != nil {
		return m, err
	}
	return m, nil
}

func buildImageVariants(src string, outDir string, opts []VariantOpts, webp string, avif string) ([]Variant, error) {
	img, err := imgio.Open(src)
	if err != nil {
		return nil, fmt.Errorf("imgio.Open: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	vs := []Variant{}

	for _, o := range opts {
		if o.Width > img.Bounds().Dx() {
			klog.V(1).Infof("skipping %dw for %s: source is only %dw", o.Width, src, img.Bounds().Dx())
			continue
		}

		jpgPath := filepath.Join(outDir, fmt.Sprintf("%s@%dw.jpg", base, o.Width))
		rimg, err := resizeTo(img, src, jpgPath, o)
		if err != nil {
			return nil, err
		}
		h := rimg.Bounds().Dy()
		vs = append(vs, Variant{Path: filepath.Base(jpgPath), Width: o.Width, Height: h, Format: "jpeg"})

		for _, enc := range []struct {
			bin, ext, format string
		}{
			{webp, ".webp", "webp"},
			{avif, ".avif", "avif"},
		} {
			if enc.bin == "" {
				continue
			}
			outPath := strings.TrimSuffix(jpgPath, ".jpg") + enc.ext
			if current(jpgPath, outPath) {
				vs = append(vs, Variant{Path: filepath.Base(outPath), Width: o.Width, Height: h, Format: enc.format})
				continue
			}
			if err := encode(enc.bin, jpgPath, outPath, o.Quality); err != nil {
				klog.Warningf("%s failed for %s: %v", filepath.Base(enc.bin), jpgPath, err)
				continue
			}
			vs = append(vs, Variant{Path: filepath.Base(outPath), Width: o.Width, Height: h, Format: enc.format})
		}
	}

	return vs, nil
}

// resizeTo writes the JPEG rendition of img at the given width, reusing an
// existing file when it is newer than the source.
func resizeTo(img image.Image, src string, dest string, o VariantOpts) (image.Image, error) {
	if current(src, dest) {
		klog.V(1).Infof("%s is current", dest)
		if existing, err := imgio.Open(dest); err == nil {
			return existing, nil
		}
	}

	scale := float64(img.Bounds().Dx()) / float64(o.Width)
	y := int(float64(img.Bounds().Dy()) / scale)

	klog.Infof("creating %dx%d variant: %s", o.Width, y, dest)
	rimg := transform.Resize(img, o.Width, y, transform.Lanczos)
	if err := imgio.Save(dest, rimg, imgio.JPEGEncoder(o.Quality)); err != nil {
		return nil, fmt.Errorf("save: %w", err)
	}
	return rimg, nil
}

// current reports whether dest exists, is non-trivial, and is at least as
// new as src.
func current(src string, dest string) bool {
	sst, err := os.Stat(src)
	if err != nil {
		return false
	}
	dst, err := os.Stat(dest)
	if err != nil {
		return false
	}
	return dst.Size() > 128 && !sst.ModTime().After(dst.ModTime())
}

// encoderPath resolves an optional external encoder.
func encoderPath(name string) string {
	p, err := exec.LookPath(name)
	if err != nil {
		klog.Infof("%s not found, skipping that format", name)
		return ""
	}
	return p
}

// encode shells out to cwebp or avifenc with the variant's quality.
func encode(bin string, in string, out string, quality int) error {
	q := strconv.Itoa(quality)
	var cmd *exec.Cmd
	if strings.Contains(filepath.Base(bin), "cwebp") {
		cmd = exec.Command(bin, "-quiet", "-q", q, in, "-o", out)
	} else {
		cmd = exec.Command(bin, "-q", q, in, out)
	}
	if bs, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w (output: %s)", filepath.Base(bin), err, bs)
	}
	return nil
}

func writeManifest(m Manifest, path string) error {
	bs, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	klog.V(1).Infof("writing manifest to %s", path)
	return os.WriteFile(path, bs, 0o644)
}
