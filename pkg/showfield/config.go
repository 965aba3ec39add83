package showfield

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"
)

// VariantOpts describes one responsive image variant.
type VariantOpts struct {
	Width   int `yaml:"width"`
	Quality int `yaml:"quality"`
}

// Config holds configuration for showfield.
type Config struct {
	// InDir is the directory of raw photos to identify.
	InDir string `yaml:"in_dir"`
	// OutDir receives the renamed copies and generated variants.
	OutDir string `yaml:"out_dir"`
	// GalleryPath is where the HTML gallery fragment is written.
	GalleryPath string `yaml:"gallery_path"`

	// Model is the vision model used for identification.
	Model string `yaml:"model"`
	// MaxAttempts bounds classification attempts per image.
	MaxAttempts int `yaml:"max_attempts"`
	// BackoffMS scales the rate-limit backoff in milliseconds
	// (backoff = BackoffMS * attempt²).
	BackoffMS int `yaml:"backoff_ms"`

	// Variants is the responsive size/quality matrix.
	Variants []VariantOpts `yaml:"variants"`
}

var defaultVariants = []VariantOpts{
	{Width: 480, Quality: 75},
	{Width: 960, Quality: 80},
	{Width: 1600, Quality: 85},
}

// LoadConfig reads a YAML config file on top of the defaults. A missing file
// is not an error; flags and defaults carry the run.
func LoadConfig(path string) (*Config, error) {
	c := &Config{
		InDir:       "photos",
		OutDir:      "public/gallery",
		GalleryPath: "public/gallery/index.html",
		Model:       "gemini-2.5-flash",
		MaxAttempts: 3,
		BackoffMS:   1000,
		Variants:    defaultVariants,
	}

	if path == "" {
		return c, nil
	}

	bs, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			klog.V(1).Infof("no config at %s, using defaults", path)
			return c, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(bs, c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if len(c.Variants) == 0 {
		c.Variants = defaultVariants
	}

	return c, nil
}

// Backoff is the base unit of the rate-limit backoff.
func (c *Config) Backoff() time.Duration {
	return time.Duration(c.BackoffMS) * time.Millisecond
}
