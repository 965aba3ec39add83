// variants re-encodes the published gallery images into responsive
// renditions (JPEG always; WebP/AVIF when the encoders are installed) and
// writes a manifest the site uses to build srcset attributes.
package main

import (
	"flag"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"k8s.io/klog/v2"

	"github.com/showfield/showfield/pkg/showfield"
)

var (
	configPath = flag.String("config", "showfield.yaml", "path to config file")
	outDir     = flag.String("out", "", "published gallery directory")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	c, err := showfield.LoadConfig(*configPath)
	if err != nil {
		klog.Exitf("config: %v", err)
	}
	if *outDir != "" {
		c.OutDir = *outDir
	}

	m, err := showfield.BuildVariants(c)
	if err != nil {
		klog.Exitf("build variants: %v", err)
	}

	total := 0
	for _, vs := range m {
		total += len(vs)
	}
	klog.Infof("wrote %d variants for %d images", total, len(m))
}
