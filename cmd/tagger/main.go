// tagger identifies the vehicles in a directory of car-show photos using a
// vision model, copies the identified ones into the publish directory under
// vehicle-derived names, and writes the gallery HTML fragment.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"google.golang.org/genai"
	"k8s.io/klog/v2"

	"github.com/showfield/showfield/pkg/showfield"
)

var (
	configPath  = flag.String("config", "showfield.yaml", "path to config file")
	inDir       = flag.String("in", "", "directory of photos to identify")
	outDir      = flag.String("out", "", "directory for renamed copies")
	galleryPath = flag.String("gallery", "", "path for the gallery HTML fragment")
	model       = flag.String("model", "", "vision model to use")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	c, err := showfield.LoadConfig(*configPath)
	if err != nil {
		klog.Exitf("config: %v", err)
	}
	if *inDir != "" {
		c.InDir = *inDir
	}
	if *outDir != "" {
		c.OutDir = *outDir
	}
	if *galleryPath != "" {
		c.GalleryPath = *galleryPath
	}
	if *model != "" {
		c.Model = *model
	}

	if _, err := os.Stat(c.InDir); err != nil {
		klog.Exitf("input directory: %v", err)
	}

	apiKey := os.Getenv("GOOGLE_AI_API_KEY")
	if apiKey == "" {
		klog.Exitf("GOOGLE_AI_API_KEY is not set")
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		klog.Exitf("genai client: %v", err)
	}

	start := time.Now()
	s, err := showfield.Run(ctx, c, showfield.NewTagger(client, c))
	if err != nil {
		klog.Exitf("run failed: %v", err)
	}

	klog.Infof("tagged %d of %d images in %s", s.Tagged, s.Scanned, time.Since(start).Round(time.Second))
}
