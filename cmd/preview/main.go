// preview serves the generated site locally, optionally rebuilding image
// variants as the gallery changes.
package main

import (
	"flag"
	"sync"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"k8s.io/klog/v2"

	"github.com/showfield/showfield/pkg/preview"
	"github.com/showfield/showfield/pkg/showfield"
)

var (
	configPath = flag.String("config", "showfield.yaml", "path to config file")
	outDir     = flag.String("out", "", "published gallery directory")
	addr       = flag.String("addr", "localhost:12830", "host:port to bind to")
	watchFlag  = flag.Bool("watch", false, "rebuild variants on changes")
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

	s := preview.New(c, *addr)

	var wg sync.WaitGroup
	if *watchFlag {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Watch(); err != nil {
				klog.Exitf("watch failed: %v", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.Serve(); err != nil {
			klog.Exitf("serve failed: %v", err)
		}
	}()

	wg.Wait()
}
