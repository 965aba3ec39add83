// Package preview serves the generated site locally and rebuilds image
// variants when the published gallery changes.
package preview

import (
	"fmt"
	"net/http"

	"github.com/fsnotify/fsnotify"
	"k8s.io/klog/v2"

	"github.com/showfield/showfield/pkg/showfield"
)

// Server is a local dev server for the generated gallery site.
type Server struct {
	c    *showfield.Config
	addr string
}

// New creates a preview server bound to addr.
func New(c *showfield.Config, addr string) *Server {
	return &Server{c: c, addr: addr}
}

// Serve serves the output directory over HTTP until the process exits.
func (s *Server) Serve() error {
	fs := http.FileServer(http.Dir(s.c.OutDir))
	http.Handle("/", fs)

	klog.Infof("listening on http://%s (serving %s)", s.addr, s.c.OutDir)
	return http.ListenAndServe(s.addr, nil)
}

// Watch rebuilds variants whenever the published gallery directory changes.
func (s *Server) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(s.c.OutDir); err != nil {
		return fmt.Errorf("watch %s: %w", s.c.OutDir, err)
	}
	klog.Infof("watching %s ...", s.c.OutDir)

	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				klog.Infof("change detected: %s", event)
				if _, err := showfield.BuildVariants(s.c); err != nil {
					klog.Errorf("rebuild failed: %v", err)
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			klog.Errorf("watch error: %v", err)
		}
	}
}
