// Package showfield turns a directory of car-show photos into a published
// gallery: each image is identified by a vision model, renamed after the
// vehicle it shows, and listed in an HTML fragment the static site drops in.
package showfield

import "strings"

// Hints are weak priors extracted from a source filename (and optionally
// EXIF data) that are passed along to the vision model.
type Hints struct {
	Year  string
	Words []string
}

// Photo is a single input image queued for identification.
type Photo struct {
	Path  string
	Hints Hints
}

// Outcome distinguishes the ways a classification can come back.
type Outcome int

const (
	// OutcomeOK means the model returned well-formed vehicle fields.
	OutcomeOK Outcome = iota
	// OutcomeMalformed means the model replied, but not with the JSON shape
	// we asked for. Malformed replies are final and never retried.
	OutcomeMalformed
	// OutcomeEmpty means no usable reply: transport failure, exhausted
	// retries, or a response with no text at all.
	OutcomeEmpty
)

// TagResult holds the vehicle fields extracted for one image. All fields are
// empty unless Outcome is OutcomeOK; Raw keeps the cleaned model text for
// diagnosis either way.
type TagResult struct {
	Year        string
	Make        string
	Model       string
	Description string

	Raw     string
	Outcome Outcome
}

// sentinels the model uses when it can't identify a vehicle.
var sentinels = []string{"unknown", "vehicle"}

// Valid reports whether the result identifies a real vehicle: make and model
// both present and neither a placeholder the model falls back to.
func (r TagResult) Valid() bool {
	if r.Make == "" || r.Model == "" {
		return false
	}
	for _, s := range sentinels {
		if strings.EqualFold(r.Make, s) || strings.EqualFold(r.Model, s) {
			return false
		}
	}
	return true
}

// Title is the human-visible caption, e.g. "1969 Chevrolet Camaro".
func (r TagResult) Title() string {
	parts := []string{}
	for _, p := range []string{r.Year, r.Make, r.Model} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Entry is one published gallery card.
type Entry struct {
	Year        string
	Make        string
	Model       string
	Description string
	ImagePath   string
}

// Title is the caption rendered above the card.
func (e Entry) Title() string {
	return TagResult{Year: e.Year, Make: e.Make, Model: e.Model}.Title()
}

// Summary is what a batch run reports when it completes.
type Summary struct {
	Scanned int
	Tagged  int
	Skipped int
	Failed  int
}
