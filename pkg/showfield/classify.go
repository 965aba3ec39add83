package showfield

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"google.golang.org/genai"
	"k8s.io/klog/v2"
)

const systemPrompt = "You identify vehicles in car-show photographs. " +
	"You respond with strict JSON only: no prose, no Markdown, exactly the four string fields " +
	`"year", "make", "model" and "description". ` +
	`Use "unknown" for make and "vehicle" for model when you cannot identify the vehicle. ` +
	"The description is one sentence a gallery caption would use."

// Classifier identifies the vehicle in a single image.
type Classifier interface {
	Classify(ctx context.Context, path string, hints Hints) TagResult
}

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// Tagger is a Classifier backed by a vision model.
type Tagger struct {
	model    string
	attempts uint
	backoff  time.Duration
	generate generateFunc
}

// NewTagger wires a Tagger to a genai client using the config's model and
// retry budget.
func NewTagger(client *genai.Client, c *Config) *Tagger {
	return &Tagger{
		model:    c.Model,
		attempts: uint(c.MaxAttempts),
		backoff:  c.Backoff(),
		generate: client.Models.GenerateContent,
	}
}

var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

// Classify sends one image to the model and extracts the vehicle fields.
// It never returns an error: every failure path degrades to a TagResult the
// caller can skip, so one bad image can't sink the batch.
func (t *Tagger) Classify(ctx context.Context, path string, hints Hints) TagResult {
	empty := TagResult{Outcome: OutcomeEmpty}

	bs, err := os.ReadFile(path)
	if err != nil {
		klog.Errorf("read %s: %v", path, err)
		return empty
	}

	mime := mimeTypes[strings.ToLower(filepath.Ext(path))]
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(bs, mime),
			genai.NewPartFromText(userPrompt(hints)),
		}, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(float32(0.1)),
		MaxOutputTokens:   300,
		ResponseMIMEType:  "application/json",
	}

	var resp *genai.GenerateContentResponse
	err = retry.Do(
		func() error {
			resp, err = t.generate(ctx, t.model, contents, cfg)
			return err
		},
		retry.Attempts(t.attempts),
		retry.RetryIf(rateLimited),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			wait := t.backoff * time.Duration((n+1)*(n+1))
			klog.Warningf("rate limited on %s, waiting %s", filepath.Base(path), wait)
			return wait
		}),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		klog.Errorf("classify %s: %v", path, err)
		return empty
	}

	text := responseText(resp)
	if text == "" {
		klog.Warningf("no text in response for %s: %+v", path, resp)
		return empty
	}

	return decodeTags(text)
}

// userPrompt folds the filename hints into the per-image instruction.
func userPrompt(h Hints) string {
	var b strings.Builder
	b.WriteString("Identify the year, make and model of the vehicle in this photo.")
	if h.Year != "" {
		fmt.Fprintf(&b, " The filename suggests the year may be %s.", h.Year)
	}
	if len(h.Words) > 0 {
		fmt.Fprintf(&b, " The filename contains these words, which may or may not help: %s.",
			strings.Join(h.Words, " "))
	}
	b.WriteString(" Respond with strict JSON only.")
	return b.String()
}

// rateLimited matches HTTP 429 and the quota messages some endpoints send
// with other codes.
func rateLimited(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "quota")
}

// responseText prefers the flattened convenience text, then falls back to
// the first non-empty part of any candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	if text := resp.Text(); text != "" {
		return text
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if p.Text != "" {
				return p.Text
			}
		}
	}
	return ""
}

// tagPayload is the exact shape the model is instructed to return. Anything
// that doesn't decode into it is a malformed reply, not a partial one.
type tagPayload struct {
	Year        string `json:"year"`
	Make        string `json:"make"`
	Model       string `json:"model"`
	Description string `json:"description"`
}

// decodeTags parses the model's reply. Malformed JSON is the model's final
// answer and is never retried.
func decodeTags(text string) TagResult {
	cleaned := stripFences(text)

	var p tagPayload
	if err := json.Unmarshal([]byte(cleaned), &p); err != nil {
		klog.Warningf("unparseable reply: %v (raw: %q)", err, cleaned)
		return TagResult{Raw: cleaned, Outcome: OutcomeMalformed}
	}

	return TagResult{
		Year:        strings.TrimSpace(p.Year),
		Make:        strings.TrimSpace(p.Make),
		Model:       strings.TrimSpace(p.Model),
		Description: strings.TrimSpace(p.Description),
		Raw:         cleaned,
		Outcome:     OutcomeOK,
	}
}

// stripFences removes a Markdown code fence (```json ... ```) if the model
// wrapped its reply in one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
