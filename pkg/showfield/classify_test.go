package showfield

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"google.golang.org/genai"
)

func testImage(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "1969_camaro.jpg")
	if err := os.WriteFile(p, []byte("not really a jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: genai.NewContentFromText(text, genai.RoleModel)},
		},
	}
}

func fakeTagger(gen generateFunc) *Tagger {
	return &Tagger{
		model:    "test-model",
		attempts: 3,
		backoff:  time.Millisecond,
		generate: gen,
	}
}

func TestClassifyParsesJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
	}{
		{
			name: "bare JSON",
			text: `{"year":"1969","make":"Chevrolet","model":"Camaro","description":"x"}`,
		},
		{
			name: "fenced JSON",
			text: "```json\n{\"year\":\"1969\",\"make\":\"Chevrolet\",\"model\":\"Camaro\",\"description\":\"x\"}\n```",
		},
		{
			name: "fence without language",
			text: "```\n{\"year\":\"1969\",\"make\":\"Chevrolet\",\"model\":\"Camaro\",\"description\":\"x\"}\n```",
		},
		{
			name: "whitespace padding",
			text: "  {\"year\":\" 1969 \",\"make\":\"Chevrolet\",\"model\":\"Camaro\",\"description\":\"x\"}  ",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tg := fakeTagger(func(_ context.Context, _ string, _ []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
				return textResponse(tc.text), nil
			})

			r := tg.Classify(context.Background(), testImage(t), Hints{})
			if r.Outcome != OutcomeOK {
				t.Fatalf("Outcome = %v, want OutcomeOK (raw: %q)", r.Outcome, r.Raw)
			}
			want := TagResult{Year: "1969", Make: "Chevrolet", Model: "Camaro", Description: "x"}
			if r.Year != want.Year || r.Make != want.Make || r.Model != want.Model || r.Description != want.Description {
				t.Errorf("Classify = %+v, want fields of %+v", r, want)
			}
		})
	}
}

func TestClassifyMalformedReplyNotRetried(t *testing.T) {
	t.Parallel()

	calls := 0
	tg := fakeTagger(func(_ context.Context, _ string, _ []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		calls++
		return textResponse("The vehicle appears to be a Camaro."), nil
	})

	r := tg.Classify(context.Background(), testImage(t), Hints{})
	if calls != 1 {
		t.Errorf("made %d calls, want 1", calls)
	}
	if r.Outcome != OutcomeMalformed {
		t.Errorf("Outcome = %v, want OutcomeMalformed", r.Outcome)
	}
	if r.Raw == "" {
		t.Error("malformed result should carry the raw reply")
	}
	if r.Valid() {
		t.Error("malformed result must not be valid")
	}
}

func TestClassifyNonStringFieldIsMalformed(t *testing.T) {
	t.Parallel()

	tg := fakeTagger(func(_ context.Context, _ string, _ []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return textResponse(`{"year":1969,"make":"Chevrolet","model":"Camaro","description":"x"}`), nil
	})

	r := tg.Classify(context.Background(), testImage(t), Hints{})
	if r.Outcome != OutcomeMalformed {
		t.Errorf("Outcome = %v, want OutcomeMalformed", r.Outcome)
	}
}

func TestClassifyRateLimitedExhaustsThreeAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	tg := fakeTagger(func(_ context.Context, _ string, _ []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		calls++
		return nil, genai.APIError{Code: http.StatusTooManyRequests, Message: "rate limit exceeded"}
	})

	r := tg.Classify(context.Background(), testImage(t), Hints{})
	if calls != 3 {
		t.Errorf("made %d attempts, want exactly 3", calls)
	}
	if r.Outcome != OutcomeEmpty {
		t.Errorf("Outcome = %v, want OutcomeEmpty", r.Outcome)
	}
	if r.Make != "" || r.Model != "" {
		t.Errorf("exhausted retries should yield empty fields, got %+v", r)
	}
}

func TestClassifyOtherTransportErrorNotRetried(t *testing.T) {
	t.Parallel()

	calls := 0
	tg := fakeTagger(func(_ context.Context, _ string, _ []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		calls++
		return nil, errors.New("connection refused")
	})

	r := tg.Classify(context.Background(), testImage(t), Hints{})
	if calls != 1 {
		t.Errorf("made %d attempts, want 1", calls)
	}
	if r.Outcome != OutcomeEmpty {
		t.Errorf("Outcome = %v, want OutcomeEmpty", r.Outcome)
	}
}

func TestClassifyRecoversAfterRateLimit(t *testing.T) {
	t.Parallel()

	calls := 0
	tg := fakeTagger(func(_ context.Context, _ string, _ []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		calls++
		if calls < 2 {
			return nil, genai.APIError{Code: http.StatusTooManyRequests, Message: "quota exceeded"}
		}
		return textResponse(`{"year":"1957","make":"Ford","model":"Thunderbird","description":"y"}`), nil
	})

	r := tg.Classify(context.Background(), testImage(t), Hints{})
	if calls != 2 {
		t.Errorf("made %d attempts, want 2", calls)
	}
	if r.Outcome != OutcomeOK || r.Make != "Ford" {
		t.Errorf("Classify = %+v, want Ford Thunderbird", r)
	}
}

func TestClassifyEmptyResponse(t *testing.T) {
	t.Parallel()

	tg := fakeTagger(func(_ context.Context, _ string, _ []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return &genai.GenerateContentResponse{}, nil
	})

	r := tg.Classify(context.Background(), testImage(t), Hints{})
	if r.Outcome != OutcomeEmpty {
		t.Errorf("Outcome = %v, want OutcomeEmpty", r.Outcome)
	}
}

func TestValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		r    TagResult
		want bool
	}{
		{name: "fully identified", r: TagResult{Make: "Chevrolet", Model: "Camaro"}, want: true},
		{name: "empty make", r: TagResult{Model: "Camaro"}, want: false},
		{name: "empty model", r: TagResult{Make: "Chevrolet"}, want: false},
		{name: "unknown make", r: TagResult{Make: "unknown", Model: "Camaro"}, want: false},
		{name: "unknown make mixed case", r: TagResult{Make: "Unknown", Model: "Camaro"}, want: false},
		{name: "vehicle model", r: TagResult{Make: "Chevrolet", Model: "vehicle"}, want: false},
		{name: "vehicle model upper case", r: TagResult{Make: "Chevrolet", Model: "VEHICLE"}, want: false},
		{name: "unknown model", r: TagResult{Make: "Chevrolet", Model: "unknown"}, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.r.Valid(); got != tc.want {
				t.Errorf("Valid(%+v) = %v, want %v", tc.r, got, tc.want)
			}
		})
	}
}

func TestUserPromptIncludesHints(t *testing.T) {
	t.Parallel()

	p := userPrompt(Hints{Year: "1969", Words: []string{"chevy", "camaro"}})
	for _, want := range []string{"1969", "chevy camaro", "strict JSON"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt %q missing %q", p, want)
		}
	}
}
