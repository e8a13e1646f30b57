package external

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"github.com/mtlprog/fundtrack/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type reply struct {
	text string
	err  error
}

type fakeGenerator struct {
	replies []reply
	calls   int
	prompts []string
	configs []*genai.GenerateContentConfig
	models  []string
}

func (f *fakeGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	r := f.replies[min(f.calls, len(f.replies)-1)]
	f.calls++
	f.models = append(f.models, model)
	f.configs = append(f.configs, config)
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompts = append(f.prompts, contents[0].Parts[0].Text)
	}
	if r.err != nil {
		return nil, r.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: r.text}}},
		}},
	}, nil
}

func newTestClient(gen *fakeGenerator, retries int) *GeminiClient {
	c := NewGeminiClientWithGenerator(gen, GeminiConfig{MaxRetries: retries, RetryBaseDelay: time.Millisecond})
	c.now = func() time.Time { return time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC) }
	return c
}

func TestGetFundData(t *testing.T) {
	gen := &fakeGenerator{replies: []reply{{text: "```json\n" + `{
		"current": {"nav": 98.45, "date": "2026-01-14"},
		"history": [
			{"date": "2025-12-31", "nav": 97.1},
			{"date": "2025-11-30", "nav": "96,5"},
			{"date": "2025-10-31", "nav": "n/a"}
		]
	}` + "\n```"}}}
	c := newTestClient(gen, 0)

	data, err := c.GetFundData(context.Background(), domain.Position{ISIN: "IE00B4L5Y983", Name: "iShares Core MSCI World"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !data.Current.NAV.Equal(dec("98.45")) || data.Current.Date != "2026-01-14" {
		t.Errorf("current = %+v", data.Current)
	}
	if len(data.History) != 3 {
		t.Fatalf("history length = %d, want 3", len(data.History))
	}
	if !data.History[1].NAV.Equal(dec("96.5")) {
		t.Errorf("string NAV = %s, want 96.5", data.History[1].NAV)
	}
	if !data.History[2].NAV.IsZero() {
		t.Errorf("non-numeric NAV = %s, want 0", data.History[2].NAV)
	}

	prompt := gen.prompts[0]
	for _, want := range []string{"IE00B4L5Y983", "iShares Core MSCI World", "2026-01-15", "24 months"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt does not mention %q", want)
		}
	}
	cfg := gen.configs[0]
	if cfg.ResponseMIMEType != "application/json" || len(cfg.Tools) != 1 || cfg.Tools[0].GoogleSearch == nil {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if gen.models[0] != DefaultModel {
		t.Errorf("model = %q, want %q", gen.models[0], DefaultModel)
	}
}

func TestGetFundDataWithoutCurrent(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty reply", ""},
		{"not json", "I could not find that fund."},
		{"missing current", `{"history": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(&fakeGenerator{replies: []reply{{text: tt.text}}}, 0)

			_, err := c.GetFundData(context.Background(), domain.Position{ISIN: "X"})
			if !errors.Is(err, ErrNoData) {
				t.Errorf("error = %v, want ErrNoData", err)
			}
		})
	}
}

func TestGetFundDataRetriesTransientErrors(t *testing.T) {
	gen := &fakeGenerator{replies: []reply{
		{err: genai.APIError{Code: http.StatusTooManyRequests, Message: "quota"}},
		{err: genai.APIError{Code: http.StatusServiceUnavailable, Message: "overloaded"}},
		{text: `{"current": {"nav": 1.5, "date": "2026-01-14"}, "history": []}`},
	}}
	c := newTestClient(gen, 2)

	data, err := c.GetFundData(context.Background(), domain.Position{ISIN: "X"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.calls != 3 {
		t.Errorf("calls = %d, want 3", gen.calls)
	}
	if !data.Current.NAV.Equal(dec("1.5")) {
		t.Errorf("NAV = %s, want 1.5", data.Current.NAV)
	}
}

func TestGetFundDataGivesUpAfterMaxRetries(t *testing.T) {
	gen := &fakeGenerator{replies: []reply{{err: genai.APIError{Code: http.StatusTooManyRequests}}}}
	c := newTestClient(gen, 1)

	if _, err := c.GetFundData(context.Background(), domain.Position{ISIN: "X"}); err == nil {
		t.Fatal("expected error")
	}
	if gen.calls != 2 {
		t.Errorf("calls = %d, want 2", gen.calls)
	}
}

func TestGetFundDataPermissionErrorIsNotRetried(t *testing.T) {
	gen := &fakeGenerator{replies: []reply{{err: errors.New("Error 404, Message: Requested entity was not found.")}}}
	c := newTestClient(gen, 3)

	_, err := c.GetFundData(context.Background(), domain.Position{ISIN: "X"})
	if !errors.Is(err, ErrPermission) {
		t.Errorf("error = %v, want ErrPermission", err)
	}
	if gen.calls != 1 {
		t.Errorf("calls = %d, want 1", gen.calls)
	}
}

func TestPing(t *testing.T) {
	ok := newTestClient(&fakeGenerator{replies: []reply{{text: "OK"}}}, 0)
	if err := ok.Ping(context.Background()); err != nil {
		t.Errorf("Ping() = %v, want nil", err)
	}

	silent := newTestClient(&fakeGenerator{replies: []reply{{text: "  "}}}, 0)
	if err := silent.Ping(context.Background()); !errors.Is(err, ErrNoData) {
		t.Errorf("Ping() = %v, want ErrNoData", err)
	}

	denied := newTestClient(&fakeGenerator{replies: []reply{{err: errors.New("requested entity was not found")}}}, 0)
	if err := denied.Ping(context.Background()); !errors.Is(err, ErrPermission) {
		t.Errorf("Ping() = %v, want ErrPermission", err)
	}
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	if _, err := NewGeminiClient(context.Background(), "", GeminiConfig{}); err == nil {
		t.Error("expected error for empty key")
	}
}
