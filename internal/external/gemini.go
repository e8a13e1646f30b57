package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"github.com/mtlprog/fundtrack/internal/domain"
)

const (
	// DefaultModel is the Gemini model used for valuation lookups.
	DefaultModel = "gemini-3-flash-preview"

	historyMonths    = 24
	defaultRetryBase = 2 * time.Second
)

var (
	// ErrNoData means the model answered without a usable current valuation.
	ErrNoData = errors.New("no reliable valuation data")
	// ErrPermission means the API key cannot use the search tool.
	ErrPermission = errors.New("API key does not support Google Search grounding")
)

const systemInstruction = "You are a financial data analyst with expert knowledge of Bloomberg and Morningstar. " +
	"Your priority is the accuracy of the latest available net asset value."

// ContentGenerator is the part of the Gemini models API used here.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiConfig configures a GeminiClient.
type GeminiConfig struct {
	Model          string
	Timeout        time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// GeminiClient looks up fund valuations with Gemini and Google Search grounding.
type GeminiClient struct {
	models         ContentGenerator
	model          string
	timeout        time.Duration
	maxRetries     int
	retryBaseDelay time.Duration
	now            func() time.Time
}

// NewGeminiClient creates a client backed by the Gemini API.
func NewGeminiClient(ctx context.Context, apiKey string, cfg GeminiConfig) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	return NewGeminiClientWithGenerator(client.Models, cfg), nil
}

// NewGeminiClientWithGenerator creates a client on top of an existing generator.
func NewGeminiClientWithGenerator(models ContentGenerator, cfg GeminiConfig) *GeminiClient {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = defaultRetryBase
	}
	return &GeminiClient{
		models:         models,
		model:          cfg.Model,
		timeout:        cfg.Timeout,
		maxRetries:     max(cfg.MaxRetries, 0),
		retryBaseDelay: cfg.RetryBaseDelay,
		now:            time.Now,
	}
}

// GetFundData asks for the latest NAV and a monthly history of the position's
// share class. A reply without a current valuation yields ErrNoData.
func (c *GeminiClient) GetFundData(ctx context.Context, p domain.Position) (*domain.FundData, error) {
	prompt := fundPrompt(p, c.now())

	text, err := c.generateWithRetry(ctx, prompt, fundDataConfig())
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", p.ISIN, err)
	}

	data, err := decodeFundData(text)
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", p.ISIN, err)
	}
	slog.Debug("Gemini: valuation received", "isin", p.ISIN, "nav", data.Current.NAV, "date", data.Current.Date, "history", len(data.History))
	return data, nil
}

// Ping checks that the key works and the search tool is available.
func (c *GeminiClient) Ping(ctx context.Context) error {
	cfg := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}
	text, err := c.generate(ctx, `Check status of Google Search tool availability. Respond with "OK".`, cfg)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return ErrNoData
	}
	return nil
}

func (c *GeminiClient) generateWithRetry(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	var lastErr error
	for attempt := range c.maxRetries + 1 {
		if attempt > 0 {
			delay := c.retryBaseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		text, err := c.generate(ctx, prompt, cfg)
		if err == nil {
			return text, nil
		}
		if !retryable(ctx, err) {
			return "", err
		}
		lastErr = err
		slog.Warn("Gemini: request failed, retrying", "attempt", attempt+1, "maxAttempts", c.maxRetries+1, "error", err)
	}
	return "", lastErr
}

func (c *GeminiClient) generate(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", classify(err)
	}
	return resp.Text(), nil
}

// classify maps the "requested entity was not found" answer, which Gemini
// returns for keys without search grounding, to ErrPermission.
func classify(err error) error {
	if strings.Contains(strings.ToLower(err.Error()), "entity was not found") {
		return fmt.Errorf("%w: %v", ErrPermission, err)
	}
	return err
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, ErrPermission) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	return false
}

func fundPrompt(p domain.Position, now time.Time) string {
	today := now.Format(time.DateOnly)
	return fmt.Sprintf(`HIGH-PRECISION FINANCIAL LOOKUP:
I need the MOST RECENT net asset value (NAV) as of today (%[1]s) for the fund:
Name: %[2]s
ISIN: %[3]s

MANDATORY REQUIREMENTS:
1. RECENCY: use the latest official closing valuation. Prefer data from today or yesterday. Do not accept data older than 72 hours if the market has been open.
2. ISIN CONSISTENCY: the value must belong exclusively to the share class of ISIN %[3]s.
3. HISTORY: produce a series covering the last %[4]d months (one point per month).

RESPOND ONLY WITH JSON:
{
  "current": { "nav": number, "date": "YYYY-MM-DD" },
  "history": [ { "date": "YYYY-MM-DD", "nav": number }, ... ]
}`, today, p.Name, p.ISIN, historyMonths)
}

func fundDataConfig() *genai.GenerateContentConfig {
	point := func(required ...string) *genai.Schema {
		return &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"nav":  {Type: genai.TypeNumber},
				"date": {Type: genai.TypeString},
			},
			Required: required,
		}
	}
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}},
		Tools:             []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
		ResponseMIMEType:  "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"current": point("nav", "date"),
				"history": {Type: genai.TypeArray, Items: point()},
			},
		},
	}
}

var codeFence = regexp.MustCompile("```(?:json)?\\n?")

type rawPoint struct {
	Date string          `json:"date"`
	NAV  json.RawMessage `json:"nav"`
}

type rawFundData struct {
	Current *rawPoint  `json:"current"`
	History []rawPoint `json:"history"`
}

// decodeFundData parses a model reply. Non-numeric NAVs decode as zero.
func decodeFundData(text string) (*domain.FundData, error) {
	clean := strings.TrimSpace(codeFence.ReplaceAllString(text, ""))
	if clean == "" {
		return nil, ErrNoData
	}

	var raw rawFundData
	if err := json.Unmarshal([]byte(clean), &raw); err != nil {
		return nil, fmt.Errorf("%w: parsing reply: %v", ErrNoData, err)
	}
	if raw.Current == nil {
		return nil, ErrNoData
	}

	history := make([]domain.NavPoint, 0, len(raw.History))
	for _, p := range raw.History {
		history = append(history, p.toNavPoint())
	}
	current := raw.Current.toNavPoint()
	return &domain.FundData{Current: &current, History: history}, nil
}

func (p rawPoint) toNavPoint() domain.NavPoint {
	return domain.NavPoint{Date: strings.TrimSpace(p.Date), NAV: parseNAV(p.NAV)}
}

func parseNAV(raw json.RawMessage) decimal.Decimal {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return domain.ParseLocaleNumber(s)
	}
	return domain.SafeParse(strings.TrimSpace(string(raw)))
}
