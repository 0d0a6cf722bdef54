// Package classifier provides the trait classification client used to score
// prospect conversations against ideal-customer criteria. The upstream is an
// OpenAI-compatible chat completions API; its judgment is treated as opaque.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Typed failures surfaced to callers. Wrapped errors keep upstream detail.
var (
	ErrTimeout   = errors.New("classifier: timeout")
	ErrUpstream  = errors.New("classifier: upstream error")
	ErrMalformed = errors.New("classifier: malformed response")
)

// Trait is one enabled ideal-customer criterion, in list order.
type Trait struct {
	Text     string `json:"text"`
	Position int    `json:"position"`
}

// Verdict is the classifier's judgment for one conversation.
// MetTraitIndices are ordinals into the trait list that was sent.
type Verdict struct {
	MatchPoints     int      `json:"matchPoints"`
	MetTraits       []string `json:"metTraits"`
	MetTraitIndices []int    `json:"metTraitIndices"`
	Confidence      float64  `json:"confidence"`
}

// Config for the classification client.
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	Timeout           time.Duration
	RequestsPerMinute int
}

// Client calls the chat completions API with a bounded timeout and a
// client-side rate limiter, since the upstream is rate limited.
type Client struct {
	config  Config
	client  *http.Client
	limiter *rate.Limiter
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.moonshot.ai/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "kimi-k2-turbo-preview"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}

	return &Client{
		config:  cfg,
		client:  &http.Client{},
		limiter: limiter,
	}
}

const systemPrompt = `You judge whether an Instagram prospect matches ideal-customer criteria.
You receive the prospect's inbound conversation text and a numbered list of criteria.
Decide which criteria the text satisfies. Be strict: only count a criterion when the text supports it.

Respond with a single JSON object, nothing else:
{"metTraitIndices": [<zero-based indices of satisfied criteria>], "confidence": <0.0-1.0>}`

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error interface{} `json:"error"`
}

// wireVerdict is the strict JSON shape the model is instructed to return.
type wireVerdict struct {
	MetTraitIndices []int   `json:"metTraitIndices"`
	Confidence      float64 `json:"confidence"`
}

// Analyze scores the concatenated inbound conversation text against the
// provided criteria. The verdict's indices are ordinals into traits.
func (c *Client) Analyze(ctx context.Context, text string, traits []Trait) (Verdict, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Verdict{}, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	userContent, err := json.Marshal(map[string]interface{}{
		"conversation": text,
		"criteria":     traitTexts(traits),
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	payload := map[string]interface{}{
		"model":       c.config.Model,
		"temperature": 0.2,
		"messages": []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(userContent)},
		},
		"response_format": map[string]string{"type": "json_object"},
	}

	jsonBody, _ := json.Marshal(payload)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return Verdict{}, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return Verdict{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Verdict{}, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var result openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if result.Error != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrUpstream, result.Error)
	}
	if len(result.Choices) == 0 {
		return Verdict{}, fmt.Errorf("%w: empty choices", ErrMalformed)
	}

	return parseVerdict(result.Choices[0].Message.Content, traits)
}

func parseVerdict(content string, traits []Trait) (Verdict, error) {
	var wire wireVerdict
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &wire); err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	verdict := Verdict{
		MetTraitIndices: wire.MetTraitIndices,
		Confidence:      wire.Confidence,
		MetTraits:       make([]string, 0, len(wire.MetTraitIndices)),
	}
	for _, idx := range wire.MetTraitIndices {
		if idx < 0 || idx >= len(traits) {
			return Verdict{}, fmt.Errorf("%w: trait index %d out of range", ErrMalformed, idx)
		}
		verdict.MetTraits = append(verdict.MetTraits, traits[idx].Text)
	}
	verdict.MatchPoints = len(verdict.MetTraitIndices)

	return verdict, nil
}

// Models occasionally fence the JSON despite instructions.
func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
	}
	return strings.TrimSpace(trimmed)
}

func traitTexts(traits []Trait) []string {
	texts := make([]string, 0, len(traits))
	for _, trait := range traits {
		texts = append(texts, trait.Text)
	}
	return texts
}
