package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/amirphl/futures-order-bot/internal/order"
)

const (
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	DefaultGroqModel   = "llama-3.3-70b-versatile"
)

const extractPrompt = `You convert a user's trading message into JSON. Respond with a JSON object only, no other text:
- symbol: trading pair like "BTCUSDT" (expand short names: btc -> BTCUSDT)
- side: "BUY" | "SELL"
- type: "MARKET" | "LIMIT"
- quantity: base asset amount as a string, or null
- notional: USDT amount as a string, or null (exactly one of quantity/notional)
- price: limit price as a string, or null for MARKET
- unrecognized: true when the message is not an order instruction

Never invent amounts the user did not state. Return ONLY valid JSON.`

// GroqExtractor asks an LLM to structure the message. The model's reply is
// parsed as JSON and mapped onto order fields; everything else about the
// reply is discarded.
type GroqExtractor struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func NewGroqExtractor(apiKey, model, baseURL string) *GroqExtractor {
	if model == "" {
		model = DefaultGroqModel
	}
	if baseURL == "" {
		baseURL = DefaultGroqBaseURL
	}
	return &GroqExtractor{
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (g *GroqExtractor) Extract(ctx context.Context, message string) (order.Fields, error) {
	if g.apiKey == "" {
		return order.Fields{}, fmt.Errorf("%w: no LLM configured", ErrUnrecognized)
	}

	content, err := g.complete(ctx, []chatMessage{
		{Role: "system", Content: extractPrompt},
		{Role: "user", Content: message},
	}, 0.2)
	if err != nil {
		return order.Fields{}, err
	}

	obj := parseModelJSON(content)
	if obj == nil {
		return order.Fields{}, fmt.Errorf("%w: model produced no JSON", ErrUnrecognized)
	}
	if b, _ := obj["unrecognized"].(bool); b {
		return order.Fields{}, ErrUnrecognized
	}

	fields := order.Fields{
		Symbol:   jsonString(obj["symbol"]),
		Side:     jsonString(obj["side"]),
		Type:     jsonString(obj["type"]),
		Quantity: jsonString(obj["quantity"]),
		Notional: jsonString(obj["notional"]),
		Price:    jsonString(obj["price"]),
	}
	if fields.Symbol == "" || fields.Side == "" {
		return order.Fields{}, fmt.Errorf("%w: model reply missing symbol or side", ErrUnrecognized)
	}
	return fields, nil
}

func (g *GroqExtractor) complete(ctx context.Context, messages []chatMessage, temperature float64) (string, error) {
	payload, err := json.Marshal(chatRequest{Model: g.model, Messages: messages, Temperature: temperature})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling LLM: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading LLM response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("LLM returned %s: %s", resp.Status, body)
	}
	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return "", fmt.Errorf("decoding LLM response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}
	return strings.TrimSpace(cr.Choices[0].Message.Content), nil
}

var (
	fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	bareJSONRe   = regexp.MustCompile(`\{[^{}]*\}`)
)

// parseModelJSON pulls a JSON object out of an LLM reply: the raw text, a
// fenced code block, or the first braced object, in that order.
func parseModelJSON(text string) map[string]any {
	text = strings.TrimSpace(text)

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err == nil {
		return obj
	}
	if m := fencedJSONRe.FindStringSubmatch(text); m != nil {
		if err := json.Unmarshal([]byte(m[1]), &obj); err == nil {
			return obj
		}
	}
	if m := bareJSONRe.FindString(text); m != "" {
		if err := json.Unmarshal([]byte(m), &obj); err == nil {
			return obj
		}
	}
	return nil
}

// jsonString renders a JSON value the model may emit as a string, number,
// or null into a plain field value.
func jsonString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		if t == "null" {
			return ""
		}
		return t
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", t), "0"), ".")
	default:
		return ""
	}
}
