// Package ai calls the Gemini text-generation API for the two cosmetic
// collaborator features: lucky-number suggestions and draw narratives. Both
// degrade to deterministic fallbacks; neither ever blocks a purchase or a
// draw.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultModel = "gemini-2.0-flash"

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	rng        *rand.Rand
}

// NewClient reads GEMINI_API_KEY and GEMINI_MODEL from the environment. An
// empty key is fine: every call then takes its fallback path.
func NewClient() *Client {
	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = defaultModel
	}
	return &Client{
		apiKey:  os.Getenv("GEMINI_API_KEY"),
		model:   model,
		baseURL: "https://generativelanguage.googleapis.com/v1beta",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// LuckyNumbers suggests count numbers from available. On any API failure it
// falls back to a uniform random sample.
func (c *Client) LuckyNumbers(ctx context.Context, raffleTitle string, available []int, count int) ([]int, error) {
	if count > len(available) {
		count = len(available)
	}
	if count <= 0 {
		return []int{}, nil
	}

	if c.apiKey == "" {
		return c.randomSample(available, count), nil
	}

	prompt := fmt.Sprintf(
		"I am playing a raffle called %q. Pick %d distinct lucky numbers for me from this list: %v. Reply with only the numbers, comma separated.",
		raffleTitle, count, capList(available, 200),
	)
	text, err := c.generate(ctx, prompt)
	if err != nil {
		return c.randomSample(available, count), nil
	}

	picked := parseNumbers(text, available, count)
	if len(picked) == 0 {
		return c.randomSample(available, count), nil
	}
	return picked, nil
}

// DrawNarrative writes a short celebratory story for a finished draw.
func (c *Client) DrawNarrative(ctx context.Context, raffleTitle, prize string, winning int) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY not set")
	}
	prompt := fmt.Sprintf(
		"Write a short, exciting story (150 words max) about how number %d won the raffle %q with a prize of %s. Festive and mysterious tone; mention that luck was on the ticket holder's side.",
		winning, raffleTitle, prize,
	)
	return c.generate(ctx, prompt)
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("gemini API error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var geminiResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	return strings.TrimSpace(geminiResp.Candidates[0].Content.Parts[0].Text), nil
}

func (c *Client) randomSample(available []int, count int) []int {
	shuffled := append([]int(nil), available...)
	c.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:count]
}

func capList(nums []int, limit int) []int {
	if len(nums) > limit {
		return nums[:limit]
	}
	return nums
}

// parseNumbers extracts up to count distinct numbers from the model's reply,
// keeping only ones actually available.
func parseNumbers(text string, available []int, count int) []int {
	allowed := make(map[int]bool, len(available))
	for _, n := range available {
		allowed[n] = true
	}

	var picked []int
	seen := make(map[int]bool)
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r < '0' || r > '9'
	})
	for _, f := range fields {
		var n int
		if _, err := fmt.Sscanf(f, "%d", &n); err != nil {
			continue
		}
		if allowed[n] && !seen[n] {
			picked = append(picked, n)
			seen[n] = true
			if len(picked) == count {
				break
			}
		}
	}
	return picked
}
