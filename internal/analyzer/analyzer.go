// Package analyzer predicts document metadata from a URL. The capability is
// opaque to the rest of the system: callers get either the model's guess or
// a deterministic fallback, never an error-driven create failure.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dharsanguruparan/unlockmate/internal/model"
)

// Analyzer maps a URL to descriptive metadata.
type Analyzer interface {
	Analyze(ctx context.Context, url string) (*model.DocumentMetadata, error)
}

// Fallback is the record substituted whenever analysis is unavailable.
func Fallback() *model.DocumentMetadata {
	return &model.DocumentMetadata{
		Title:    "Document Analysis Unavailable",
		Platform: "Unknown Platform",
		Subject:  "General",
		Summary:  "We will manually verify this link.",
	}
}

// AnalyzeOrFallback swallows analyzer failures and returns the fallback so
// the create flow never fails solely because analysis did.
func AnalyzeOrFallback(ctx context.Context, a Analyzer, url string) *model.DocumentMetadata {
	if a == nil {
		return Fallback()
	}
	meta, err := a.Analyze(ctx, url)
	if err != nil || meta == nil || meta.Title == "" {
		return Fallback()
	}
	return meta
}

const defaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"

// GeminiAnalyzer calls the generative-language REST API with a constrained
// JSON response schema.
type GeminiAnalyzer struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewGemini constructs a GeminiAnalyzer. An empty apiKey yields an analyzer
// that always fails over to the fallback record.
func NewGemini(apiKey, modelName string) *GeminiAnalyzer {
	return &GeminiAnalyzer{
		apiKey:   apiKey,
		model:    modelName,
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: 20 * time.Second},
	}
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType string          `json:"responseMimeType"`
	ResponseSchema   json.RawMessage `json:"responseSchema"`
}

// responseSchema constrains the model to exactly the metadata shape.
var responseSchema = json.RawMessage(`{
	"type": "OBJECT",
	"properties": {
		"title":    {"type": "STRING", "description": "A predicted title for the document based on the URL slug."},
		"platform": {"type": "STRING", "description": "The name of the platform (e.g., CourseHero, Studocu, Scribd)."},
		"subject":  {"type": "STRING", "description": "The academic subject likely associated with this document."},
		"summary":  {"type": "STRING", "description": "A short, 1-sentence description of what this document might contain."}
	},
	"required": ["title", "platform", "subject", "summary"]
}`)

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Analyze asks the model to describe the document behind url.
func (g *GeminiAnalyzer) Analyze(ctx context.Context, url string) (*model.DocumentMetadata, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("%w: analyzer api key not configured", model.ErrExternal)
	}
	prompt := fmt.Sprintf(
		"Analyze this URL and extract metadata about the document it points to. URL: %s. "+
			"If the URL is generic or not a study site, make a best guess based on the text structure.", url)
	body, err := json.Marshal(generateRequest{
		Contents:         []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{ResponseMimeType: "application/json", ResponseSchema: responseSchema},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal analyze request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.endpoint, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: analyze call: %v", model.ErrExternal, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read analyze response: %v", model.ErrExternal, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: analyze returned status %d", model.ErrExternal, resp.StatusCode)
	}
	var parsed generateResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode analyze response: %v", model.ErrExternal, err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: empty analyze response", model.ErrExternal)
	}
	var meta model.DocumentMetadata
	if err := json.Unmarshal([]byte(parsed.Candidates[0].Content.Parts[0].Text), &meta); err != nil {
		return nil, fmt.Errorf("%w: decode metadata: %v", model.ErrExternal, err)
	}
	return &meta, nil
}
