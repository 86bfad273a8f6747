// Package openai detects tile letters by asking an OpenAI vision model to
// locate them.
//
// The model is prompted for a JSON list of tiles with boxes given as
// fractions of the image size, origin top-left. Boxes are flipped into the
// bottom-left origin used by fragments.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/bananasnap/gridsnap/pkg/detect"
	"github.com/bananasnap/gridsnap/pkg/grid"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o"
	maxBodyInError = 500
)

// Detector implements detect.Detector on the chat completions API
type Detector struct {
	BaseURL string
}

// Response represents an OpenAI API response
type Response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// TemplateData represents data for API request template
type TemplateData struct {
	Model       string
	Prompt      string
	ImageBase64 string
	MimeType    string
}

// tile is one letter tile as the model reports it
type tile struct {
	Text   string  `json:"text"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// New creates a detector for OPENAI_BASE_URL, or the public API when unset
func New() *Detector {
	baseURL := os.Getenv("OPENAI_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Detector{BaseURL: strings.TrimRight(baseURL, "/")}
}

// Name returns the detector name
func (d *Detector) Name() string {
	return "openai"
}

// ValidateConfig validates the OpenAI configuration
func (d *Detector) ValidateConfig(config detect.Config) error {
	if os.Getenv("OPENAI_API_KEY") == "" {
		return fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	return nil
}

// Detect sends the image to the model and parses the tiles it reports
func (d *Detector) Detect(ctx context.Context, config detect.Config, imagePath string) ([]grid.Fragment, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(imagePath))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	model := config.Model
	if model == "" {
		model = defaultModel
	}

	body, err := buildRequest(TemplateData{
		Model:       jsonEscape(model),
		Prompt:      jsonEscape(prompt(config.Whitelist)),
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		MimeType:    mimeType,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := detect.WithTimeout(ctx, config)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.BaseURL+"/chat/completions", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openAI API error: %d - %s", resp.StatusCode, truncateBody(respBody))
	}

	var openaiResp Response
	if err := json.Unmarshal(respBody, &openaiResp); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w - body: %s", err, truncateBody(respBody))
	}
	if len(openaiResp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI - body: %s", truncateBody(respBody))
	}

	slog.Debug("OpenAI detection finished", "model", model, "input_tokens", openaiResp.Usage.PromptTokens, "output_tokens", openaiResp.Usage.CompletionTokens)

	return ParseTiles(openaiResp.Choices[0].Message.Content)
}

// ParseTiles extracts the tile list from a model reply and converts it to
// fragments. Code fences and text around the JSON array are ignored; tiles
// with an empty text or a box outside the image are skipped.
func ParseTiles(content string) ([]grid.Fragment, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON array in model response: %s", truncateBody([]byte(content)))
	}

	var tiles []tile
	if err := json.Unmarshal([]byte(content[start:end+1]), &tiles); err != nil {
		return nil, fmt.Errorf("failed to parse tiles: %w", err)
	}

	fragments := make([]grid.Fragment, 0, len(tiles))
	for _, t := range tiles {
		box, ok := t.boundingBox()
		if !ok || strings.TrimSpace(t.Text) == "" {
			slog.Debug("Skipping tile", "text", t.Text, "x", t.X, "y", t.Y)
			continue
		}
		fragments = append(fragments, grid.Fragment{Text: t.Text, BoundingBox: box})
	}
	return fragments, nil
}

// boundingBox clips the tile to the unit square and moves the origin to the
// bottom-left corner
func (t tile) boundingBox() (grid.BoundingBox, bool) {
	x0, y0 := clamp(t.X), clamp(t.Y)
	x1, y1 := clamp(t.X+t.Width), clamp(t.Y+t.Height)
	if x1 <= x0 || y1 <= y0 {
		return grid.BoundingBox{}, false
	}
	return grid.BoundingBox{
		X:      x0,
		Y:      1 - y1,
		Width:  x1 - x0,
		Height: y1 - y0,
	}, true
}

func clamp(v float64) float64 {
	return min(max(v, 0), 1)
}

func prompt(whitelist string) string {
	var b strings.Builder
	b.WriteString("The image shows letter tiles laid out on a table. ")
	b.WriteString("Return every tile as a JSON array of objects with the keys text, x, y, width and height. ")
	b.WriteString("text is the letter on the tile. x, y, width and height are fractions of the image width and height, measured from the top-left corner. ")
	if whitelist != "" {
		b.WriteString("Tiles only carry these characters: " + whitelist + ". ")
	}
	b.WriteString("Reply with the JSON array only.")
	return b.String()
}

func buildRequest(data TemplateData) (*bytes.Buffer, error) {
	tmpl, err := template.New("openai").Parse(requestTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	var requestBuffer bytes.Buffer
	if err := tmpl.Execute(&requestBuffer, data); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}

	// Validate JSON
	if !json.Valid(requestBuffer.Bytes()) {
		return nil, fmt.Errorf("generated invalid JSON request")
	}
	return &requestBuffer, nil
}

// jsonEscape properly escapes a string for use in JSON
func jsonEscape(s string) string {
	escaped, _ := json.Marshal(s)
	// Remove the surrounding quotes that json.Marshal adds
	return string(escaped[1 : len(escaped)-1])
}

func truncateBody(body []byte) string {
	if len(body) <= maxBodyInError {
		return string(body)
	}
	return string(body[:maxBodyInError]) + "...(truncated)"
}

const requestTemplate = `{
  "model": "{{.Model}}",
  "temperature": 0,
  "messages": [
    {
      "role": "user",
      "content": [
        {
          "type": "text",
          "text": "{{.Prompt}}"
        },
        {
          "type": "image_url",
          "image_url": {
            "url": "data:{{.MimeType}};base64,{{.ImageBase64}}"
          }
        }
      ]
    }
  ]
}`
