package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"prompt-rush/internal/config"

	"github.com/rs/zerolog/log"
)

// ImageGenerator renders a prompt into an image reference.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ImageGeneratorFunc adapts a function to the ImageGenerator interface.
type ImageGeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f ImageGeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

type imageAPIRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type imageAPIResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type httpImageGenerator struct {
	apiKey string
	apiURL string
	model  string
	client *http.Client
}

func newImageGenerator(cfg config.Config) ImageGenerator {
	return &httpImageGenerator{
		apiKey: cfg.ImageAPIKey,
		apiURL: cfg.ImageAPIURL,
		model:  cfg.ImageModel,
		client: &http.Client{Timeout: time.Duration(cfg.ImageTimeoutSeconds) * time.Second},
	}
}

// Generate renders a prompt through the HTTP image API. Any failure past
// configuration is wrapped in ErrCollaboratorFailure so callers can tell an
// upstream outage apart from their own mistakes.
func (g *httpImageGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(g.apiKey) == "" {
		return "", errors.New("image API key is not configured")
	}
	url, err := g.request(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCollaboratorFailure, err)
	}
	return url, nil
}

func (g *httpImageGenerator) request(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(imageAPIRequest{
		Model:  g.model,
		Prompt: prompt,
		N:      1,
		Size:   "1024x1024",
	})
	if err != nil {
		return "", fmt.Errorf("build image request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build image request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(g.apiKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("reach image API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read image response: %w", err)
	}
	var decoded imageAPIResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("decode image response: %w", err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("image API: %s", decoded.Error.Message)
	}
	if len(decoded.Data) == 0 || decoded.Data[0].URL == "" {
		return "", errors.New("image API returned no image")
	}
	return decoded.Data[0].URL, nil
}

// generateImage never fails the round: a collaborator failure degrades to a
// deterministic placeholder reference instead of blocking the start.
func (s *Server) generateImage(ctx context.Context, prompt string) string {
	if s.images != nil {
		url, err := s.images.Generate(ctx, prompt)
		if err == nil && url != "" {
			return url
		}
		log.Warn().Err(err).Msg("image generation failed, using placeholder")
	}
	return placeholderImageURL(prompt)
}

func placeholderImageURL(prompt string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(normalizeText(prompt))))
	return fmt.Sprintf("https://picsum.photos/seed/%x/1024", sum[:8])
}
