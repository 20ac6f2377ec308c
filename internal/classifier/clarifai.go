package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rohits-web03/estately/internal/config"
)

// Clarifai calls the v2 model outputs API of a general recognition model.
type Clarifai struct {
	baseURL   string
	pat       string
	modelID   string
	version   string
	threshold float64
	client    *http.Client
}

func NewClarifai(cfg config.ClassifierConfig) *Clarifai {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Clarifai{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		pat:       cfg.PAT,
		modelID:   cfg.ModelID,
		version:   cfg.ModelVersion,
		threshold: cfg.Threshold,
		client:    &http.Client{Timeout: timeout},
	}
}

type clarifaiRequest struct {
	UserAppID struct {
		UserID string `json:"user_id"`
		AppID  string `json:"app_id"`
	} `json:"user_app_id"`
	Inputs []clarifaiInput `json:"inputs"`
}

type clarifaiInput struct {
	Data struct {
		Image struct {
			URL string `json:"url"`
		} `json:"image"`
	} `json:"data"`
}

type clarifaiResponse struct {
	Status struct {
		Code        int    `json:"code"`
		Description string `json:"description"`
	} `json:"status"`
	Outputs []struct {
		Data struct {
			Concepts []Concept `json:"concepts"`
		} `json:"data"`
	} `json:"outputs"`
}

func (c *Clarifai) Classify(ctx context.Context, imageURL string) (Verdict, error) {
	var payload clarifaiRequest
	payload.UserAppID.UserID = "clarifai"
	payload.UserAppID.AppID = "main"
	var in clarifaiInput
	in.Data.Image.URL = imageURL
	payload.Inputs = []clarifaiInput{in}

	body, err := json.Marshal(payload)
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v2/models/%s/versions/%s/outputs", c.baseURL, c.modelID, c.version)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Verdict{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Key "+c.pat)

	resp, err := c.client.Do(req)
	if err != nil {
		return Verdict{}, fmt.Errorf("clarifai request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Verdict{}, fmt.Errorf("clarifai API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result clarifaiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return Verdict{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result.Outputs) == 0 {
		return Verdict{}, fmt.Errorf("clarifai returned no outputs: %s", result.Status.Description)
	}
	return Evaluate(result.Outputs[0].Data.Concepts, c.threshold), nil
}
