package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"
)

const (
	correctPath = "/correct"
	lettersPath = "/letters"

	maxResponseBytes = 1 << 20
)

// Service talks to the correction and letter-generation HTTP services. It makes
// exactly one attempt per call; callers decide what a failure means.
type Service struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewService(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Service{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (s *Service) Correct(ctx context.Context, req CorrectionRequest) (*CorrectionResponse, error) {
	var resp CorrectionResponse
	if err := s.postJSON(ctx, correctPath, req, &resp); err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.CorrectedText) == "" {
		return nil, &MalformedResponseError{Reason: "correctedText is empty"}
	}
	return &resp, nil
}

func (s *Service) GenerateLetter(ctx context.Context, req LetterRequest) (*LetterResponse, error) {
	var resp LetterResponse
	if err := s.postJSON(ctx, lettersPath, req, &resp); err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.LetterText) == "" {
		return nil, &MalformedResponseError{Reason: "letterText is empty"}
	}
	return &resp, nil
}

func (s *Service) postJSON(ctx context.Context, path string, body, dest any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	s.logger.Debug("remote service request", "path", path, "bytes", len(data))

	requestStart := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Debug("remote service transport error", "path", path, "error", err, "elapsed", time.Since(requestStart))
		return &NetworkError{Op: "POST " + path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &NetworkError{Op: "reading " + path + " response", Err: err}
	}

	s.logger.Debug("remote service response", "path", path, "status", resp.StatusCode, "bytes", len(respBody), "elapsed", time.Since(requestStart))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RemoteServiceError{Status: resp.StatusCode, Body: truncateStr(string(respBody), 200)}
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "application/json" {
		return &MalformedResponseError{Reason: fmt.Sprintf("unexpected content type %q", contentType)}
	}

	if err := json.Unmarshal(respBody, dest); err != nil {
		return &MalformedResponseError{Reason: "decoding body", Err: err}
	}
	return nil
}
