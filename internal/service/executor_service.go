package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"redcodegreencode/internal/model"
)

// ErrExecutionFailed hides upstream details from clients
var ErrExecutionFailed = errors.New("execution failed")

// languageAliases maps client language names onto Piston runtimes
var languageAliases = map[string]string{
	"python": "python3",
	"c":      "c",
	"cpp":    "cpp",
	"java":   "java",
}

// ExecutorService proxies code execution to the Piston API. The
// upstream is consumed as an opaque run-code-get-stdout service and
// its response body is relayed verbatim.
type ExecutorService struct {
	url        string
	httpClient *http.Client
}

// NewExecutorService creates a new execution proxy
func NewExecutorService(url string) *ExecutorService {
	return &ExecutorService{
		url: url,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type pistonFile struct {
	Content string `json:"content"`
}

type pistonRequest struct {
	Language string       `json:"language"`
	Version  string       `json:"version"`
	Files    []pistonFile `json:"files"`
	Stdin    string       `json:"stdin"`
}

// Execute runs the submitted code upstream and returns the raw
// response JSON.
func (s *ExecutorService) Execute(ctx context.Context, req *model.ExecuteRequest) (json.RawMessage, error) {
	language := req.Language
	if alias, ok := languageAliases[language]; ok {
		language = alias
	}

	body, err := json.Marshal(pistonRequest{
		Language: language,
		Version:  "*",
		Files:    []pistonFile{{Content: req.Code}},
		Stdin:    req.Stdin,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		log.Printf("[EXECUTE] upstream call failed: %v", err)
		return nil, ErrExecutionFailed
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[EXECUTE] failed to read upstream response: %v", err)
		return nil, ErrExecutionFailed
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[EXECUTE] upstream returned %d: %s", resp.StatusCode, data)
		return nil, ErrExecutionFailed
	}

	return json.RawMessage(data), nil
}
