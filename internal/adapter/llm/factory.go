package llm

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

// ModeMock selects the deterministic mock client.
const ModeMock = "MOCK"

// NewLLMClient creates an LLM client for the configured mode.
// If mode is MOCK, returns a MockClient; otherwise returns a real Client.
func NewLLMClient(mode, baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) LLMClient {
	if strings.EqualFold(mode, ModeMock) {
		logger.Info("mock mode detected, using mock LLM client")
		return NewMockClient()
	}
	return NewClient(baseURL, apiKey, timeout)
}
