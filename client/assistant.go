package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"dayflow/domain"
)

// AssistantRequest defines the structure for the assistant request API.
type AssistantRequest struct {
	Text    string                 `json:"text"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// AssistantResponse is the response from the assistant request API.
type AssistantResponse struct {
	Text string `json:"text"`
}

// ProcessRequest sends a natural-language request to the Dayflow server.
func (c *Client) ProcessRequest(req *AssistantRequest) (*AssistantResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal assistant request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/api/v1/assistant/request", c.baseURL)
	resp, err := c.httpClient.Post(reqURL, "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to send assistant request to API: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, fmt.Errorf("failed to read response body from assistant request (status %s): %w", resp.Status, readErr)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request to process assistant request failed with status %s: %s", resp.Status, string(bodyBytes))
	}

	var responseData AssistantResponse
	if err := json.Unmarshal(bodyBytes, &responseData); err != nil {
		return nil, fmt.Errorf("failed to decode API response for assistant request (status %s): %w. Full response body: %s", resp.Status, err, string(bodyBytes))
	}
	return &responseData, nil
}

// GetInsights fetches the aggregate insight scores from the latest analysis.
func (c *Client) GetInsights() (*domain.Insights, error) {
	reqURL := fmt.Sprintf("%s/api/v1/insights", c.baseURL)

	resp, err := c.httpClient.Get(reqURL)
	if err != nil {
		return nil, fmt.Errorf("failed to send get insights request to API: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, fmt.Errorf("failed to read response body from get insights request (status %s): %w", resp.Status, readErr)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request to get insights failed with status %s: %s", resp.Status, string(bodyBytes))
	}

	var responseData domain.Insights
	if err := json.Unmarshal(bodyBytes, &responseData); err != nil {
		return nil, fmt.Errorf("failed to decode API response for get insights (status %s): %w. Full response body: %s", resp.Status, err, string(bodyBytes))
	}
	return &responseData, nil
}
