package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"dayflow/domain"
)

// GetAnalysis fetches the latest timeline analysis from the Dayflow server.
func (c *Client) GetAnalysis() (*domain.TimelineAnalysis, error) {
	reqURL := fmt.Sprintf("%s/api/v1/analysis", c.baseURL)

	resp, err := c.httpClient.Get(reqURL)
	if err != nil {
		return nil, fmt.Errorf("failed to send get analysis request to API: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, fmt.Errorf("failed to read response body from get analysis request (status %s): %w", resp.Status, readErr)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request to get analysis failed with status %s: %s", resp.Status, string(bodyBytes))
	}

	var responseData domain.TimelineAnalysis
	if err := json.Unmarshal(bodyBytes, &responseData); err != nil {
		return nil, fmt.Errorf("failed to decode API response for get analysis (status %s): %w. Full response body: %s", resp.Status, err, string(bodyBytes))
	}
	return &responseData, nil
}

// TriggerAnalysis asks the Dayflow server to run an analysis cycle soon.
func (c *Client) TriggerAnalysis() error {
	reqURL := fmt.Sprintf("%s/api/v1/analysis/trigger", c.baseURL)

	resp, err := c.httpClient.Post(reqURL, "application/json", nil)
	if err != nil {
		return fmt.Errorf("failed to send trigger analysis request to API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API request to trigger analysis failed with status %s: %s", resp.Status, string(bodyBytes))
	}
	return nil
}

// GetRecentActionsResponse is the response from the recent actions API.
type GetRecentActionsResponse struct {
	Actions []domain.ProactiveActionRecord `json:"actions"`
}

// GetRecentActions fetches the most recent proactive action records.
func (c *Client) GetRecentActions(limit int) (*GetRecentActionsResponse, error) {
	reqURL := fmt.Sprintf("%s/api/v1/actions?limit=%d", c.baseURL, limit)

	resp, err := c.httpClient.Get(reqURL)
	if err != nil {
		return nil, fmt.Errorf("failed to send get actions request to API: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, fmt.Errorf("failed to read response body from get actions request (status %s): %w", resp.Status, readErr)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request to get actions failed with status %s: %s", resp.Status, string(bodyBytes))
	}

	var responseData GetRecentActionsResponse
	if err := json.Unmarshal(bodyBytes, &responseData); err != nil {
		return nil, fmt.Errorf("failed to decode API response for get actions (status %s): %w. Full response body: %s", resp.Status, err, string(bodyBytes))
	}
	return &responseData, nil
}

// SetProactiveMode enables or disables autonomous proactive actions.
func (c *Client) SetProactiveMode(enabled bool) error {
	reqURL := fmt.Sprintf("%s/api/v1/proactive", c.baseURL)
	payload := fmt.Sprintf(`{"enabled": %t}`, enabled)

	req, err := http.NewRequest(http.MethodPut, reqURL, strings.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build set proactive mode request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send set proactive mode request to API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API request to set proactive mode failed with status %s: %s", resp.Status, string(bodyBytes))
	}
	return nil
}

// GetSuggestionsResponse is the response from the pending suggestions API.
type GetSuggestionsResponse struct {
	Suggestions []domain.Suggestion `json:"suggestions"`
}

// GetSuggestions fetches the pending suggestions awaiting review.
func (c *Client) GetSuggestions() (*GetSuggestionsResponse, error) {
	reqURL := fmt.Sprintf("%s/api/v1/suggestions", c.baseURL)

	resp, err := c.httpClient.Get(reqURL)
	if err != nil {
		return nil, fmt.Errorf("failed to send get suggestions request to API: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, fmt.Errorf("failed to read response body from get suggestions request (status %s): %w", resp.Status, readErr)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request to get suggestions failed with status %s: %s", resp.Status, string(bodyBytes))
	}

	var responseData GetSuggestionsResponse
	if err := json.Unmarshal(bodyBytes, &responseData); err != nil {
		return nil, fmt.Errorf("failed to decode API response for get suggestions (status %s): %w. Full response body: %s", resp.Status, err, string(bodyBytes))
	}
	return &responseData, nil
}

// ApproveSuggestion applies a pending suggestion's changes.
func (c *Client) ApproveSuggestion(suggestionID string) error {
	return c.reviewSuggestion(suggestionID, "approve")
}

// DismissSuggestion marks a pending suggestion as reviewed without applying it.
func (c *Client) DismissSuggestion(suggestionID string) error {
	return c.reviewSuggestion(suggestionID, "dismiss")
}

func (c *Client) reviewSuggestion(suggestionID, verb string) error {
	reqURL := fmt.Sprintf("%s/api/v1/suggestions/%s/%s", c.baseURL, suggestionID, verb)

	resp, err := c.httpClient.Post(reqURL, "application/json", nil)
	if err != nil {
		return fmt.Errorf("failed to send %s suggestion request to API: %w", verb, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("API request to %s suggestion failed with status %s and could not read response body: %w", verb, resp.Status, readErr)
		}
		var errorResponse struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(bodyBytes, &errorResponse) == nil && errorResponse.Error != "" {
			return fmt.Errorf("API request to %s suggestion failed with status %s: %s", verb, resp.Status, errorResponse.Error)
		}
		return fmt.Errorf("API request to %s suggestion failed with status %s: %s", verb, resp.Status, string(bodyBytes))
	}
	return nil
}
