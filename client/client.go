package client

import (
	"fmt"
	"net/http"
	"time"

	"dayflow/common"
)

// Client is a client for the Dayflow API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Dayflow API client.
func NewClient() *Client {
	return &Client{
		baseURL: fmt.Sprintf("http://localhost:%d", common.GetServerPort()),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}
