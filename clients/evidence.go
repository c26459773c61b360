package clients

import (
	"bytes"
	"certmint/config"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// EvidenceClient uploads artifacts to a Pinata-compatible content-addressed
// store. Pinning identical bytes twice returns the same content id, so the
// upload is safe to repeat.
type EvidenceClient struct {
	baseURL string
	apiKey  string
	http    *resty.Client
}

type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

// NewEvidenceClient builds a client from the global configuration
func NewEvidenceClient() *EvidenceClient {
	cfg := config.AppConfig
	return &EvidenceClient{
		baseURL: cfg.EvidenceBaseURL,
		apiKey:  cfg.EvidenceAPIKey,
		http:    resty.New().SetTimeout(time.Duration(cfg.ExternalTimeoutSecs) * time.Second),
	}
}

// Upload pins the content and returns its content identifier
func (e *EvidenceClient) Upload(content []byte, name string) (string, error) {
	resp, err := e.http.R().
		SetAuthToken(e.apiKey).
		SetFileReader("file", name, bytes.NewReader(content)).
		Post(e.baseURL + "/pinning/pinFileToIPFS")
	if err != nil {
		return "", fmt.Errorf("evidence store unreachable: %v", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("evidence upload failed: %d %s", resp.StatusCode(), resp.String())
	}

	var parsed pinResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", fmt.Errorf("invalid evidence response: %v", err)
	}
	if parsed.IpfsHash == "" {
		return "", fmt.Errorf("evidence upload returned empty content id")
	}
	return parsed.IpfsHash, nil
}
