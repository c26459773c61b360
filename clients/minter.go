package clients

import (
	"certmint/config"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrMinterUnreachable marks transport-level failures of the signer service
var ErrMinterUnreachable = errors.New("minter service unreachable")

// MintReceipt is the confirmed result of a mint transaction
type MintReceipt struct {
	TxHash  string `json:"txHash"`
	TokenID string `json:"tokenId"`
}

type mintRequest struct {
	Contract string `json:"contract"`
	To       string `json:"to"`
	TokenURI string `json:"tokenUri"`
}

type revokeRequest struct {
	Contract string `json:"contract"`
	TokenID  string `json:"tokenId"`
}

type revokeResponse struct {
	TxHash string `json:"txHash"`
}

// MinterClient talks to the blockchain signer service that holds the issuer
// wallet. Transaction signing and RPC details live behind that service; this
// client only consumes its narrow mint/revoke contract.
type MinterClient struct {
	baseURL string
	http    *resty.Client
}

// NewMinterClient builds a client from the global configuration
func NewMinterClient() *MinterClient {
	cfg := config.AppConfig
	return &MinterClient{
		baseURL: cfg.MinterBaseURL,
		http:    resty.New().SetTimeout(time.Duration(cfg.ExternalTimeoutSecs) * time.Second),
	}
}

// Mint submits a mint transaction and waits for its receipt
func (m *MinterClient) Mint(contract, to, tokenURI string) (MintReceipt, error) {
	resp, err := m.http.R().
		SetHeader("Content-Type", "application/json").
		SetBody(mintRequest{Contract: contract, To: to, TokenURI: tokenURI}).
		Post(m.baseURL + "/mint")
	if err != nil {
		return MintReceipt{}, fmt.Errorf("%w: %v", ErrMinterUnreachable, err)
	}
	if resp.StatusCode() != 200 {
		return MintReceipt{}, fmt.Errorf("mint rejected: %d %s", resp.StatusCode(), resp.String())
	}

	var receipt MintReceipt
	if err := json.Unmarshal(resp.Body(), &receipt); err != nil {
		return MintReceipt{}, fmt.Errorf("invalid mint response: %v", err)
	}
	if receipt.TokenID == "" {
		return MintReceipt{}, fmt.Errorf("mint confirmed without token id, tx %s", receipt.TxHash)
	}
	return receipt, nil
}

// Revoke revokes the token on chain, falling back to burn for contracts
// that do not expose a revoke function
func (m *MinterClient) Revoke(contract, tokenID string) (string, error) {
	txHash, err := m.call("/revoke", revokeRequest{Contract: contract, TokenID: tokenID})
	if err == nil {
		return txHash, nil
	}
	if errors.Is(err, ErrMinterUnreachable) {
		return "", err
	}
	return m.call("/burn", revokeRequest{Contract: contract, TokenID: tokenID})
}

func (m *MinterClient) call(path string, body revokeRequest) (string, error) {
	resp, err := m.http.R().
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(m.baseURL + path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMinterUnreachable, err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("call %s rejected: %d %s", path, resp.StatusCode(), resp.String())
	}

	var parsed revokeResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", fmt.Errorf("invalid response from %s: %v", path, err)
	}
	return parsed.TxHash, nil
}
