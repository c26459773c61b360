package clients

import (
	"certmint/config"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrDedupUnreachable marks transport-level failures of the duplicate
// detection service, as opposed to the service rejecting the request. The
// pipeline fails open on this error only.
var ErrDedupUnreachable = errors.New("dedup service unreachable")

// DedupCandidate is one similar previously-issued certificate
type DedupCandidate struct {
	CertificateID string  `json:"certificateId"`
	DocHash       string  `json:"docHash"`
	Similarity    float64 `json:"similarity"`
	TextPreview   string  `json:"textPreview"`
}

// DedupOutcome is the tri-state result of a duplicate check
type DedupOutcome struct {
	Status          string // unique, duplicate, suspected_copy
	SimilarityScore float64
	Candidates      []DedupCandidate
}

type dedupCheckRequest struct {
	DocHash     string `json:"docHash"`
	TextPreview string `json:"textPreview"`
	Options     struct {
		Threshold float64 `json:"threshold"`
		TopK      int     `json:"topK"`
	} `json:"options"`
}

type dedupCheckResponse struct {
	IsExactDuplicate bool             `json:"isExactDuplicate"`
	ExactMatch       *DedupCandidate  `json:"exactMatch"`
	Candidates       []DedupCandidate `json:"candidates"`
}

type dedupDecisionRequest struct {
	CheckID   string `json:"checkId"`
	Decision  string `json:"decision"`
	DecidedBy string `json:"decidedBy"`
	Note      string `json:"note,omitempty"`
}

// DedupClient talks to the AI duplicate-detection service. Requests are
// HMAC-signed with the shared secret via the x-signature header.
type DedupClient struct {
	baseURL            string
	secret             string
	topK               int
	thresholdUnique    float64
	thresholdDuplicate float64
	http               *resty.Client
}

// NewDedupClient builds a client from the global configuration
func NewDedupClient() *DedupClient {
	cfg := config.AppConfig
	return &DedupClient{
		baseURL:            cfg.DedupBaseURL,
		secret:             cfg.DedupSecret,
		topK:               cfg.DedupTopK,
		thresholdUnique:    cfg.ThresholdUnique,
		thresholdDuplicate: cfg.ThresholdDuplicate,
		http:               resty.New().SetTimeout(time.Duration(cfg.ExternalTimeoutSecs) * time.Second),
	}
}

func (d *DedupClient) sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(d.secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Check submits a fingerprint and content preview and classifies the answer
// against the configured thresholds
func (d *DedupClient) Check(fingerprint, textPreview string) (DedupOutcome, error) {
	req := dedupCheckRequest{DocHash: fingerprint, TextPreview: textPreview}
	req.Options.Threshold = d.thresholdUnique
	req.Options.TopK = d.topK

	body, err := json.Marshal(req)
	if err != nil {
		return DedupOutcome{}, err
	}

	resp, err := d.http.R().
		SetHeader("Content-Type", "application/json").
		SetHeader("x-signature", d.sign(body)).
		SetBody(body).
		Post(d.baseURL + "/ai/dedup/check")
	if err != nil {
		return DedupOutcome{}, fmt.Errorf("%w: %v", ErrDedupUnreachable, err)
	}
	if resp.StatusCode() != 200 {
		return DedupOutcome{}, fmt.Errorf("dedup check rejected: %d %s", resp.StatusCode(), resp.String())
	}

	var parsed dedupCheckResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return DedupOutcome{}, fmt.Errorf("invalid dedup response: %v", err)
	}

	return d.classify(parsed), nil
}

// classify maps the service answer onto the finding statuses. An exact flag
// or a top similarity at/above the duplicate threshold is a duplicate; a
// score in the band between the two thresholds is a suspected copy.
func (d *DedupClient) classify(resp dedupCheckResponse) DedupOutcome {
	out := DedupOutcome{Status: "unique", Candidates: resp.Candidates}

	if resp.ExactMatch != nil {
		out.Candidates = append([]DedupCandidate{*resp.ExactMatch}, out.Candidates...)
	}
	for _, c := range out.Candidates {
		if c.Similarity > out.SimilarityScore {
			out.SimilarityScore = c.Similarity
		}
	}

	switch {
	case resp.IsExactDuplicate || out.SimilarityScore >= d.thresholdDuplicate:
		out.Status = "duplicate"
	case out.SimilarityScore >= d.thresholdUnique:
		out.Status = "suspected_copy"
	}
	return out
}

// Decision forwards an admin ALLOW/BLOCK verdict to the detection service
// so its corpus can learn from the adjudication
func (d *DedupClient) Decision(checkID, decision, decidedBy, note string) error {
	body, err := json.Marshal(dedupDecisionRequest{
		CheckID:   checkID,
		Decision:  decision,
		DecidedBy: decidedBy,
		Note:      note,
	})
	if err != nil {
		return err
	}

	resp, err := d.http.R().
		SetHeader("Content-Type", "application/json").
		SetHeader("x-signature", d.sign(body)).
		SetBody(body).
		Post(d.baseURL + "/ai/dedup/decision")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDedupUnreachable, err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("dedup decision rejected: %d %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// Health pings the detection service
func (d *DedupClient) Health() error {
	resp, err := d.http.R().Get(d.baseURL + "/ai/health")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDedupUnreachable, err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("dedup health check failed: %d", resp.StatusCode())
	}
	return nil
}
