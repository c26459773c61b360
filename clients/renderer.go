package clients

import (
	"certmint/config"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Render modes
const (
	RenderModePreview = "preview"
	RenderModeFinal   = "final"
)

// CertificateData is the structured input of the document renderer. The
// renderer is deterministic for identical input, which is what makes the
// preview fingerprint comparable across repeated previews.
type CertificateData struct {
	StudentName    string `json:"student_name"`
	StudentDOB     string `json:"student_dob"`
	StudentIDCard  string `json:"student_idcard,omitempty"`
	CourseTitle    string `json:"course_title"`
	ExamScore      string `json:"exam_score"`
	CompletionDate string `json:"completion_date"`
	IssueDate      string `json:"issue_date"`
	// CertificateCode and VerifyURL are only set for final renders, which is
	// why the final artifact hashes differently from the preview.
	CertificateCode string `json:"certificate_code,omitempty"`
	IssuerName      string `json:"issuer_name"`
	VerifyURL       string `json:"verify_url,omitempty"`
}

type renderRequest struct {
	Data CertificateData `json:"data"`
	Mode string          `json:"mode"`
}

type renderResponse struct {
	Status string `json:"status"`
	PDF    struct {
		Base64 string `json:"base64"`
	} `json:"pdf"`
}

// RendererClient talks to the LaTeX certificate rendering service
type RendererClient struct {
	baseURL string
	http    *resty.Client
}

// NewRendererClient builds a client from the global configuration
func NewRendererClient() *RendererClient {
	cfg := config.AppConfig
	return &RendererClient{
		baseURL: cfg.RendererBaseURL,
		http:    resty.New().SetTimeout(time.Duration(cfg.ExternalTimeoutSecs) * time.Second),
	}
}

// Render produces the certificate PDF for the given data and mode
func (r *RendererClient) Render(data CertificateData, mode string) ([]byte, error) {
	resp, err := r.http.R().
		SetHeader("Content-Type", "application/json").
		SetBody(renderRequest{Data: data, Mode: mode}).
		Post(r.baseURL + "/render")
	if err != nil {
		return nil, fmt.Errorf("renderer unreachable: %v", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("render failed: %d %s", resp.StatusCode(), resp.String())
	}

	var parsed renderResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("invalid render response: %v", err)
	}

	pdf, err := base64.StdEncoding.DecodeString(parsed.PDF.Base64)
	if err != nil {
		return nil, fmt.Errorf("invalid render payload: %v", err)
	}
	return pdf, nil
}
