package clients

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDedupClient(baseURL string) *DedupClient {
	return &DedupClient{
		baseURL:            baseURL,
		secret:             "test-secret",
		topK:               5,
		thresholdUnique:    0.85,
		thresholdDuplicate: 0.97,
		http:               resty.New().SetTimeout(2 * time.Second),
	}
}

func TestDedupCheckSignsRequest(t *testing.T) {
	var gotSignature string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ai/dedup/check", r.URL.Path)
		gotSignature = r.Header.Get("x-signature")
		gotBody, _ = io.ReadAll(r.Body)
		json.NewEncoder(w).Encode(dedupCheckResponse{})
	}))
	defer srv.Close()

	client := testDedupClient(srv.URL)
	out, err := client.Check("abc123", "certificate preview text")
	require.NoError(t, err)
	assert.Equal(t, "unique", out.Status)

	mac := hmac.New(sha256.New, []byte("test-secret"))
	mac.Write(gotBody)
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), gotSignature)

	var req dedupCheckRequest
	require.NoError(t, json.Unmarshal(gotBody, &req))
	assert.Equal(t, "abc123", req.DocHash)
	assert.Equal(t, "certificate preview text", req.TextPreview)
	assert.Equal(t, 0.85, req.Options.Threshold)
	assert.Equal(t, 5, req.Options.TopK)
}

func TestDedupCheckClassifiesExactMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(dedupCheckResponse{
			IsExactDuplicate: true,
			ExactMatch:       &DedupCandidate{CertificateID: "CERT-17", Similarity: 1.0},
		})
	}))
	defer srv.Close()

	out, err := testDedupClient(srv.URL).Check("abc", "text")
	require.NoError(t, err)
	assert.Equal(t, "duplicate", out.Status)
	assert.Equal(t, 1.0, out.SimilarityScore)
	require.Len(t, out.Candidates, 1)
	assert.Equal(t, "CERT-17", out.Candidates[0].CertificateID)
}

func TestDedupCheckClassifiesByThresholds(t *testing.T) {
	cases := []struct {
		name       string
		similarity float64
		status     string
	}{
		{"below unique threshold", 0.5, "unique"},
		{"just under band", 0.84, "unique"},
		{"in the band", 0.9, "suspected_copy"},
		{"at duplicate threshold", 0.97, "duplicate"},
		{"above duplicate threshold", 0.99, "duplicate"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(dedupCheckResponse{
					Candidates: []DedupCandidate{{CertificateID: "CERT-1", Similarity: tc.similarity}},
				})
			}))
			defer srv.Close()

			out, err := testDedupClient(srv.URL).Check("abc", "text")
			require.NoError(t, err)
			assert.Equal(t, tc.status, out.Status)
			assert.Equal(t, tc.similarity, out.SimilarityScore)
		})
	}
}

func TestDedupCheckUnreachable(t *testing.T) {
	client := testDedupClient("http://127.0.0.1:1")

	_, err := client.Check("abc", "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDedupUnreachable)
}

func TestDedupCheckRejectedIsNotUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testDedupClient(srv.URL).Check("abc", "text")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDedupUnreachable)
}

func TestDedupHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ai/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, testDedupClient(srv.URL).Health())

	err := testDedupClient("http://127.0.0.1:1").Health()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDedupUnreachable)
}

func TestDedupDecisionForwardsVerdict(t *testing.T) {
	var req dedupDecisionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ai/dedup/decision", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &req))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := testDedupClient(srv.URL).Decision("check-1", "BLOCK", "admin", "confirmed forgery")
	require.NoError(t, err)
	assert.Equal(t, "check-1", req.CheckID)
	assert.Equal(t, "BLOCK", req.Decision)
	assert.Equal(t, "admin", req.DecidedBy)
	assert.Equal(t, "confirmed forgery", req.Note)
}
