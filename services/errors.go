package services

import (
	"errors"
	"fmt"
)

// Failure codes surfaced to callers. Input errors reject synchronously with
// no side effects; external-dependency errors abort the run without partial
// persistence; PERSIST_FAILED_AFTER_MINT is the one class that cannot be
// retried by replay and raises a reconciliation alert instead.
const (
	CodeNotFound            = "NOT_FOUND"
	CodeNotPass             = "NOT_PASS"
	CodeLocked              = "LOCKED"
	CodeIssuanceInProgress  = "ISSUANCE_IN_PROGRESS"
	CodeScoreOutOfRange     = "SCORE_OUT_OF_RANGE"
	CodeCategoryUnsupported = "COURSE_CATEGORY_UNSUPPORTED"
	CodeWalletMissing       = "WALLET_MISSING"
	CodeNoAIResult          = "NO_AI_RESULT"
	CodeDedupNotUnique      = "DEDUP_NOT_UNIQUE"
	CodeCertAlreadyIssued   = "CERT_ALREADY_ISSUED"
	CodeDecisionNotPending  = "DECISION_NOT_PENDING"
	CodeRenderFailed        = "RENDER_FAILED"
	CodeEvidenceStoreFailed = "EVIDENCE_STORE_FAILED"
	CodeMintFailed          = "MINT_FAILED"
	CodePersistAfterMint    = "PERSIST_FAILED_AFTER_MINT"
	CodeNetworkError        = "NETWORK_ERROR"
	CodeInternal            = "INTERNAL"
)

// PipelineError carries a typed failure code alongside the underlying error
type PipelineError struct {
	Code string
	Err  error
}

func (e *PipelineError) Error() string {
	if e.Err == nil {
		return e.Code
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

func pipelineErr(code string, err error) *PipelineError {
	return &PipelineError{Code: code, Err: err}
}

func pipelineErrf(code, format string, args ...interface{}) *PipelineError {
	return &PipelineError{Code: code, Err: fmt.Errorf(format, args...)}
}

// ErrorCode extracts the failure code from an error chain
func ErrorCode(err error) string {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return CodeInternal
}
