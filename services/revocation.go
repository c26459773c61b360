package services

import (
	"log"
	"time"

	certModels "certmint/models/cert"

	"gorm.io/gorm"
)

// RevocationService flips certificates to revoked. The local status is
// authoritative for access control; the on-chain revoke is attempted but a
// failure there never leaves the certificate active.
type RevocationService struct {
	DB       *gorm.DB
	Minter   Minter
	Contract string
}

// NewRevocationService wires the revocation service
func NewRevocationService(db *gorm.DB, minter Minter, contract string) *RevocationService {
	return &RevocationService{DB: db, Minter: minter, Contract: contract}
}

// Revoke marks the certificate revoked and optionally attempts the on-chain
// revoke/burn. Idempotent: revoking an already-revoked certificate is a
// no-op that still writes an audit entry.
func (s *RevocationService) Revoke(certificateID uint, reason string, actorID *uint, attemptOnchain bool) (*certModels.Certificate, error) {
	var certificate certModels.Certificate
	if err := s.DB.Where("id = ? AND is_deleted = ?", certificateID, false).First(&certificate).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pipelineErrf(CodeNotFound, "certificate %d not found", certificateID)
		}
		return nil, err
	}

	if certificate.Revoked {
		LogAudit(s.DB, actorID, certModels.ActionCertificateRevoked, "Certificate", itoa(certificate.ID), map[string]interface{}{
			"reason":         reason,
			"alreadyRevoked": true,
		})
		return &certificate, nil
	}

	if reason == "" {
		reason = "No reason provided"
	}

	now := time.Now()
	certificate.Revoked = true
	certificate.RevokedAt = &now
	certificate.RevocationReason = reason

	var onchainErr error
	if attemptOnchain && certificate.TokenID != "" {
		txHash, err := s.Minter.Revoke(s.Contract, certificate.TokenID)
		if err != nil {
			// Local revocation stands; the tx is retried later
			onchainErr = err
			msg := err.Error()
			certificate.RevocationError = &msg
			certificate.OnchainRevokePending = true
			log.Printf("[REVOKE] On-chain revoke failed for certificate %d: %v", certificate.ID, err)
		} else {
			certificate.RevocationTxHash = &txHash
		}
	}

	if err := s.DB.Save(&certificate).Error; err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"reason":         reason,
		"attemptOnchain": attemptOnchain,
		"tokenId":        certificate.TokenID,
	}
	if onchainErr != nil {
		payload["onchainError"] = onchainErr.Error()
	}
	if certificate.RevocationTxHash != nil {
		payload["revocationTxHash"] = *certificate.RevocationTxHash
	}
	LogAudit(s.DB, actorID, certModels.ActionCertificateRevoked, "Certificate", itoa(certificate.ID), payload)

	return &certificate, nil
}

// WriteOnchain retries the on-chain revoke for a certificate whose earlier
// attempt failed, supplying the missing transaction hash
func (s *RevocationService) WriteOnchain(certificateID uint, actorID *uint) (*certModels.Certificate, error) {
	var certificate certModels.Certificate
	if err := s.DB.Where("id = ? AND is_deleted = ?", certificateID, false).First(&certificate).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pipelineErrf(CodeNotFound, "certificate %d not found", certificateID)
		}
		return nil, err
	}
	if !certificate.Revoked {
		return nil, pipelineErrf(CodeDecisionNotPending, "certificate %d is not revoked", certificateID)
	}
	if !certificate.OnchainRevokePending {
		return &certificate, nil
	}

	txHash, err := s.Minter.Revoke(s.Contract, certificate.TokenID)
	if err != nil {
		msg := err.Error()
		certificate.RevocationError = &msg
		if saveErr := s.DB.Save(&certificate).Error; saveErr != nil {
			log.Printf("[REVOKE] Failed to record retry error for certificate %d: %v", certificate.ID, saveErr)
		}
		return nil, pipelineErr(CodeMintFailed, err)
	}

	certificate.RevocationTxHash = &txHash
	certificate.RevocationError = nil
	certificate.OnchainRevokePending = false
	if err := s.DB.Save(&certificate).Error; err != nil {
		return nil, err
	}

	LogAudit(s.DB, actorID, certModels.ActionCertificateRevoked, "Certificate", itoa(certificate.ID), map[string]interface{}{
		"onchainRetry":     true,
		"revocationTxHash": txHash,
	})
	return &certificate, nil
}
