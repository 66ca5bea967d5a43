package hashchain

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ReceiptSigner produces HMAC signatures for ingestion acknowledgements so a
// submitter can later prove what the ledger accepted and when.
type ReceiptSigner struct {
	secretKey []byte
}

// NewReceiptSigner creates a signer with the given shared secret.
func NewReceiptSigner(secretKey string) *ReceiptSigner {
	return &ReceiptSigner{
		secretKey: []byte(secretKey),
	}
}

// Sign returns the signature over an ingestion receipt's identifying fields.
func (s *ReceiptSigner) Sign(ingestionID string, acceptedAt time.Time, idempotencyKey, payloadHash string) string {
	payload := ingestionID + acceptedAt.Format(time.RFC3339Nano) + idempotencyKey + payloadHash
	h := hmac.New(sha256.New, s.secretKey)
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}

// Verify checks a receipt signature in constant time.
func (s *ReceiptSigner) Verify(ingestionID string, acceptedAt time.Time, idempotencyKey, payloadHash, signature string) bool {
	expected := s.Sign(ingestionID, acceptedAt, idempotencyKey, payloadHash)
	return hmac.Equal([]byte(expected), []byte(signature))
}
