package gateway

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"
)

// WebhookEvent is the gateway's server-to-server payment notification.
// Delivery is at-least-once; duplicates are expected.
type WebhookEvent struct {
	OrderID         string    `json:"order_id"`
	Status          string    `json:"status"`
	TransactionDate time.Time `json:"transaction_date"`
	Checksum        string    `json:"checksum"`
}

// EventChecksum computes the gateway's event integrity checksum:
// hex sha256 over orderID + status + events secret.
func EventChecksum(orderID, status, secret string) string {
	sum := sha256.Sum256([]byte(orderID + status + secret))
	return hex.EncodeToString(sum[:])
}

// VerifyEvent reports whether the event's checksum matches the shared
// events secret. Constant-time comparison.
func VerifyEvent(event *WebhookEvent, secret string) bool {
	expected := EventChecksum(event.OrderID, event.Status, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(event.Checksum)) == 1
}
