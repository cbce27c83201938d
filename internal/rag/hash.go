package rag

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"drive-rag-chatbot/models"
)

// TextHash returns a short stable digest of text, truncated to 16 hex
// characters. Used only for change detection, not for security.
func TextHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:16]
}

// DocumentHash fingerprints a document by its ID and content hash, so any
// content change (or re-keyed file) yields a different value.
func DocumentHash(doc models.Document) string {
	combined := fmt.Sprintf("%s:%s", doc.ID, TextHash(doc.Content))
	sum := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(sum[:])[:16]
}
