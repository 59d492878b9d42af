package models

import (
	"crypto/sha256"
	"encoding/hex"
)

// Document identifies one uploaded PDF. The ID is the hex SHA-256 digest of the
// raw bytes, so identical uploads always resolve to the same document and
// re-uploading is a no-op against existing storage.
type Document struct {
	PdfID   string `json:"pdfId" firestore:"pdf_id"`
	PdfName string `json:"pdfName" firestore:"pdf_name"`
}

// HashBytes returns the content-addressed document ID for a PDF byte buffer.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// NewDocument builds a Document from an uploaded file's bytes and display name.
func NewDocument(name string, data []byte) Document {
	return Document{
		PdfID:   HashBytes(data),
		PdfName: name,
	}
}
