package services

import (
	"bufio"
	"context"
	"io"
	"net/http"
)

// DefaultContentType is used when an image's type cannot be detected.
const DefaultContentType = "image/jpeg"

// PasswordCipher encrypts and decrypts account passwords.
type PasswordCipher interface {
	// Encrypt returns the encoded ciphertext for a plaintext password.
	Encrypt(ctx context.Context, plaintext string) (string, error)

	// Decrypt reverses Encrypt.
	Decrypt(ctx context.Context, ciphertext string) (string, error)
}

// ImageHost stores an image and returns a URL for it.
type ImageHost interface {
	// Upload stores the content of r under name and returns a shareable URL.
	Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error)

	// Name returns the name of the host (e.g., "Google Drive", "S3")
	Name() string
}

// DetectContentType sniffs the first 512 bytes of r. The returned reader yields the full content, including the sniffed bytes.
func DetectContentType(r io.Reader) (string, io.Reader, error) {
	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return "", nil, err
	}

	ct := http.DetectContentType(head)
	switch ct {
	case "image/jpeg", "image/png", "image/gif", "image/webp", "image/bmp":
		return ct, br, nil
	default:
		return DefaultContentType, br, nil
	}
}
