// package testing contains shared testing utilities and in-memory fakes for the external services
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// FReader simulates a failure when reading
type FReader struct{}

func (f *FReader) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

// FakeKMS is an in-memory stand-in for the KMS client.
//
// Ciphertext is the plaintext prefixed with the key ID, so it round-trips but never equals the plaintext.
type FakeKMS struct {
	mu       sync.Mutex
	keys     map[string]string // alias -> key ID
	next     int
	EncErr   error
	DecErr   error
	AliasErr error
}

// NewFakeKMS creates a fake with the given aliases already pointing at keys.
func NewFakeKMS(aliases ...string) *FakeKMS {
	f := &FakeKMS{keys: make(map[string]string)}
	for _, a := range aliases {
		f.next++
		f.keys[a] = fmt.Sprintf("key-%d", f.next)
	}
	return f
}

func (f *FakeKMS) Encrypt(ctx context.Context, params *kms.EncryptInput, optFns ...func(*kms.Options)) (*kms.EncryptOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.EncErr != nil {
		return nil, f.EncErr
	}
	keyID, ok := f.keys[aws.ToString(params.KeyId)]
	if !ok {
		return nil, &types.NotFoundException{Message: aws.String("alias not found")}
	}

	blob := append([]byte(keyID+":"), params.Plaintext...)
	return &kms.EncryptOutput{CiphertextBlob: blob, KeyId: aws.String(keyID)}, nil
}

func (f *FakeKMS) Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.DecErr != nil {
		return nil, f.DecErr
	}
	keyID, ok := f.keys[aws.ToString(params.KeyId)]
	if !ok {
		return nil, &types.NotFoundException{Message: aws.String("alias not found")}
	}

	prefix := []byte(keyID + ":")
	if len(params.CiphertextBlob) < len(prefix) || string(params.CiphertextBlob[:len(prefix)]) != string(prefix) {
		return nil, &types.InvalidCiphertextException{Message: aws.String("invalid ciphertext")}
	}
	return &kms.DecryptOutput{Plaintext: params.CiphertextBlob[len(prefix):], KeyId: aws.String(keyID)}, nil
}

func (f *FakeKMS) CreateKey(ctx context.Context, params *kms.CreateKeyInput, optFns ...func(*kms.Options)) (*kms.CreateKeyOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.next++
	keyID := fmt.Sprintf("key-%d", f.next)
	return &kms.CreateKeyOutput{KeyMetadata: &types.KeyMetadata{KeyId: aws.String(keyID), Description: params.Description}}, nil
}

func (f *FakeKMS) CreateAlias(ctx context.Context, params *kms.CreateAliasInput, optFns ...func(*kms.Options)) (*kms.CreateAliasOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.AliasErr != nil {
		return nil, f.AliasErr
	}
	alias := aws.ToString(params.AliasName)
	if _, exists := f.keys[alias]; exists {
		return nil, &types.AlreadyExistsException{Message: aws.String("alias exists")}
	}
	f.keys[alias] = aws.ToString(params.TargetKeyId)
	return &kms.CreateAliasOutput{}, nil
}

// KeyFor returns the key ID behind alias.
func (f *FakeKMS) KeyFor(alias string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.keys[alias]
	return id, ok
}

// FakeS3 records uploaded objects by "bucket/key".
type FakeS3 struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Types   map[string]string
	Err     error
}

func NewFakeS3() *FakeS3 {
	return &FakeS3{Objects: make(map[string][]byte), Types: make(map[string]string)}
}

func (f *FakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.Err != nil {
		return nil, f.Err
	}

	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	k := aws.ToString(params.Bucket) + "/" + aws.ToString(params.Key)
	f.Objects[k] = data
	f.Types[k] = aws.ToString(params.ContentType)
	return &s3.PutObjectOutput{}, nil
}

// FakeImageHost records uploads and returns "fake://<name>" URLs.
type FakeImageHost struct {
	mu      sync.Mutex
	Uploads map[string][]byte
	Types   map[string]string
	Err     error
}

func NewFakeImageHost() *FakeImageHost {
	return &FakeImageHost{Uploads: make(map[string][]byte), Types: make(map[string]string)}
}

func (f *FakeImageHost) Name() string { return "Fake" }

func (f *FakeImageHost) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.Uploads[name] = data
	f.Types[name] = contentType
	return "fake://" + name, nil
}

// JPEGHeader is enough of a JPEG file for content sniffing.
var JPEGHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

// PNGHeader is enough of a PNG file for content sniffing.
var PNGHeader = []byte("\x89PNG\x0D\x0A\x1A\x0A\x00\x00\x00\x0DIHDR")

// MustWriteFile writes data to path, failing the test on error.
func MustWriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
