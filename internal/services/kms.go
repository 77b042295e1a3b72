package services

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/desertthunder/achieve/internal/shared"
)

// KeyDescription is attached to the key created by [KMSCipher.ProvisionKey].
const KeyDescription = "Key for protecting DynamoDB Achieve_Account passwords."

// KMSCipher implements [PasswordCipher] with a KMS key alias. No cryptography happens locally.
type KMSCipher struct {
	client KMSClient
	alias  string
}

// NewKMSCipher creates a cipher for the key behind alias, defaulting to [shared.DefaultKeyAlias].
func NewKMSCipher(client KMSClient, alias string) *KMSCipher {
	if alias == "" {
		alias = shared.DefaultKeyAlias
	}
	return &KMSCipher{client: client, alias: alias}
}

func (c *KMSCipher) Alias() string { return c.alias }

// Encrypt encrypts the UTF-8 bytes of plaintext and returns the base64 (standard encoding) ciphertext.
func (c *KMSCipher) Encrypt(ctx context.Context, plaintext string) (string, error) {
	out, err := c.client.Encrypt(ctx, &kms.EncryptInput{
		KeyId:     aws.String(c.alias),
		Plaintext: []byte(plaintext),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrEncryption, err)
	}
	return base64.StdEncoding.EncodeToString(out.CiphertextBlob), nil
}

// Decrypt decodes the base64 ciphertext and decrypts it with KMS.
func (c *KMSCipher) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: invalid ciphertext encoding: %v", shared.ErrDecryption, err)
	}

	out, err := c.client.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob: blob,
		KeyId:          aws.String(c.alias),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrDecryption, err)
	}
	return string(out.Plaintext), nil
}

// ProvisionKey creates a symmetric key and points the cipher's alias at it.
//
// The key ID is returned even when only the alias step fails, so the key can be aliased by hand.
func (c *KMSCipher) ProvisionKey(ctx context.Context) (string, error) {
	out, err := c.client.CreateKey(ctx, &kms.CreateKeyInput{
		Description: aws.String(KeyDescription),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create key: %w", err)
	}

	keyID := aws.ToString(out.KeyMetadata.KeyId)
	if _, err := c.client.CreateAlias(ctx, &kms.CreateAliasInput{
		AliasName:   aws.String(c.alias),
		TargetKeyId: aws.String(keyID),
	}); err != nil {
		return keyID, fmt.Errorf("failed to create alias %s for key %s: %w", c.alias, keyID, err)
	}
	return keyID, nil
}
