// Package services wraps the external services used by the achievement tracker.
//
// # AWS Clients
//
// [DynamoDBClient], [KMSClient] and [S3Client] are the subsets of the AWS SDK clients the tracker calls.
// The SDK clients satisfy them (checked at compile time) and tests substitute in-memory fakes.
// [NewDynamoDBClient], [NewKMSClient] and [NewS3Client] build SDK clients from the database config,
// using static credentials and a custom endpoint when configured.
//
// # Password Cipher
//
// [KMSCipher] implements [PasswordCipher] by delegating all cryptographic work to a KMS key alias.
// Ciphertext is stored base64 encoded. Failures wrap [shared.ErrEncryption] or [shared.ErrDecryption];
// a failed decrypt is never an empty password.
//
// # Image Hosts
//
// Every [ImageHost] uploads an image under a name and returns a URL that can be stored on an achievement:
//   - [DriveImageHost] : Google Drive upload followed by a public "reader" permission
//   - [S3ImageHost] : S3 PutObject, returning the object URL
//   - [LocalImageHost] : copy into a directory, returning a file:// URL
//
// The Drive host authenticates with an OAuth token obtained through the loopback flow in the server package
// and cached on disk by [TokenStore].
package services
