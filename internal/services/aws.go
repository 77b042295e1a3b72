package services

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/desertthunder/achieve/internal/shared"
)

const defaultRegion = "us-east-1"

// DynamoDBClient is the subset of the DynamoDB API used by the remote store.
type DynamoDBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// KMSClient is the subset of the KMS API used for password encryption and key provisioning.
type KMSClient interface {
	Encrypt(ctx context.Context, params *kms.EncryptInput, optFns ...func(*kms.Options)) (*kms.EncryptOutput, error)
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
	CreateKey(ctx context.Context, params *kms.CreateKeyInput, optFns ...func(*kms.Options)) (*kms.CreateKeyOutput, error)
	CreateAlias(ctx context.Context, params *kms.CreateAliasInput, optFns ...func(*kms.Options)) (*kms.CreateAliasOutput, error)
}

// S3Client is the subset of the S3 API used by [S3ImageHost].
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var (
	_ DynamoDBClient = (*dynamodb.Client)(nil)
	_ KMSClient      = (*kms.Client)(nil)
	_ S3Client       = (*s3.Client)(nil)
)

// loadAWSConfig uses static credentials when both keys are set and the default provider chain otherwise.
func loadAWSConfig(ctx context.Context, region, accessKey, secretKey string) (aws.Config, error) {
	if region == "" {
		region = defaultRegion
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("%w: failed to load AWS config: %v", shared.ErrInvalidConfig, err)
	}
	return cfg, nil
}

// NewDynamoDBClient builds a DynamoDB client from the dynamodb config section.
func NewDynamoDBClient(ctx context.Context, c shared.DynamoDBConfig) (*dynamodb.Client, error) {
	access, secret := c.Credentials()
	cfg, err := loadAWSConfig(ctx, c.Region, access, secret)
	if err != nil {
		return nil, err
	}

	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
	}), nil
}

// NewKMSClient builds a KMS client from the kms config section.
func NewKMSClient(ctx context.Context, c shared.KMSConfig) (*kms.Client, error) {
	access, secret := c.Credentials()
	cfg, err := loadAWSConfig(ctx, c.Region, access, secret)
	if err != nil {
		return nil, err
	}

	return kms.NewFromConfig(cfg, func(o *kms.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
	}), nil
}

// NewS3Client builds an S3 client for the image bucket. It reuses the DynamoDB credentials.
func NewS3Client(ctx context.Context, c shared.DynamoDBConfig, images shared.ImagesConfig) (*s3.Client, error) {
	access, secret := c.Credentials()
	cfg, err := loadAWSConfig(ctx, S3Region(c, images), access, secret)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(cfg), nil
}

// S3Region returns images.s3_region, or the DynamoDB region when it is unset.
func S3Region(c shared.DynamoDBConfig, images shared.ImagesConfig) string {
	if images.S3Region != "" {
		return images.S3Region
	}
	return c.Region
}
