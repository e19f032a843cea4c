package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/sentinelshop/storefront-api/internal/invoice"
	"github.com/sentinelshop/storefront-api/pkg/logger"
)

// ObjectAPI is the part of the S3 client the invoice store needs.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3InvoiceStore keeps rendered invoices in a bucket under Prefix.
type S3InvoiceStore struct {
	client  ObjectAPI
	bucket  string
	prefix  string
	baseURL string
	region  string
}

func NewS3InvoiceStore(region, bucket, prefix, accessKeyID, secretAccessKey, baseURL string) *S3InvoiceStore {
	var cfg aws.Config
	var err error

	// Static credentials when configured, default chain (env, profile, IAM role) otherwise.
	if accessKeyID != "" && secretAccessKey != "" {
		cfg = aws.Config{
			Region:      region,
			Credentials: credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		}
	} else {
		cfg, err = config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
		if err != nil {
			logger.Warn("Falling back to region-only AWS config", map[string]interface{}{
				"region": region,
				"error":  err.Error(),
			})
			cfg = aws.Config{Region: region}
		}
	}

	return NewS3InvoiceStoreWithClient(s3.NewFromConfig(cfg), region, bucket, prefix, baseURL)
}

// NewS3InvoiceStoreWithClient builds a store on an existing client.
func NewS3InvoiceStoreWithClient(client ObjectAPI, region, bucket, prefix, baseURL string) *S3InvoiceStore {
	if prefix == "" {
		prefix = "invoices"
	}
	return &S3InvoiceStore{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		baseURL: baseURL,
		region:  region,
	}
}

// Key is the object key for an invoice number.
func (s *S3InvoiceStore) Key(number string) string {
	return fmt.Sprintf("%s/%s", s.prefix, invoice.FileName(number))
}

// Save uploads the PDF and returns its public URL. The put is conditional on
// the key being absent, so an existing invoice is never overwritten.
func (s *S3InvoiceStore) Save(ctx context.Context, number string, pdf []byte) (string, error) {
	key := s.Key(number)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(s.bucket),
		Key:                aws.String(key),
		Body:               bytes.NewReader(pdf),
		ContentType:        aws.String("application/pdf"),
		ContentDisposition: aws.String(fmt.Sprintf("inline; filename=%q", invoice.FileName(number))),
		IfNoneMatch:        aws.String("*"),
	})
	if err != nil {
		if objectExists(err) {
			logger.Warn("Invoice key already exists in S3", map[string]interface{}{
				"bucket": s.bucket,
				"key":    key,
			})
			return "", fmt.Errorf("%w: %s", invoice.ErrNumberTaken, number)
		}
		logger.Error("Failed to upload invoice to S3", err, map[string]interface{}{
			"bucket": s.bucket,
			"key":    key,
		})
		return "", fmt.Errorf("upload invoice %s: %w", number, err)
	}

	logger.Debug("Invoice uploaded to S3", map[string]interface{}{
		"bucket": s.bucket,
		"key":    key,
		"size":   len(pdf),
	})
	return s.url(key), nil
}

// objectExists reports a failed If-None-Match precondition. A concurrent
// conditional write to the same key is reported as a conflict.
func objectExists(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "PreconditionFailed", "ConditionalRequestConflict":
		return true
	}
	return false
}

func (s *S3InvoiceStore) url(key string) string {
	if s.baseURL != "" {
		return fmt.Sprintf("%s/%s", s.baseURL, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

var _ invoice.Store = (*S3InvoiceStore)(nil)
