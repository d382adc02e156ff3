// Package storage uploads event images and ticket QR codes straight to S3-compatible
// object storage. It is the alternative to the gateway image endpoints.
package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/apperr"
)

const presignExpiry = 15 * time.Minute

type Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type getPresigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type S3Store struct {
	bucket    string
	objects   objectPutter
	presigner getPresigner
}

// NewS3Store builds the client from the default AWS chain, overridden by static
// credentials and a custom endpoint (MinIO) when configured.
func NewS3Store(ctx context.Context, cfg Config) (*S3Store, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newS3Store(awsCfg, cfg), nil
}

func newS3Store(awsCfg aws.Config, cfg Config) *S3Store {
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Store{bucket: cfg.Bucket, objects: client, presigner: s3.NewPresignClient(client)}
}

func EventImageKey(eventID int64) string {
	return fmt.Sprintf("%d/image.png", eventID)
}

// TicketQRKey is unique per ticket: a user may hold several tickets for one event.
func TicketQRKey(eventID, userID int64, code string) string {
	return fmt.Sprintf("tickets/%d/%d/%s.png", eventID, userID, code)
}

// UploadEventImage accepts the image as base64, optionally wrapped in a data URL.
func (s *S3Store) UploadEventImage(ctx context.Context, eventID int64, image string) (string, error) {
	data, err := decodeImage(image)
	if err != nil {
		return "", fmt.Errorf("decode event image: %v: %w", err, apperr.ErrValidation)
	}
	return s.put(ctx, EventImageKey(eventID), data)
}

func (s *S3Store) UploadTicketQR(ctx context.Context, eventID, userID int64, code string, png []byte) (string, error) {
	return s.put(ctx, TicketQRKey(eventID, userID, code), png)
}

func (s *S3Store) TicketQRURL(ctx context.Context, eventID, userID int64, code string) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(TicketQRKey(eventID, userID, code)),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("presign qr: %v: %w", err, apperr.ErrUpstream)
	}
	return req.URL, nil
}

func (s *S3Store) put(ctx context.Context, key string, data []byte) (string, error) {
	_, err := s.objects.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("image/png"),
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %v: %w", key, err, apperr.ErrUpload)
	}
	return s.bucket + "/" + key, nil
}

func decodeImage(image string) ([]byte, error) {
	if i := strings.Index(image, ";base64,"); strings.HasPrefix(image, "data:") && i >= 0 {
		image = image[i+len(";base64,"):]
	}
	return base64.StdEncoding.DecodeString(image)
}
