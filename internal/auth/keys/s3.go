package keys

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/gatekeeper/internal/common"
)

// S3Source names PEM objects in an S3-compatible bucket (AWS or MinIO).
// An empty object key skips that side of the pair.
type S3Source struct {
	Bucket           string
	Region           string
	BaseEndpoint     string
	AccessKeyID      string
	SecretAccessKey  string
	PrivateKeyObject string
	PublicKeyObject  string
}

// objectGetter is the slice of *s3.Client the loader needs.
type objectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// seams for tests
var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newObjectGetter = func(cfg aws.Config, optFns ...func(*s3.Options)) objectGetter {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// LoadS3 fetches and parses the configured key objects.
func LoadS3(ctx context.Context, src S3Source) (*Pair, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(src.Region)}
	if src.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(src.AccessKeyID, src.SecretAccessKey, ""),
		))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: aws config: %v", common.ErrNoKeyMaterial, err)
	}

	client := newObjectGetter(cfg, func(o *s3.Options) {
		if src.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(src.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	privatePEM, err := fetchObject(ctx, client, src.Bucket, src.PrivateKeyObject)
	if err != nil {
		return nil, err
	}
	publicPEM, err := fetchObject(ctx, client, src.Bucket, src.PublicKeyObject)
	if err != nil {
		return nil, err
	}

	return ParsePEM(privatePEM, publicPEM)
}

func fetchObject(ctx context.Context, client objectGetter, bucket, key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get s3://%s/%s: %v", common.ErrNoKeyMaterial, bucket, key, err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read s3://%s/%s: %v", common.ErrNoKeyMaterial, bucket, key, err)
	}
	return b, nil
}
