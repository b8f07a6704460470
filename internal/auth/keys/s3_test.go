package keys

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/gatekeeper/internal/auth/authtest"
	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBucket struct {
	objects map[string][]byte
	err     error
	opts    s3.Options
	asked   []string
}

func (f *fakeBucket) GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.asked = append(f.asked, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	if f.err != nil {
		return nil, f.err
	}
	b, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func withFakeS3(t *testing.T, bucket *fakeBucket) {
	t.Helper()
	origLoad, origNew := loadDefaultAWSConfig, newObjectGetter
	t.Cleanup(func() { loadDefaultAWSConfig, newObjectGetter = origLoad, origNew })

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newObjectGetter = func(cfg aws.Config, optFns ...func(*s3.Options)) objectGetter {
		for _, fn := range optFns {
			fn(&bucket.opts)
		}
		return bucket
	}
}

func TestLoadS3_Success(t *testing.T) {
	priv := authtest.PrivateKey(t)
	bucket := &fakeBucket{objects: map[string][]byte{
		"keys/private.pem": authtest.PrivatePEM(t, priv),
		"keys/public.pem":  authtest.PublicPEM(t, priv),
	}}
	withFakeS3(t, bucket)

	p, err := LoadS3(context.Background(), S3Source{
		Bucket:           "vault",
		Region:           "us-east-1",
		BaseEndpoint:     "http://127.0.0.1:9000/",
		AccessKeyID:      "admin",
		SecretAccessKey:  "secret",
		PrivateKeyObject: "keys/private.pem",
		PublicKeyObject:  "keys/public.pem",
	})
	require.NoError(t, err)
	assert.True(t, p.PrivateKey().Equal(priv))
	assert.Equal(t, []string{"vault/keys/private.pem", "vault/keys/public.pem"}, bucket.asked)
	assert.Equal(t, "http://127.0.0.1:9000/", aws.ToString(bucket.opts.BaseEndpoint))
	assert.True(t, bucket.opts.UsePathStyle)
}

func TestLoadS3_PublicOnlySkipsPrivateObject(t *testing.T) {
	priv := authtest.PrivateKey(t)
	bucket := &fakeBucket{objects: map[string][]byte{"public.pem": authtest.PublicPEM(t, priv)}}
	withFakeS3(t, bucket)

	p, err := LoadS3(context.Background(), S3Source{Bucket: "b", PublicKeyObject: "public.pem"})
	require.NoError(t, err)
	assert.Nil(t, p.PrivateKey())
	assert.Equal(t, []string{"b/public.pem"}, bucket.asked)
}

func TestLoadS3_GetError(t *testing.T) {
	withFakeS3(t, &fakeBucket{err: errors.New("access denied")})

	_, err := LoadS3(context.Background(), S3Source{Bucket: "b", PrivateKeyObject: "k"})
	require.ErrorIs(t, err, common.ErrNoKeyMaterial)
	assert.Contains(t, err.Error(), "access denied")
}

func TestLoadS3_ConfigError(t *testing.T) {
	withFakeS3(t, &fakeBucket{})
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no region")
	}

	_, err := LoadS3(context.Background(), S3Source{Bucket: "b", PrivateKeyObject: "k"})
	assert.ErrorIs(t, err, common.ErrNoKeyMaterial)
}
