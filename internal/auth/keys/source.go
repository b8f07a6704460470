package keys

import (
	"context"
	"fmt"
)

const (
	SourceFile = "file"
	SourceS3   = "s3"
)

// Source picks where Load reads PEM material from.
type Source struct {
	Kind           string
	PrivateKeyPath string
	PublicKeyPath  string
	S3             S3Source
}

func Load(ctx context.Context, src Source) (*Pair, error) {
	switch src.Kind {
	case SourceFile, "":
		return LoadPEMFiles(src.PrivateKeyPath, src.PublicKeyPath)
	case SourceS3:
		return LoadS3(ctx, src.S3)
	}
	return nil, fmt.Errorf("unknown key source %q", src.Kind)
}
