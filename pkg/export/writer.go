package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// Writer stores an encoded document under name and returns where it went.
type Writer interface {
	Write(ctx context.Context, name string, data []byte) (string, error)
}

// Save encodes doc and hands it to w.
func Save(ctx context.Context, w Writer, doc Document) (string, error) {
	data, err := doc.Encode()
	if err != nil {
		return "", fmt.Errorf("encode export: %w", err)
	}
	loc, err := w.Write(ctx, doc.FileName(), data)
	if err != nil {
		return "", err
	}
	log.Info().Str("location", loc).Int("messages", len(doc.Messages)).Msg("export written")
	return loc, nil
}

// NewWriter picks S3 for s3://bucket/prefix destinations and a local directory otherwise.
func NewWriter(ctx context.Context, dest string) (Writer, error) {
	if bucket, prefix, ok := parseS3(dest); ok {
		return NewS3Writer(ctx, bucket, prefix)
	}
	if dest == "" {
		dest = "."
	}
	return &LocalWriter{Dir: dest}, nil
}

func parseS3(dest string) (bucket, prefix string, ok bool) {
	rest, ok := strings.CutPrefix(dest, "s3://")
	if !ok {
		return "", "", false
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", false
	}
	return bucket, strings.Trim(prefix, "/"), true
}

// LocalWriter writes into Dir with a temp file and rename.
type LocalWriter struct {
	Dir string
}

func (w *LocalWriter) Write(_ context.Context, name string, data []byte) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	tmp, err := os.CreateTemp(w.Dir, ".export-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write export: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("sync export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	final := filepath.Join(w.Dir, filepath.Base(name))
	if err := os.Rename(tmp.Name(), final); err != nil {
		return "", fmt.Errorf("rename export: %w", err)
	}
	return final, nil
}

// S3ClientAPI is the part of the S3 client the exporter uses.
type S3ClientAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Writer uploads documents to Bucket under Prefix.
type S3Writer struct {
	Client S3ClientAPI
	Bucket string
	Prefix string
}

func NewS3Writer(ctx context.Context, bucket, prefix string) (*S3Writer, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &S3Writer{Client: s3.NewFromConfig(cfg), Bucket: bucket, Prefix: prefix}, nil
}

func (w *S3Writer) Write(ctx context.Context, name string, data []byte) (string, error) {
	key := name
	if w.Prefix != "" {
		key = path.Join(w.Prefix, name)
	}
	_, err := w.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", w.Bucket, key, err)
	}
	return "s3://" + w.Bucket + "/" + key, nil
}
