package objectstore

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// S3Store keeps files in a private bucket and presigns GET requests.
type S3Store struct {
	client s3iface.S3API
	bucket string
}

var _ core.FileStore = (*S3Store)(nil) // interface compliance check

func NewS3Store(conf *core.Config) (*S3Store, error) {
	awsConf := aws.NewConfig().WithRegion(conf.Storage.Region)
	if conf.Storage.Endpoint != "" {
		// S3 compatible providers (minio, R2, ...)
		awsConf = awsConf.WithEndpoint(conf.Storage.Endpoint).WithS3ForcePathStyle(true)
	}
	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            *awsConf,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating AWS session")
	}
	return NewS3StoreWithClient(s3.New(sess), conf.Storage.Bucket), nil
}

func NewS3StoreWithClient(client s3iface.S3API, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket}
}

func (s *S3Store) Put(ctx context.Context, p string, r io.Reader) (core.StoredFile, error) {
	p, err := cleanPath(p)
	if err != nil {
		return core.StoredFile{}, err
	}
	data, mime, err := readUpload(r)
	if err != nil {
		return core.StoredFile{}, err
	}
	_, err = s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(p),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(mime),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return core.StoredFile{}, errors.Wrap(err, "putting object")
	}
	return core.StoredFile{Path: p, MimeType: mime, Size: int64(len(data))}, nil
}

func (s *S3Store) SignedURL(_ context.Context, p string, ttl time.Duration) (string, error) {
	p, err := cleanPath(p)
	if err != nil {
		return "", err
	}
	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(p),
	})
	u, err := req.Presign(ttl)
	return u, errors.Wrap(err, "presigning object")
}

func (s *S3Store) Delete(ctx context.Context, p string) error {
	p, err := cleanPath(p)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(p),
	})
	return errors.Wrap(err, "deleting object")
}
