// Package storage uploads search reports to S3-compatible object storage
// such as DigitalOcean Spaces.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/nijaru/yt-search/config"
	apperrors "github.com/nijaru/yt-search/errors"
	"github.com/nijaru/yt-search/models"
	"github.com/nijaru/yt-search/render"
	"github.com/sirupsen/logrus"
)

type SpacesClient struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewSpacesClient(ctx context.Context, cfg config.SpacesConfig) (*SpacesClient, error) {
	const op = "storage.NewSpacesClient"

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, apperrors.Storage(op, err, "unable to load SDK config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return &SpacesClient{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

type sessionReport struct {
	models.Session
	Timestamp time.Time      `json:"timestamp"`
	Videos    []models.Video `json:"videos"`
}

// SaveSession uploads the session as <prefix>/<id>.json and a markdown
// report next to it.
func (s *SpacesClient) SaveSession(ctx context.Context, session models.Session, videos []models.Video) error {
	const op = "storage.SaveSession"

	if videos == nil {
		videos = []models.Video{}
	}
	jsonData, err := json.Marshal(sessionReport{Session: session, Timestamp: time.Now().UTC(), Videos: videos})
	if err != nil {
		return apperrors.Internal(op, err, "failed to marshal report")
	}

	var md bytes.Buffer
	if err := render.Markdown(&md, videos); err != nil {
		return apperrors.Internal(op, err, "failed to render report")
	}

	if err := s.put(ctx, s.key(session.ID, "json"), render.FormatJSON.ContentType(), jsonData); err != nil {
		return apperrors.Storage(op, err, "failed to save report to Spaces")
	}
	if err := s.put(ctx, s.key(session.ID, "md"), render.FormatMarkdown.ContentType(), md.Bytes()); err != nil {
		return apperrors.Storage(op, err, "failed to save report to Spaces")
	}

	logrus.WithFields(logrus.Fields{
		"session": session.ID,
		"bucket":  s.bucket,
	}).Info("Uploaded search report")
	return nil
}

func (s *SpacesClient) key(sessionID, ext string) string {
	return path.Join(s.prefix, fmt.Sprintf("%s.%s", sessionID, ext))
}

func (s *SpacesClient) put(ctx context.Context, key, contentType string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	return err
}
