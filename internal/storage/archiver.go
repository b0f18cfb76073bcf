package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/sdko-org/sim-fleet/internal/config"
	"github.com/sdko-org/sim-fleet/internal/models"
	"github.com/sirupsen/logrus"
)

// Archiver receives usage rows about to be pruned by the retention job so
// they survive in cold storage.
type Archiver interface {
	ArchiveUsage(ctx context.Context, cutoff time.Time, rows []models.SIMUsage) error
}

type S3Archiver struct {
	uploader *s3manager.Uploader
	bucket   string
	log      *logrus.Entry
}

func NewS3Archiver(logger *logrus.Logger, cfg *config.Config) *S3Archiver {
	awsConfig := &aws.Config{
		Region:           aws.String(cfg.S3Region),
		Credentials:      credentials.NewStaticCredentials(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		S3ForcePathStyle: aws.Bool(true),
	}

	if cfg.S3Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.S3Endpoint)
	}

	sess := session.Must(session.NewSession(awsConfig))

	return &S3Archiver{
		uploader: s3manager.NewUploader(sess),
		bucket:   cfg.S3Bucket,
		log:      logger.WithField("component", "usage_archiver"),
	}
}

// ArchiveUsage uploads the rows as a single JSON object keyed by the
// cutoff date and upload time.
func (a *S3Archiver) ArchiveUsage(ctx context.Context, cutoff time.Time, rows []models.SIMUsage) error {
	if len(rows) == 0 {
		return nil
	}

	payload, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode usage archive: %w", err)
	}

	key := fmt.Sprintf("usage-archive/%s/%d.json", cutoff.UTC().Format("2006-01-02"), time.Now().UTC().Unix())

	_, err = a.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 upload failed: %w", err)
	}

	a.log.WithFields(logrus.Fields{
		"key":  key,
		"rows": len(rows),
	}).Info("Usage rows archived")
	return nil
}
