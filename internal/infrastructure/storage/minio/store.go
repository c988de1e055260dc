package minio

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/mcbuilder/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mcbuilder/pkg/errors"
)

// PDBContentType is stored with every uploaded model.
const PDBContentType = "chemical/x-pdb"

// UploadResult describes a stored model.
type UploadResult struct {
	Bucket     string
	ObjectKey  string
	ETag       string
	Size       int64
	URL        string
	UploadedAt time.Time
}

// ModelStore keeps written models under <prefix>/<run id>/<file name>.
type ModelStore struct {
	client MinIOAPI
	config *MinIOConfig
	logger logging.Logger
}

// NewModelStore wraps an existing client.  The bucket is not checked.
func NewModelStore(client MinIOAPI, cfg *MinIOConfig, log logging.Logger) *ModelStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	applyDefaults(cfg)
	return &ModelStore{client: client, config: cfg, logger: log}
}

// Bucket returns the target bucket.
func (s *ModelStore) Bucket() string {
	return s.config.Bucket
}

// ObjectKey returns the key a file uploaded for runID is stored under.
func (s *ModelStore) ObjectKey(runID, file string) string {
	parts := make([]string, 0, 3)
	if p := strings.Trim(s.config.Prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	return path.Join(append(parts, runID, filepath.Base(file))...)
}

// UploadFile stores the model at file for runID.  metadata is attached as
// user metadata (stoichiometry, chain count, ...).
func (s *ModelStore) UploadFile(ctx context.Context, runID, file string, metadata map[string]string) (*UploadResult, error) {
	if runID == "" || file == "" {
		return nil, ErrInvalidRequest
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUploadFailed, "failed to open model file")
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUploadFailed, "failed to stat model file")
	}

	key := s.ObjectKey(runID, file)
	info, err := s.client.PutObject(ctx, s.config.Bucket, key, f, st.Size(), minio.PutObjectOptions{
		ContentType:  PDBContentType,
		UserMetadata: metadata,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUploadFailed, "upload failed").WithDetail(key)
	}

	res := &UploadResult{
		Bucket:     info.Bucket,
		ObjectKey:  info.Key,
		ETag:       info.ETag,
		Size:       info.Size,
		UploadedAt: time.Now(),
	}
	if u, err := s.client.PresignedGetObject(ctx, s.config.Bucket, key, s.config.PresignExpiry, nil); err != nil {
		s.logger.Warn("Failed to presign model URL", logging.String("key", key), logging.Err(err))
	} else {
		res.URL = u.String()
	}

	s.logger.Info("Uploaded model",
		logging.String("bucket", res.Bucket),
		logging.String("key", res.ObjectKey),
		logging.Int64("size", res.Size),
	)
	return res, nil
}
