package services

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"hivechat/internal/domain"
	"hivechat/internal/store"
	hive_errors "hivechat/pkg/errors"
)

// BlobStore holds attachment bytes, keyed by attachment id. Implemented
// by the S3 client in production and a local directory in dev.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// AttachmentService stores blob bytes and their metadata row. Messages
// reference attachments by id; resolution is a plain blob-by-id lookup.
type AttachmentService struct {
	store   store.Store
	blobs   BlobStore
	maxSize int64
}

func NewAttachmentService(s store.Store, blobs BlobStore, maxSize int64) *AttachmentService {
	return &AttachmentService{store: s, blobs: blobs, maxSize: maxSize}
}

func (a *AttachmentService) Upload(ctx context.Context, roomID, filename, contentType string, size int64, body io.Reader) (domain.Attachment, error) {
	if filename == "" || size <= 0 {
		return domain.Attachment{}, hive_errors.ErrInvalidInput
	}
	if a.maxSize > 0 && size > a.maxSize {
		return domain.Attachment{}, hive_errors.ErrTooLarge
	}
	if _, err := a.store.GetRoom(ctx, roomID); err != nil {
		return domain.Attachment{}, err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	att := domain.Attachment{
		ID:          uuid.NewString(),
		RoomID:      roomID,
		Filename:    filename,
		ContentType: contentType,
		Size:        size,
		CreatedAt:   time.Now().UTC(),
	}
	if err := a.blobs.Put(ctx, att.ID, contentType, body, size); err != nil {
		return domain.Attachment{}, err
	}
	if err := a.store.CreateAttachment(ctx, att); err != nil {
		return domain.Attachment{}, err
	}
	return att, nil
}

func (a *AttachmentService) Download(ctx context.Context, id string) (domain.Attachment, io.ReadCloser, error) {
	att, err := a.store.GetAttachment(ctx, id)
	if err != nil {
		return domain.Attachment{}, nil, err
	}
	body, err := a.blobs.Get(ctx, att.ID)
	if err != nil {
		return domain.Attachment{}, nil, err
	}
	return att, body, nil
}
