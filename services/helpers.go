package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"netwin-backend/apperrors"
	"netwin-backend/utils"

	"github.com/google/uuid"
)

func newID() string { return uuid.NewString() }

// asAppError passes AppErrors through and wraps anything else as a database error.
func asAppError(err error, msg string) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperrors.Database(err, msg)
}

// uploadBlob decodes a base64 upload and stores it under keyPrefix plus the
// detected extension, returning the public URL.
func uploadBlob(ctx context.Context, store utils.ObjectStore, keyPrefix, encoded string) (string, error) {
	data, contentType, ext, err := utils.DecodeBlob(encoded)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeInvalidInput, err.Error())
	}
	if store == nil {
		return "", apperrors.New(apperrors.CodeStorageError, "file storage is not configured")
	}
	key := fmt.Sprintf("%s-%d%s", keyPrefix, time.Now().UnixNano(), ext)
	url, err := store.Put(ctx, key, data, contentType)
	if err != nil {
		utils.Log.Errorw("[STORAGE] ❌ upload failed", "key", key, "error", err)
		return "", apperrors.Wrap(err, apperrors.CodeStorageError, "failed to upload file")
	}
	return url, nil
}
