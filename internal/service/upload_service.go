package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eesa/eesa-api/internal/access"
	"github.com/eesa/eesa-api/internal/models"
	appErrors "github.com/eesa/eesa-api/pkg/errors"
	"github.com/eesa/eesa-api/pkg/storage"
)

// UploadService stores opaque file bodies on local disk and hands out
// HMAC-signed download tokens. The rest of the API keeps only the relative
// path returned here; nothing outside this service interprets it.
type UploadService struct {
	store   *storage.LocalStorage
	signer  *storage.SignedURLSigner
	maxSize int64
	logger  *zap.Logger
}

// NewUploadService constructs UploadService.
func NewUploadService(store *storage.LocalStorage, signer *storage.SignedURLSigner, maxSize int64, logger *zap.Logger) *UploadService {
	if maxSize <= 0 {
		maxSize = 25 << 20
	}
	return &UploadService{store: store, signer: signer, maxSize: maxSize, logger: logger}
}

// UploadResult describes a stored file.
type UploadResult struct {
	Path      string    `json:"path"`
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	SignedURL string    `json:"signed_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Upload saves the file body under a generated opaque path and returns the
// reference plus a first signed token. size is the declared content length;
// the reader is additionally capped at maxSize+1 to catch liars.
func (s *UploadService) Upload(_ context.Context, caller access.Identity, filename string, size int64, body io.Reader) (*UploadResult, error) {
	if !caller.Authenticated() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if size > s.maxSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds maximum size of %d bytes", s.maxSize))
	}

	ext := strings.ToLower(filepath.Ext(filename))
	relPath := filepath.Join(time.Now().UTC().Format("2006/01"), uuid.NewString()+ext)

	limited := io.LimitReader(body, s.maxSize+1)
	stored, err := s.store.SaveStream(relPath, limited)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to store file")
	}

	info, err := os.Stat(s.store.Path(stored))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to verify stored file")
	}
	if info.Size() > s.maxSize {
		if delErr := s.store.Delete(stored); delErr != nil {
			s.logger.Warn("failed to remove oversized upload", zap.String("path", stored), zap.Error(delErr))
		}
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds maximum size of %d bytes", s.maxSize))
	}

	token, expiresAt, err := s.signer.Generate(caller.UserID, stored)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to sign download url")
	}

	s.logger.Info("file stored",
		zap.String("path", stored),
		zap.Int64("size", info.Size()),
		zap.String("uploaded_by", caller.UserID))

	return &UploadResult{
		Path:      stored,
		Filename:  filepath.Base(filename),
		Size:      info.Size(),
		SignedURL: token,
		ExpiresAt: expiresAt,
	}, nil
}

// SignURL issues a fresh download token for an already stored path. Callers
// are expected to have checked record-level visibility before asking.
func (s *UploadService) SignURL(recordID, relPath string) (string, time.Time, error) {
	token, expiresAt, err := s.signer.Generate(recordID, relPath)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to sign download url")
	}
	return token, expiresAt, nil
}

// Open validates a download token and returns a read handle on the file.
// The caller owns closing the handle.
func (s *UploadService) Open(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, http.StatusForbidden, "invalid or expired download token")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to open file")
	}
	return file, filepath.Base(relPath), nil
}

// Delete removes a stored file. Only admins may delete storage directly;
// record-owning services delete through their own authorization.
func (s *UploadService) Delete(caller access.Identity, relPath string) error {
	if caller.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only admins can delete stored files")
	}
	if err := s.store.Delete(relPath); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to delete file")
	}
	return nil
}
