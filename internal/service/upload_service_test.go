package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eesa/eesa-api/internal/access"
	appErrors "github.com/eesa/eesa-api/pkg/errors"
	"github.com/eesa/eesa-api/pkg/storage"
)

func newTestUploadService(t *testing.T, maxSize int64) *UploadService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("upload-test-secret", time.Minute)
	return NewUploadService(store, signer, maxSize, zap.NewNop())
}

func TestUploadStoresFileAndSignsDownload(t *testing.T) {
	svc := newTestUploadService(t, 1<<20)
	body := []byte("solution to problem set 3")

	result, err := svc.Upload(context.Background(), studentCaller("st-1", "2022-2026"), "answers.pdf", int64(len(body)), bytes.NewReader(body))
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(result.Path, ".pdf"))
	assert.Equal(t, "answers.pdf", result.Filename)
	assert.Equal(t, int64(len(body)), result.Size)
	require.NotEmpty(t, result.SignedURL)

	file, name, err := svc.Open(result.SignedURL)
	require.NoError(t, err)
	defer file.Close() //nolint:errcheck

	var got bytes.Buffer
	_, err = got.ReadFrom(file)
	require.NoError(t, err)
	assert.Equal(t, body, got.Bytes())
	assert.True(t, strings.HasSuffix(name, ".pdf"))
}

func TestUploadRejectsAnonymousCaller(t *testing.T) {
	svc := newTestUploadService(t, 1<<20)

	_, err := svc.Upload(context.Background(), access.Anonymous, "notes.pdf", 10, bytes.NewReader([]byte("0123456789")))
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	svc := newTestUploadService(t, 16)
	body := bytes.Repeat([]byte("a"), 64)

	_, err := svc.Upload(context.Background(), studentCaller("st-1", "2022-2026"), "big.bin", int64(len(body)), bytes.NewReader(body))
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestUploadCatchesUnderdeclaredSize(t *testing.T) {
	svc := newTestUploadService(t, 16)
	body := bytes.Repeat([]byte("a"), 64)

	// Declared size fits the limit but the stream does not.
	_, err := svc.Upload(context.Background(), studentCaller("st-1", "2022-2026"), "big.bin", 8, bytes.NewReader(body))
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestOpenRejectsForgedToken(t *testing.T) {
	svc := newTestUploadService(t, 1<<20)
	body := []byte("content")

	result, err := svc.Upload(context.Background(), studentCaller("st-1", "2022-2026"), "file.txt", int64(len(body)), bytes.NewReader(body))
	require.NoError(t, err)

	forger := storage.NewSignedURLSigner("different-secret", time.Minute)
	forged, _, err := forger.Generate("user-st-1", result.Path)
	require.NoError(t, err)

	_, _, err = svc.Open(forged)
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestDeleteIsAdminOnly(t *testing.T) {
	svc := newTestUploadService(t, 1<<20)
	body := []byte("content")

	result, err := svc.Upload(context.Background(), studentCaller("st-1", "2022-2026"), "file.txt", int64(len(body)), bytes.NewReader(body))
	require.NoError(t, err)

	err = svc.Delete(studentCaller("st-1", "2022-2026"), result.Path)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	require.NoError(t, svc.Delete(adminCaller, result.Path))

	_, _, err = svc.Open(result.SignedURL)
	require.Error(t, err)
}
