package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/invoicebatch/internal/logging"
)

// spool copies body to a temp file and returns its path. The extension of
// fileName is kept so extension-based format rules still apply.
//
// Reading stops one byte past MaxFileSize; a body that long is rejected with
// ErrFileTooLarge and the partial file is removed.
func (s *Service) spool(body io.Reader, fileName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	f, err := os.CreateTemp(s.opts.TempDir, "upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()

	n, copyErr := io.Copy(f, io.LimitReader(body, s.opts.MaxFileSize+1))
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		err = fmt.Errorf("write temp file: %w", copyErr)
	case closeErr != nil:
		err = fmt.Errorf("close temp file: %w", closeErr)
	case n > s.opts.MaxFileSize:
		err = s.tooLarge(n)
	}
	if err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

// removeTemp deletes a spooled file. Failures are logged at WARN.
func (s *Service) removeTemp(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.FromContext(ctx).Warn("failed to remove temp file", "path", path, "error", err)
	}
}
