// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/groundtruth/internal/container"
	"github.com/pdiddy/groundtruth/pkg/types"
)

// backoffBase is the initial retry delay; tests shorten it.
var backoffBase = 2 * time.Second

// ContainerExtractor pipes a PDF through a layout-extraction image and
// decodes the bundle JSON it prints.
type ContainerExtractor struct {
	runtime container.Runtime
	cfg     types.ExtractionConfig
	logger  *slog.Logger
}

// NewContainerExtractor checks that cfg.Image exists in rt before returning.
func NewContainerExtractor(ctx context.Context, rt container.Runtime, cfg types.ExtractionConfig, logger *slog.Logger) (*ContainerExtractor, error) {
	if err := rt.ImageExists(ctx, cfg.Image); err != nil {
		return nil, fmt.Errorf("extraction image not available in %s: %w", rt.Name(), err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ContainerExtractor{runtime: rt, cfg: cfg, logger: logger.With("component", "extraction")}, nil
}

// Extract runs the container over the PDF at pdfPath. Failed runs are
// retried up to cfg.MaxRetries times, each bounded by cfg.Timeout; a bundle
// that decodes but fails validation is not retried.
func (e *ContainerExtractor) Extract(ctx context.Context, pdfPath string) (*types.SourceBundle, error) {
	var lastErr error
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffBase * time.Duration(1<<(attempt-1))
			e.logger.WarnContext(ctx, "retrying extraction", "pdf", pdfPath, "attempt", attempt, "delay", delay, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		out, err := e.runOnce(ctx, pdfPath)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		return decodeBundle(out, pdfPath)
	}
	return nil, fmt.Errorf("extracting %s after %d retries: %w", pdfPath, e.cfg.MaxRetries, lastErr)
}

func (e *ContainerExtractor) runOnce(ctx context.Context, pdfPath string) ([]byte, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("opening PDF %s: %w", pdfPath, err)
	}
	defer f.Close()

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	var out bytes.Buffer
	if err := e.runtime.Run(ctx, e.cfg.Image, f, &out); err != nil {
		return nil, err
	}
	if out.Len() == 0 {
		return nil, fmt.Errorf("extraction produced empty output for %s", pdfPath)
	}
	return out.Bytes(), nil
}

// decodeBundle parses container output, filling the document id and
// filename from pdfPath when the extractor left them empty.
func decodeBundle(data []byte, pdfPath string) (*types.SourceBundle, error) {
	var b types.SourceBundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: decoding output for %s: %w", ErrInvalidBundle, pdfPath, err)
	}
	base := filepath.Base(pdfPath)
	if b.DocumentID == "" {
		b.DocumentID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if b.Filename == "" {
		b.Filename = base
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBundle, err)
	}
	return &b, nil
}
