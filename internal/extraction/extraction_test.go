// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extraction

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/groundtruth/pkg/types"
)

func TestMain(m *testing.M) {
	backoffBase = time.Millisecond
	os.Exit(m.Run())
}

const bundleJSON = `{
  "doc_id": "report-7",
  "total_pages": 2,
  "pages": [
    {"page_num": 1, "text": "Page one", "paragraphs": ["Page one"], "layout_metadata": {"block_types": ["text"], "has_tables": false}},
    {"page_num": 2, "text": "Page two", "paragraphs": ["Page two"], "layout_metadata": {"block_types": ["table"], "has_tables": true}}
  ]
}`

const bundleYAML = `doc_id: report-8
total_pages: 1
pages:
  - page_num: 1
    text: Only page
    paragraphs: [Only page]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadBundle(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantID  string
		wantErr error
	}{
		{name: "json", file: "b.json", content: bundleJSON, wantID: "report-7"},
		{name: "yaml", file: "b.yaml", content: bundleYAML, wantID: "report-8"},
		{
			name:    "page count mismatch",
			file:    "b.json",
			content: `{"doc_id": "x", "total_pages": 3, "pages": [{"page_num": 1}]}`,
			wantErr: ErrInvalidBundle,
		},
		{
			name:    "pages out of order",
			file:    "b.json",
			content: `{"doc_id": "x", "total_pages": 2, "pages": [{"page_num": 2}, {"page_num": 1}]}`,
			wantErr: ErrInvalidBundle,
		},
		{name: "unsupported extension", file: "b.txt", content: bundleJSON},
		{name: "malformed", file: "b.json", content: `{"doc_id":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := LoadBundle(writeFile(t, tt.file, tt.content))
			if tt.wantID == "" {
				require.Error(t, err)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, b.DocumentID)
			assert.Len(t, b.Pages, b.TotalPages)
		})
	}
}

func TestWriteBundle_RoundTrip(t *testing.T) {
	b, err := LoadBundle(writeFile(t, "b.json", bundleJSON))
	require.NoError(t, err)

	path, err := WriteBundle(b, filepath.Join(t.TempDir(), "bundles"))
	require.NoError(t, err)
	assert.Equal(t, "report-7"+BundleSuffix, filepath.Base(path))

	again, err := LoadBundle(path)
	require.NoError(t, err)
	assert.Equal(t, b, again)
}

// --- container extractor ---

type fakeRuntime struct {
	imageErr error
	outputs  []string
	errs     []error
	calls    int
	deadline bool
}

func (f *fakeRuntime) Name() string { return "fake" }

func (f *fakeRuntime) Available(context.Context) bool { return true }

func (f *fakeRuntime) ImageExists(context.Context, string) error { return f.imageErr }

func (f *fakeRuntime) Run(ctx context.Context, _ string, stdin io.Reader, stdout io.Writer) error {
	i := f.calls
	f.calls++
	_, f.deadline = ctx.Deadline()
	if _, err := io.ReadAll(stdin); err != nil {
		return err
	}
	if i < len(f.errs) && f.errs[i] != nil {
		return f.errs[i]
	}
	if i < len(f.outputs) {
		_, err := io.WriteString(stdout, f.outputs[i])
		return err
	}
	return nil
}

func extractCfg() types.ExtractionConfig {
	return types.ExtractionConfig{Image: "layout-extract:latest", Timeout: time.Minute, MaxRetries: 2}
}

func TestNewContainerExtractor_MissingImage(t *testing.T) {
	_, err := NewContainerExtractor(context.Background(), &fakeRuntime{imageErr: errors.New("no such image")}, extractCfg(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extraction image not available")
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name      string
		rt        *fakeRuntime
		wantID    string
		wantFile  string
		wantCalls int
		wantErr   error
	}{
		{
			name:      "first attempt succeeds",
			rt:        &fakeRuntime{outputs: []string{bundleJSON}},
			wantID:    "report-7",
			wantFile:  "scan.pdf",
			wantCalls: 1,
		},
		{
			name:      "transient failure retried",
			rt:        &fakeRuntime{errs: []error{errors.New("oom")}, outputs: []string{"", bundleJSON}},
			wantID:    "report-7",
			wantFile:  "scan.pdf",
			wantCalls: 2,
		},
		{
			name:      "empty output retried then exhausted",
			rt:        &fakeRuntime{},
			wantCalls: 3,
		},
		{
			name:      "document id defaults to file stem",
			rt:        &fakeRuntime{outputs: []string{`{"total_pages": 1, "pages": [{"page_num": 1, "text": "x"}]}`}},
			wantID:    "scan",
			wantFile:  "scan.pdf",
			wantCalls: 1,
		},
		{
			name:      "invalid bundle not retried",
			rt:        &fakeRuntime{outputs: []string{`{"doc_id": "x", "total_pages": 2, "pages": []}`}},
			wantCalls: 1,
			wantErr:   ErrInvalidBundle,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pdf := writeFile(t, "scan.pdf", "%PDF-1.7")
			e, err := NewContainerExtractor(context.Background(), tt.rt, extractCfg(), nil)
			require.NoError(t, err)

			b, err := e.Extract(context.Background(), pdf)

			assert.Equal(t, tt.wantCalls, tt.rt.calls)
			assert.True(t, tt.rt.deadline, "each run is bounded by the timeout")
			if tt.wantID == "" {
				require.Error(t, err)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, b.DocumentID)
			assert.Equal(t, tt.wantFile, b.Filename)
		})
	}
}

func TestExtract_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rt := &fakeRuntime{errs: []error{errors.New("boom")}}
	e, err := NewContainerExtractor(ctx, rt, extractCfg(), nil)
	require.NoError(t, err)
	cancel()

	_, err = e.Extract(ctx, writeFile(t, "scan.pdf", "%PDF"))

	assert.ErrorIs(t, err, context.Canceled)
}
