// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testClassification = `{"dominant_type_overall": "Genomic Report", "number_of_segments": 0, "segments": [], "document_mixture": []}`

func TestDiscoverJobs(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	write("b-doc.classification.json", testClassification)
	write("b-doc.bundle.json", `{"doc_id": "b-doc", "total_pages": 1, "pages": [{"page_num": 1, "text": "x"}]}`)
	write("a-doc.classification.json", testClassification)
	write("a-doc.bundle.json", `{"doc_id": "a-doc", "total_pages": 1, "pages": [{"page_num": 1, "text": "x"}]}`)
	write("orphan.classification.json", testClassification)
	write("notes.txt", "ignored")

	jobs, err := discoverJobs(dir)
	require.NoError(t, err)

	require.Len(t, jobs, 2)
	assert.Equal(t, "a-doc", jobs[0].Bundle.DocumentID)
	assert.Equal(t, "b-doc", jobs[1].Bundle.DocumentID)
	assert.Equal(t, "Genomic Report", string(jobs[0].Classification.Dominant))
}

func TestDiscoverJobs_InvalidBundle(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.classification.json"), []byte(testClassification), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.bundle.json"), []byte(`{"doc_id": "x", "total_pages": 2, "pages": []}`), 0o644))

	_, err := discoverJobs(dir)
	assert.Error(t, err)
}

func TestLoadReference(t *testing.T) {
	ref, err := loadReference("")
	require.NoError(t, err)
	assert.Nil(t, ref)

	path := filepath.Join(t.TempDir(), "ref.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dominant_type: Pathology Report\nvendor: quest\n"), 0o644))
	ref, err = loadReference(path)
	require.NoError(t, err)
	assert.Equal(t, "Pathology Report", string(ref.DominantCategory))
	assert.Equal(t, "quest", ref.Vendor)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
