// Package archivetest builds small ZIP and ISO images for tests.
package archivetest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kdomanski/iso9660"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

// ZIP returns a ZIP image holding files, keyed by slash-separated name
func ZIP(t testing.TB, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// ISO returns an ISO 9660 image holding files
func ISO(t testing.TB, files map[string]string) []byte {
	t.Helper()
	w, err := iso9660.NewWriter()
	require.NoError(t, err)
	defer w.Cleanup()

	for name, content := range files {
		require.NoError(t, w.AddFile(strings.NewReader(content), name))
	}

	var buf bytes.Buffer
	require.NoError(t, w.WriteTo(&buf, "TESTVOL"))
	return buf.Bytes()
}
