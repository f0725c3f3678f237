package ewf

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-forensics/goewf/internal/pipeline"
)

func TestVerifierMatchesAcquisitionHash(t *testing.T) {
	base := filepath.Join(t.TempDir(), "verify-ok")
	geometry := testGeometry(1, 32, 3)

	w, err := Create(base, geometry, nil, WithCompression(pipeline.CompressionNone, false))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, w.WriteChunk(bytes.Repeat([]byte{byte('a' + i)}, 32)))
	}
	require.NoError(t, w.Close())

	r, err := Open(w.Filenames())
	require.NoError(t, err)
	defer r.Close()

	verifier := NewVerifier(r, VerifierOptions{CalculateMD5: true, CalculateSHA1: true})
	result, err := verifier.Run()
	require.NoError(t, err)
	assert.Empty(t, result.ChecksumErrors)
	assert.True(t, result.HashesMatch, "re-read data should match the digest computed at acquisition time")
	assert.Len(t, result.Computed["MD5"], 16)
	assert.Len(t, result.Computed["SHA1"], 20)
}

func TestVerifierAbortsWhenSignalled(t *testing.T) {
	base := filepath.Join(t.TempDir(), "verify-abort")
	geometry := testGeometry(1, 16, 2)

	w, err := Create(base, geometry, nil, WithCompression(pipeline.CompressionNone, false))
	require.NoError(t, err)
	require.NoError(t, w.WriteChunk(bytes.Repeat([]byte{'m'}, 16)))
	require.NoError(t, w.WriteChunk(bytes.Repeat([]byte{'n'}, 16)))
	require.NoError(t, w.Close())

	r, err := Open(w.Filenames())
	require.NoError(t, err)
	defer r.Close()
	r.SignalAbort()

	verifier := NewVerifier(r, VerifierOptions{CalculateMD5: true})
	_, err = verifier.Run()
	assert.Error(t, err)
}

func TestFprintChecksumErrorsEmptyWhenNoneRecorded(t *testing.T) {
	base := filepath.Join(t.TempDir(), "verify-empty")
	geometry := testGeometry(1, 16, 1)
	w, err := Create(base, geometry, nil, WithCompression(pipeline.CompressionNone, false))
	require.NoError(t, err)
	require.NoError(t, w.WriteChunk(bytes.Repeat([]byte{'z'}, 16)))
	require.NoError(t, w.Close())

	r, err := Open(w.Filenames())
	require.NoError(t, err)
	defer r.Close()

	verifier := NewVerifier(r, VerifierOptions{CalculateMD5: true})
	_, err = verifier.Run()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, verifier.FprintChecksumErrors(&buf))
	assert.Empty(t, buf.String())
}
