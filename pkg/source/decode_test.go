package source

import (
	"bytes"
	"compress/gzip"
	"io"
	"testing"

	"github.com/DataDog/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipped(t *testing.T, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write([]byte(content))
	require.NoError(t, err, "writing gzip fixture")
	require.NoError(t, gw.Close(), "closing gzip fixture")
	return buf.Bytes()
}

// 🧪 TestDecode tests the extension-driven decode chain
func TestDecode(t *testing.T) {
	t.Run("plain_passthrough", func(t *testing.T) {
		rc := io.NopCloser(bytes.NewReader([]byte("a,b\n1,2\n")))
		decoded, name, err := Decode(rc, "report.csv", DecodeOptions{})
		require.NoError(t, err, "decode should succeed")
		defer decoded.Close()

		content, err := io.ReadAll(decoded)
		require.NoError(t, err, "read should succeed")
		assert.Equal(t, "a,b\n1,2\n", string(content), "plain files pass through")
		assert.Equal(t, "report.csv", name, "name should be unchanged")
	})

	t.Run("gzip", func(t *testing.T) {
		rc := io.NopCloser(bytes.NewReader(gzipped(t, "a,b\n1,2\n")))
		decoded, name, err := Decode(rc, "report.csv.gz", DecodeOptions{})
		require.NoError(t, err, "decode should succeed")
		defer decoded.Close()

		content, err := io.ReadAll(decoded)
		require.NoError(t, err, "read should succeed")
		assert.Equal(t, "a,b\n1,2\n", string(content), "gzip stream should be decompressed")
		assert.Equal(t, "report.csv", name, "gz extension should be stripped")
	})

	t.Run("zstd", func(t *testing.T) {
		compressed, err := zstd.Compress(nil, []byte("a,b\n1,2\n"))
		require.NoError(t, err, "writing zstd fixture")

		rc := io.NopCloser(bytes.NewReader(compressed))
		decoded, name, err := Decode(rc, "report.csv.zst", DecodeOptions{})
		require.NoError(t, err, "decode should succeed")
		defer decoded.Close()

		content, err := io.ReadAll(decoded)
		require.NoError(t, err, "read should succeed")
		assert.Equal(t, "a,b\n1,2\n", string(content), "zstd stream should be decompressed")
		assert.Equal(t, "report.csv", name, "zst extension should be stripped")
	})

	t.Run("encrypted_without_keyring_fails", func(t *testing.T) {
		rc := io.NopCloser(bytes.NewReader([]byte("garbage")))
		_, _, err := Decode(rc, "report.csv.pgp", DecodeOptions{})
		require.Error(t, err, "encrypted input without a keyring must fail, not pass through")
	})

	t.Run("corrupt_gzip_fails", func(t *testing.T) {
		rc := io.NopCloser(bytes.NewReader([]byte("not gzip")))
		_, _, err := Decode(rc, "report.csv.gz", DecodeOptions{})
		require.Error(t, err, "corrupt gzip header should fail")
	})
}

// 🧪 TestDecodedName tests destination-name extension stripping
func TestDecodedName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "a.csv", want: "a.csv"},
		{name: "gz", in: "a.csv.gz", want: "a.csv"},
		{name: "stacked", in: "a.csv.gz.pgp", want: "a.csv"},
		{name: "zst", in: "dir/a.csv.zst", want: "dir/a.csv"},
		{name: "uppercase", in: "a.csv.GZ", want: "a.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodedName(tt.in), "decoded name should strip transport extensions")
		})
	}
}

// 🧪 TestLoadKeyringMissing tests the error path for a missing keyring file
func TestLoadKeyringMissing(t *testing.T) {
	_, err := LoadKeyring("/nonexistent/keyring.asc", "")
	require.Error(t, err, "missing keyring file should fail")
}
