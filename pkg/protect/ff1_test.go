package protect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCredentials() Credentials {
	return Credentials{
		PolicyURL:    "https://policy.example.com/clientPolicy.xml",
		Identity:     "accounts@example.com",
		SharedSecret: "secret123",
	}
}

// 🧪 TestNewFF1Builder tests credential validation
func TestNewFF1Builder(t *testing.T) {
	tests := []struct {
		name    string
		creds   Credentials
		wantErr bool
	}{
		{
			name:  "valid_credentials",
			creds: testCredentials(),
		},
		{
			name:    "missing_identity",
			creds:   Credentials{SharedSecret: "secret123"},
			wantErr: true,
		},
		{
			name:    "missing_shared_secret",
			creds:   Credentials{Identity: "accounts@example.com"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFF1Builder(tt.creds)
			if tt.wantErr {
				require.Error(t, err, "builder creation should fail")
				assert.ErrorIs(t, err, ErrProtectorInit, "error should wrap ErrProtectorInit")
				return
			}
			require.NoError(t, err, "builder creation should succeed")
		})
	}
}

// 🧪 TestFF1UnknownFormat tests that unknown format tags fail at build time
func TestFF1UnknownFormat(t *testing.T) {
	builder, err := NewFF1Builder(testCredentials())
	require.NoError(t, err, "creating builder")

	_, err = builder.Build("rot13")
	require.Error(t, err, "unknown format should fail")
}

// 🧪 TestFF1Protect tests shape preservation and determinism
func TestFF1Protect(t *testing.T) {
	builder, err := NewFF1Builder(testCredentials())
	require.NoError(t, err, "creating builder")

	p, err := builder.Build("digits")
	require.NoError(t, err, "building digits protector")

	t.Run("digits_stay_digits", func(t *testing.T) {
		out, err := p.Protect("1234567890")
		require.NoError(t, err, "protect should succeed")
		assert.Len(t, out, 10, "length should be preserved")
		assert.NotEqual(t, "1234567890", out, "value should change")
		for _, r := range out {
			assert.Contains(t, "0123456789", string(r), "output should stay in the digits alphabet")
		}
	})

	t.Run("punctuation_stays_in_place", func(t *testing.T) {
		out, err := p.Protect("123-45-6789")
		require.NoError(t, err, "protect should succeed")
		require.Len(t, out, 11, "length should be preserved")
		assert.Equal(t, byte('-'), out[3], "dash should stay in place")
		assert.Equal(t, byte('-'), out[6], "dash should stay in place")
	})

	t.Run("deterministic", func(t *testing.T) {
		first, err := p.Protect("1234567890")
		require.NoError(t, err, "protect should succeed")
		second, err := p.Protect("1234567890")
		require.NoError(t, err, "protect should succeed")
		assert.Equal(t, first, second, "same input should protect to the same output")
	})

	t.Run("too_short_passes_through", func(t *testing.T) {
		out, err := p.Protect("7")
		require.NoError(t, err, "protect should succeed")
		assert.Equal(t, "7", out, "single-character values pass through unchanged")
	})

	t.Run("distinct_formats_use_distinct_keys", func(t *testing.T) {
		alnum, err := builder.Build("alnum")
		require.NoError(t, err, "building alnum protector")

		a, err := p.Protect("12345678")
		require.NoError(t, err, "digits protect should succeed")
		b, err := alnum.Protect("12345678")
		require.NoError(t, err, "alnum protect should succeed")
		assert.NotEqual(t, a, b, "formats should not share a key")
	})
}

// 🧪 TestFF1ProtectAlnum tests the alphanumeric alphabet
func TestFF1ProtectAlnum(t *testing.T) {
	builder, err := NewFF1Builder(testCredentials())
	require.NoError(t, err, "creating builder")

	p, err := builder.Build("alnum")
	require.NoError(t, err, "building alnum protector")

	out, err := p.Protect("user42")
	require.NoError(t, err, "protect should succeed")
	assert.Len(t, out, 6, "length should be preserved")
	for _, r := range out {
		assert.Contains(t, "0123456789abcdefghijklmnopqrstuvwxyz", string(r), "output should stay in the alnum alphabet")
	}
}
