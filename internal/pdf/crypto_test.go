package pdf

import (
	"errors"
	"testing"

	"github.com/MeKo-Tech/ticketscan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPasswordError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("pdfcpu: please provide the correct password"), true},
		{errors.New("file is Encrypted"), true},
		{ErrPasswordRequired, true},
		{errors.New("xref corrupt"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsPasswordError(tt.err), "%v", tt.err)
	}
}

func TestCredentials_Empty(t *testing.T) {
	assert.True(t, Credentials{}.Empty())
	assert.False(t, Credentials{UserPassword: "x"}.Empty())
	assert.False(t, Credentials{OwnerPassword: "x"}.Empty())
}

func TestDecrypt_Unencrypted(t *testing.T) {
	path := testutil.WritePDF(t, t.TempDir(), "plain.pdf", []testutil.PDFPage{{Text: "a"}})

	encrypted, err := IsEncrypted(path)
	require.NoError(t, err)
	assert.False(t, encrypted)

	got, cleanup, err := Decrypt(path, Credentials{})
	require.NoError(t, err)
	defer cleanup()
	assert.Equal(t, path, got)
}

func TestDecrypt_MissingFile(t *testing.T) {
	_, cleanup, err := Decrypt("/nonexistent/file.pdf", Credentials{UserPassword: "x"})
	require.Error(t, err)
	cleanup()
}
