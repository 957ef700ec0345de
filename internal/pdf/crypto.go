package pdf

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrPasswordRequired is returned when an encrypted PDF cannot be opened with the given credentials.
var ErrPasswordRequired = errors.New("pdf is password protected")

// Credentials holds the passwords used to open an encrypted PDF.
type Credentials struct {
	UserPassword  string `json:"user_password,omitempty" yaml:"user_password,omitempty"`
	OwnerPassword string `json:"owner_password,omitempty" yaml:"owner_password,omitempty"`
}

// Empty reports whether no password is set.
func (c Credentials) Empty() bool {
	return c.UserPassword == "" && c.OwnerPassword == ""
}

// IsEncrypted reports whether filename is encrypted. Any other read failure is returned as an error.
func IsEncrypted(filename string) (bool, error) {
	_, err := api.PageCountFile(filename)
	if err == nil {
		return false, nil
	}
	if IsPasswordError(err) {
		return true, nil
	}
	return false, fmt.Errorf("failed to check PDF encryption status: %w", err)
}

// Decrypt returns a path to a readable copy of filename. Unencrypted files are
// returned as-is; encrypted files are decrypted into a temporary file. The returned
// cleanup function removes any temporary file and is always safe to call.
func Decrypt(filename string, creds Credentials) (string, func(), error) {
	noop := func() {}

	encrypted, err := IsEncrypted(filename)
	if err != nil {
		return "", noop, err
	}
	if !encrypted {
		return filename, noop, nil
	}
	if creds.Empty() {
		return "", noop, fmt.Errorf("%w: %s", ErrPasswordRequired, filename)
	}

	tmp, err := os.CreateTemp("", "ticketscan-decrypted-*.pdf")
	if err != nil {
		return "", noop, fmt.Errorf("failed to create temporary file: %w", err)
	}
	_ = tmp.Close()
	cleanup := func() { _ = os.Remove(tmp.Name()) }

	conf := model.NewDefaultConfiguration()
	conf.UserPW = creds.UserPassword
	conf.OwnerPW = creds.OwnerPassword
	if err := api.DecryptFile(filename, tmp.Name(), conf); err != nil {
		cleanup()
		return "", noop, fmt.Errorf("%w: %w", ErrPasswordRequired, err)
	}
	return tmp.Name(), cleanup, nil
}

// IsPasswordError reports whether err relates to encryption or passwords.
func IsPasswordError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPasswordRequired) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, kw := range []string{"password", "encrypted", "decrypt", "authentication", "invalid credentials"} {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}
