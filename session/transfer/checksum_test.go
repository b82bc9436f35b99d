package transfer

import (
	"crypto/sha256"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestVerifyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(path, []byte("hello"), 0o600); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	const sum = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

	tests := map[string]struct {
		expected string
		wantErr  error
	}{
		"match":     {expected: sum},
		"upperCase": {expected: strings.ToUpper(sum)},
		"mismatch":  {expected: strings.Repeat("0", 64), wantErr: ErrChecksumMismatch},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if err := VerifyFile(path, sha256.New(), tc.expected); !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}

	if err := VerifyFile(filepath.Join(t.TempDir(), "missing"), sha256.New(), sum); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}
