package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key")
	if err := os.WriteFile(keyFile, []byte("  from-file \n"), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}
	emptyFile := filepath.Join(dir, "empty")
	if err := os.WriteFile(emptyFile, []byte("\n"), 0o600); err != nil {
		t.Fatalf("write empty file: %v", err)
	}

	t.Setenv("CV_SCORER_TEST_KEY", " from-env ")
	t.Setenv("CV_SCORER_TEST_UNSET", "")

	tests := []struct {
		name    string
		src     Source
		want    string
		wantErr string
	}{
		{name: "file wins", src: Source{Name: "api key", Value: "inline", File: keyFile, Env: []string{"CV_SCORER_TEST_KEY"}}, want: "from-file"},
		{name: "inline before env", src: Source{Value: " inline ", Env: []string{"CV_SCORER_TEST_KEY"}}, want: "inline"},
		{name: "env fallback", src: Source{Env: []string{"CV_SCORER_TEST_UNSET", "CV_SCORER_TEST_KEY"}}, want: "from-env"},
		{name: "empty file", src: Source{Name: "api key", File: emptyFile}, wantErr: "is empty"},
		{name: "missing file", src: Source{Name: "api key", File: filepath.Join(dir, "nope")}, wantErr: "reading api key"},
		{name: "nothing configured", src: Source{Name: "api key"}, wantErr: "api key is not configured"},
		{name: "env hint", src: Source{Name: "api key", Env: []string{"CV_SCORER_TEST_UNSET"}}, wantErr: "set CV_SCORER_TEST_UNSET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
