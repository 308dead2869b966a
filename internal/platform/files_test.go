package platform

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateOutputDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("no home directory: %v", err)
	}

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"absolute path", "/tmp/videos", "/tmp/videos", false},
		{"tilde expansion", "~/Videos", filepath.Join(home, "Videos"), false},
		{"cleans trailing slash", "/tmp/videos/", "/tmp/videos", false},
		{"empty", "", "", true},
		{"relative", "videos", "", true},
		{"traversal", "/tmp/../../etc", "", true},
	}

	for _, test := range tests {
		got, err := ValidateOutputDir(test.input)
		if test.wantErr {
			if err == nil {
				t.Errorf("%s: expected error, got %q", test.name, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error: %v", test.name, err)
			continue
		}
		if got != test.want {
			t.Errorf("%s: ValidateOutputDir(%q) = %q, expected %q", test.name, test.input, got, test.want)
		}
	}
}

func TestStagedPath(t *testing.T) {
	staged := StagedPath("/videos/clip.mp4")

	if staged == "/videos/clip.mp4" {
		t.Fatal("staged path must differ from final path")
	}
	if !strings.HasPrefix(staged, "/videos/clip"+StagedSuffixSeparator) {
		t.Errorf("staged path %q should insert the staging token before the extension", staged)
	}
	if !strings.HasSuffix(staged, ".mp4") {
		t.Errorf("staged path %q should keep the final extension", staged)
	}
	if staged == StagedPath("/videos/clip.mp4") {
		t.Error("consecutive staged paths should be unique")
	}
}

func TestReplaceFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "staged.mp4")
	dst := filepath.Join(dir, "final.mp4")

	if err := os.WriteFile(src, []byte("new"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := ReplaceFile(src, dst); err != nil {
		t.Fatalf("ReplaceFile failed: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "new" {
		t.Errorf("destination content = %q, expected %q", data, "new")
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source should be gone after replace")
	}
}
