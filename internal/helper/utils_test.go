package helper

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerateUUID_Unique(t *testing.T) {
	a, err := GenerateUUID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := GenerateUUID()
	if a == "" || a == b {
		t.Fatalf("expected two distinct ids, got %q and %q", a, b)
	}
}

func TestCreateFolder_Nested(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := CreateFolder(dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		t.Fatalf("expected %s to be a directory", dir)
	}
	if err := CreateFolder(dir); err != nil {
		t.Fatalf("second call should be a no-op, got %v", err)
	}
}

func TestPrettyPrint(t *testing.T) {
	var buf bytes.Buffer
	PrettyPrint(&buf, map[string]int{"dishes": 2})
	if !strings.Contains(buf.String(), `"dishes": 2`) {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
