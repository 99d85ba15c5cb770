package archive

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func buildTree(t *testing.T) string {
	t.Helper()
	src := t.TempDir()
	if err := os.MkdirAll(filepath.Join(src, "configs"), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(src, "empty"), 0o750); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"site.sql":             "CREATE TABLE wp_posts;",
		"configs/plugins.json": `[]`,
		"configs/themes.json":  `[{"name":"alpha"}]`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(src, name), []byte(content), 0o640); err != nil {
			t.Fatal(err)
		}
	}
	return src
}

func relFiles(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			rel += "/"
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(out)
	return out
}

func TestPackUnpackRoundTrip(t *testing.T) {
	src := buildTree(t)
	dest := filepath.Join(t.TempDir(), "snap.zip")
	if err := Pack(src, dest); err != nil {
		t.Fatalf("pack: %v", err)
	}

	out := t.TempDir()
	if err := Unpack(dest, out); err != nil {
		t.Fatalf("unpack: %v", err)
	}

	want := relFiles(t, src)
	got := relFiles(t, out)
	if len(want) != len(got) {
		t.Fatalf("file sets differ:\nwant %v\ngot  %v", want, got)
	}
	for i := range want {
		if want[i] != got[i] {
			t.Fatalf("file sets differ at %d: want %s got %s", i, want[i], got[i])
		}
	}

	payload, err := os.ReadFile(filepath.Join(out, "site.sql"))
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != "CREATE TABLE wp_posts;" {
		t.Fatalf("content mismatch: %q", payload)
	}
}

func TestPackMissingSource(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "snap.zip")
	if err := Pack(filepath.Join(t.TempDir(), "nope"), dest); err == nil {
		t.Fatalf("expected error for missing source directory")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatalf("archive must not be created for a missing source")
	}
}

func TestUnpackBadArchive(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.zip")
	if err := os.WriteFile(bad, []byte("not a zip"), 0o640); err != nil {
		t.Fatal(err)
	}
	if err := Unpack(bad, t.TempDir()); err == nil {
		t.Fatalf("expected error for unreadable archive")
	}
}

func TestReadFile(t *testing.T) {
	src := buildTree(t)
	dest := filepath.Join(t.TempDir(), "snap.zip")
	if err := Pack(src, dest); err != nil {
		t.Fatal(err)
	}
	payload, err := ReadFile(dest, "configs/themes.json")
	if err != nil {
		t.Fatalf("read entry: %v", err)
	}
	if string(payload) != `[{"name":"alpha"}]` {
		t.Fatalf("unexpected entry content: %q", payload)
	}
	if _, err := ReadFile(dest, "configs/missing.json"); err == nil {
		t.Fatalf("expected error for missing entry")
	}
}

func TestSizeInBytes(t *testing.T) {
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "a"), make([]byte, 100), 0o640); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(src, "sub"), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "sub", "b"), make([]byte, 50), 0o640); err != nil {
		t.Fatal(err)
	}

	total, err := SizeInBytes(src)
	if err != nil {
		t.Fatal(err)
	}
	if total != 150 {
		t.Fatalf("directory size = %d, want 150", total)
	}

	single, err := SizeInBytes(filepath.Join(src, "a"))
	if err != nil {
		t.Fatal(err)
	}
	if single != 100 {
		t.Fatalf("file size = %d, want 100", single)
	}
}
