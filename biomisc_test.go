package biomisc

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestDetectDataType(t *testing.T) {
	var gz bytes.Buffer
	w := gzip.NewWriter(&gz)
	w.Write([]byte("hello"))
	w.Close()

	for _, v := range []struct {
		input    []byte
		expected DataType
	}{
		{gz.Bytes(), DataTypeGzip},
		{[]byte("#OTU ID\tS1\n"), DataTypeNoCompression},
		{[]byte{0x42, 0x5a, 0x68, 0x39}, DataTypeBZip2},
		{[]byte("ab"), DataTypeNoCompression},
		{[]byte{0x1f, 0x9d, 0x90}, DataTypeZ},
	} {
		dt, err := DetectDataType(bufio.NewReader(bytes.NewReader(v.input)))
		if err != nil {
			t.Fatal(err)
		}
		if dt != v.expected {
			t.Errorf("Expected %s, got %s", v.expected, dt)
		}
	}
}

func TestMaybeDecompressReadCloser(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "table.tsv.gz")

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := gzip.NewWriter(f)
	w.Write([]byte("#OTU ID\tS1\tS2\nOTU1\t1\t2\n"))
	w.Close()
	f.Close()

	for _, p := range []string{path} {
		rc, err := Open(context.Background(), p, nil)
		if err != nil {
			t.Fatal(err)
		}
		body, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		if string(body) != "#OTU ID\tS1\tS2\nOTU1\t1\t2\n" {
			t.Errorf("Unexpected body %q", body)
		}
	}
}

func TestUnixCompressIsRejected(t *testing.T) {
	rc := io.NopCloser(bytes.NewReader([]byte{0x1f, 0x9d, 0x90, 0x23, 0x4f}))
	if _, err := MaybeDecompressReadCloser(rc); !errors.Is(err, ErrUnsupportedCompression) {
		t.Errorf("Expected ErrUnsupportedCompression, got %v", err)
	}
}

func TestPlainFilePassesThrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.txt")
	if err := os.WriteFile(path, []byte("a\tb\n"), 0644); err != nil {
		t.Fatal(err)
	}

	rc, err := Open(context.Background(), path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "a\tb\n" {
		t.Errorf("Unexpected body %q", body)
	}
}

func TestDetermineDelimiter(t *testing.T) {
	if d := DetermineDelimiter([]byte("a\tb\tc\n1\t2\t3\n")); d != '\t' {
		t.Errorf("Expected tab, got %q", d)
	}
	if d := DetermineDelimiter([]byte("a,b,c\n1,2,3\n4,5,6\n")); d != ',' {
		t.Errorf("Expected comma, got %q", d)
	}
}

func TestSplitGoogleStoragePath(t *testing.T) {
	bucket, object, err := SplitGoogleStoragePath("gs://my-bucket/tables/otu.biom")
	if err != nil {
		t.Fatal(err)
	}
	if bucket != "my-bucket" || object != "tables/otu.biom" {
		t.Errorf("Got bucket %q object %q", bucket, object)
	}

	if _, _, err := SplitGoogleStoragePath("gs://my-bucket"); err == nil {
		t.Error("Expected an error for a path without an object")
	}

	if !NeedsStorageClient("local.tsv", "gs://b/o") || NeedsStorageClient("local.tsv") {
		t.Error("NeedsStorageClient mismatch")
	}
}

func TestExpandHome(t *testing.T) {
	if p := ExpandHome("/abs/path"); p != "/abs/path" {
		t.Errorf("Absolute path changed to %s", p)
	}
	if p := ExpandHome("~/x"); p == "~/x" {
		t.Skip("no home directory available")
	}
}
