package artifact

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gotshirtdesigner/internal/config"
)

func exerciseStore(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()
	t.Cleanup(func() { _ = st.Close() })

	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	first, err := st.Put(ctx, &Artifact{
		Meta: Meta{Name: "../tshirt_design.png", ContentType: "image/png", Multiplier: 3, Created: base},
		Data: []byte("png-1"),
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if ValidateID(first.ID) != nil || first.Size != 5 || first.Name != "tshirt_design.png" {
		t.Fatalf("unexpected meta: %+v", first)
	}
	second, err := st.Put(ctx, &Artifact{
		Meta: Meta{Name: "bundle.zip", ContentType: "application/zip", Created: base.Add(time.Minute)},
		Data: []byte("zip-bytes"),
	})
	if err != nil {
		t.Fatalf("put second: %v", err)
	}

	got, err := st.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got.Data, []byte("png-1")) || got.ContentType != "image/png" || got.Multiplier != 3 {
		t.Fatalf("get returned %+v", got.Meta)
	}
	if !got.Created.Equal(base) {
		t.Fatalf("created = %v, want %v", got.Created, base)
	}

	list, err := st.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("list order = %+v", list)
	}

	if err := st.Delete(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := st.Get(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := st.Delete(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete: %v", err)
	}
	if _, err := st.Get(ctx, "../../etc/passwd"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("path-like id: %v", err)
	}
	if _, err := st.Put(ctx, &Artifact{}); err == nil {
		t.Fatalf("expected error for empty artifact")
	}
}

func TestMemoryStore(t *testing.T) { exerciseStore(t, NewMemory()) }

func TestFilesystemStore(t *testing.T) {
	dir := t.TempDir()
	st, err := NewFilesystem(dir)
	if err != nil {
		t.Fatal(err)
	}
	exerciseStore(t, st)
	matches, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(matches) != 0 {
		t.Fatalf("temp files left behind: %v", matches)
	}
}

func TestSQLiteStore(t *testing.T) {
	st, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "a.sqlite"), 0)
	if err != nil {
		t.Fatal(err)
	}
	exerciseStore(t, st)
}

func TestSQLiteEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	st, err := OpenSQLite(ctx, t.TempDir(), 25)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	put := func(name string) Meta {
		m, err := st.Put(ctx, &Artifact{Meta: Meta{Name: name}, Data: bytes.Repeat([]byte("x"), 10)})
		if err != nil {
			t.Fatalf("put %s: %v", name, err)
		}
		return m
	}
	a := put("a")
	b := put("b")
	if _, err := st.Get(ctx, a.ID); err != nil { // a becomes most recent
		t.Fatal(err)
	}
	c := put("c")

	if _, err := st.Get(ctx, b.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected b evicted, got %v", err)
	}
	for _, m := range []Meta{a, c} {
		if _, err := st.Get(ctx, m.ID); err != nil {
			t.Fatalf("%s should survive: %v", m.Name, err)
		}
	}
	total, err := st.(*sqliteStore).TotalBytes(ctx)
	if err != nil || total > 25 {
		t.Fatalf("total = %d, %v", total, err)
	}
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("GTD_PG_DSN")
	if dsn == "" {
		t.Skip("GTD_PG_DSN not set")
	}
	st, err := OpenPostgres(context.Background(), dsn)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	exerciseStore(t, st)
}

func TestOpenSelectsKind(t *testing.T) {
	ctx := context.Background()
	st, err := Open(ctx, config.ArtifactsConfig{Kind: "memory"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := st.(*memoryStore); !ok {
		t.Fatalf("expected memory store, got %T", st)
	}
	st, err = Open(ctx, config.ArtifactsConfig{Kind: "FileSystem", Path: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := st.(*fsStore); !ok {
		t.Fatalf("expected fs store, got %T", st)
	}
	if _, err := Open(ctx, config.ArtifactsConfig{Kind: "ftp"}); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
	if _, err := Open(ctx, config.ArtifactsConfig{Kind: "s3"}); err == nil {
		t.Fatalf("expected error for s3 without bucket")
	}
	if _, err := Open(ctx, config.ArtifactsConfig{Kind: "postgres"}); err == nil {
		t.Fatalf("expected error for postgres without dsn")
	}
}
