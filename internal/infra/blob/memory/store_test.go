package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"variantcore/internal/blob/core"
)

func TestStoreLifecycle(t *testing.T) {
	store := New()
	ctx := context.Background()
	if store.Driver() != core.DriverMemory {
		t.Fatalf("expected memory driver")
	}
	if _, _, err := store.Get(ctx, "missing"); err == nil {
		t.Fatalf("expected missing get error")
	}
	if _, err := store.Head(ctx, "missing"); err == nil {
		t.Fatalf("expected missing head error")
	}
	if ok, err := store.Delete(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected delete false, got %v %v", ok, err)
	}

	info, err := store.Put(ctx, "reports/overview.json", bytes.NewReader([]byte(`{"families":3}`)), core.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"project": "p1"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size == 0 || info.ContentType != "application/json" {
		t.Fatalf("unexpected info: %+v", info)
	}
	if _, err := store.Put(ctx, "reports/overview.json", bytes.NewReader([]byte("x")), core.PutOptions{}); err == nil {
		t.Fatalf("expected duplicate put error")
	}

	got, rc, err := store.Get(ctx, "reports/overview.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != `{"families":3}` || got.Metadata["project"] != "p1" {
		t.Fatalf("unexpected content %q meta %v", body, got.Metadata)
	}

	if list, err := store.List(ctx, "reports/"); err != nil || len(list) != 1 {
		t.Fatalf("list prefix: %v %d", err, len(list))
	}
	if list, err := store.List(ctx, "other/"); err != nil || len(list) != 0 {
		t.Fatalf("list other prefix: %v %d", err, len(list))
	}
	if _, err := store.PresignURL(ctx, "reports/overview.json", core.SignedURLOptions{}); err == nil {
		t.Fatalf("expected unsupported presign")
	}
	if ok, err := store.Delete(ctx, "reports/overview.json"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, fmt.Errorf("fail") }

func TestStorePutReadError(t *testing.T) {
	store := New()
	if _, err := store.Put(context.Background(), "bad", failingReader{}, core.PutOptions{}); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestStoreGetReturnsCopy(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Put(ctx, "k", bytes.NewReader([]byte("original")), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	_, rc, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	buf, _ := io.ReadAll(rc)
	_ = rc.Close()
	buf[0] = 'X'
	_, rc2, _ := store.Get(ctx, "k")
	again, _ := io.ReadAll(rc2)
	_ = rc2.Close()
	if string(again) != "original" {
		t.Fatalf("stored bytes aliased by reader copy: %q", again)
	}
}
