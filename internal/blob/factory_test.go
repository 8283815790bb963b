package blob

import (
	"bytes"
	"context"
	"testing"
)

func TestOpenDefaultsToFilesystem(t *testing.T) {
	t.Setenv("VARIANTCORE_BLOB_DRIVER", "")
	t.Setenv("VARIANTCORE_BLOB_FS_ROOT", t.TempDir())
	store, err := Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store.Driver() != DriverFilesystem {
		t.Fatalf("expected fs driver, got %s", store.Driver())
	}
}

func TestOpenMemoryDriver(t *testing.T) {
	t.Setenv("VARIANTCORE_BLOB_DRIVER", "memory")
	store, err := Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store.Driver() != DriverMemory {
		t.Fatalf("expected memory driver, got %s", store.Driver())
	}
	if _, err := store.Put(context.Background(), "reports/x.json", bytes.NewReader([]byte("{}")), PutOptions{ContentType: "application/json"}); err != nil {
		t.Fatalf("put: %v", err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Setenv("VARIANTCORE_BLOB_DRIVER", "carrier-pigeon")
	if _, err := Open(context.Background()); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestOpenS3RequiresBucket(t *testing.T) {
	t.Setenv("VARIANTCORE_BLOB_DRIVER", "s3")
	t.Setenv("VARIANTCORE_BLOB_S3_BUCKET", "")
	if _, err := Open(context.Background()); err == nil {
		t.Fatalf("expected missing bucket error")
	}
}
