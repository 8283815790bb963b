package integration

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"variantcore/internal/blob"
	core "variantcore/internal/core"
	"variantcore/internal/infra/persistence/memory"
	"variantcore/internal/infra/persistence/sqlite"
	domain "variantcore/pkg/domain"
)

// TestIntegrationSmoke exercises a minimal end-to-end write/read cycle for
// each supported in-process storage and blob adapter. It intentionally keeps
// scope tiny so it can act as a fast CI health check.
func TestIntegrationSmoke(t *testing.T) {
	ctx := context.Background()

	coreVariants := []struct {
		name string
		open func(t *testing.T) domain.PersistentStore
	}{
		{
			name: "memory-store",
			open: func(_ *testing.T) domain.PersistentStore {
				return memory.NewStore(core.NewDefaultRulesEngine())
			},
		},
		{
			name: "sqlite-store",
			open: func(t *testing.T) domain.PersistentStore {
				path := filepath.Join(t.TempDir(), "core.db")
				s, err := sqlite.NewStore(path, core.NewDefaultRulesEngine())
				if err != nil {
					t.Skipf("sqlite unavailable: %v", err)
				}
				return s
			},
		},
	}

	blobVariants := []struct {
		name string
		open func(t *testing.T) blob.Store
	}{
		{
			name: "memory-blob",
			open: func(_ *testing.T) blob.Store { return blob.NewMemory() },
		},
		{
			name: "filesystem-blob",
			open: func(t *testing.T) blob.Store {
				fs, err := blob.NewFilesystem(t.TempDir())
				if err != nil {
					t.Fatalf("new filesystem blob: %v", err)
				}
				return fs
			},
		},
		{
			name: "mock-s3-blob",
			open: func(_ *testing.T) blob.Store { return blob.NewMockS3ForTests() },
		},
	}

	for _, cv := range coreVariants {
		t.Run(cv.name, func(t *testing.T) {
			store := cv.open(t)
			metricsRecorder := core.NewExpvarMetricsRecorder("")
			var traceBuffer bytes.Buffer
			tracer := core.NewJSONTracer(&traceBuffer)
			svc := core.NewService(
				store,
				core.WithMetricsRecorder(metricsRecorder),
				core.WithTracer(tracer),
			)
			project, _, err := svc.CreateProject(ctx, domain.Project{Name: "Smoke", GenomeVersion: "38"})
			if err != nil {
				t.Fatalf("create project: %v", err)
			}
			family, res, err := svc.CreateFamily(ctx, domain.Family{ProjectGUID: project.GUID, FamilyID: "F001"})
			if err != nil {
				t.Fatalf("create family: %v", err)
			}
			if res.HasBlocking() {
				t.Fatalf("unexpected blocking violations: %+v", res.Violations)
			}
			individual, res, err := svc.CreateIndividual(ctx, domain.Individual{
				ProjectGUID:  project.GUID,
				FamilyGUID:   family.GUID,
				IndividualID: "F001_1",
			})
			if err != nil {
				t.Fatalf("create individual: %v", err)
			}
			if res.HasBlocking() {
				t.Fatalf("unexpected blocking violations individual: %+v", res.Violations)
			}
			sample, _, err := svc.CreateSample(ctx, domain.Sample{
				ProjectGUID:    project.GUID,
				IndividualGUID: individual.GUID,
				SampleID:       "S-1",
				SampleType:     "WES",
			})
			if err != nil {
				t.Fatalf("create sample: %v", err)
			}
			loaded := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
			if _, res, err := svc.MarkSampleLoaded(ctx, sample.GUID, loaded, "idx-1"); err != nil {
				t.Fatalf("mark sample loaded: %v", err)
			} else if res.HasBlocking() {
				t.Fatalf("unexpected violations on load: %+v", res.Violations)
			}
			// Ensure persisted via store view.
			found := false
			for _, f := range store.ListFamilies() {
				if f.GUID == family.GUID {
					found = true
					break
				}
			}
			if !found {
				t.Fatalf("expected family %s in listing", family.GUID)
			}
			if got, ok := store.GetSample(sample.GUID); !ok || got.Status != domain.SampleStatusLoaded || got.LoadedDate == nil {
				t.Fatalf("expected loaded sample persisted, got %+v", got)
			}

			// Validate observability exporters captured core operations.
			snapshot := metricsRecorder.Snapshot()
			if len(snapshot.DurationsMS) == 0 {
				t.Fatalf("expected metrics durations for operations, got empty")
			}
			if snapshot.Results["create_project"]["success"] == 0 {
				t.Fatalf("expected create_project success metric recorded: %+v", snapshot.Results)
			}
			if traceBuffer.Len() == 0 {
				t.Fatalf("expected trace exporter to emit spans")
			}
			var foundSpan bool
			for _, entry := range tracer.Entries() {
				if entry.Operation == "create_project" && entry.Status == "success" {
					foundSpan = true
					break
				}
			}
			if !foundSpan {
				t.Fatalf("expected trace entry for create_project, entries=%+v", tracer.Entries())
			}
		})
	}

	for _, bv := range blobVariants {
		t.Run(bv.name, func(t *testing.T) {
			bs := bv.open(t)
			key := "alpha/test.txt"
			payload := []byte("hello")
			info, err := bs.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{ContentType: "text/plain"})
			if err != nil {
				t.Fatalf("blob put: %v", err)
			}
			if info.Key != key {
				t.Fatalf("unexpected blob key info: %+v", info)
			}
			// Some adapters (mock S3) may report a transformed size; accept any
			// non-zero size instead of exact length equality.
			if info.Size <= 0 {
				t.Fatalf("expected positive blob size, got %d (info=%+v)", info.Size, info)
			}
			_, rc, err := bs.Get(ctx, key)
			if err != nil {
				t.Fatalf("blob get: %v", err)
			}
			got := make([]byte, len(payload))
			if _, err := rc.Read(got); err != nil && err.Error() != "EOF" {
				t.Fatalf("read payload: %v", err)
			}
			_ = rc.Close()
			if string(got) != string(payload) {
				t.Fatalf("payload mismatch got=%q want=%q", string(got), string(payload))
			}
			if ok, err := bs.Delete(ctx, key); err != nil || !ok {
				t.Fatalf("blob delete: %v ok=%v", err, ok)
			}
		})
	}

	// Sanity: ensure no environment leakage (none set here, but guard for future edits)
	if os.Getenv("VARIANTCORE_BLOB_DRIVER") != "" || os.Getenv("VARIANTCORE_STORAGE_DRIVER") != "" {
		t.Fatalf("expected no test-induced env leakage")
	}
}
