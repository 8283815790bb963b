package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"variantcore/pkg/domain"
)

func TestSQLiteStorePersistAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.db")
	store, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	var project domain.Project
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var e error
		project, e = tx.CreateProject(domain.Project{Name: "Persist", GenomeVersion: "38"})
		if e != nil {
			return e
		}
		_, e = tx.CreateFamily(domain.Family{ProjectGUID: project.GUID, FamilyID: "F001"})
		return e
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reloaded, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	t.Cleanup(func() { _ = reloaded.Close() })
	if got := len(reloaded.ListProjects()); got != 1 {
		t.Fatalf("expected 1 project, got %d", got)
	}
	if got := len(reloaded.ListFamilies()); got != 1 {
		t.Fatalf("expected 1 family, got %d", got)
	}
	if _, ok := reloaded.GetProject(project.GUID); !ok {
		t.Fatalf("expected project %q after reload", project.GUID)
	}
}

func TestSQLiteStoreCreatesStateTable(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "state.db"), domain.NewRulesEngine())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	var tableName string
	if err := store.DB().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='state'").Scan(&tableName); err != nil {
		t.Fatalf("lookup state table: %v", err)
	}
	if tableName != "state" {
		t.Fatalf("expected state table, got %s", tableName)
	}
}

func TestSQLiteStoreRollsBackBlockedTransaction(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	engine := domain.NewRulesEngine()
	engine.Register(blockAll{})
	store, err := NewStore(path, engine)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.CreateProject(domain.Project{Name: "Blocked"})
		return e
	}); err == nil {
		t.Fatalf("expected rule violation")
	}
	if got := len(store.ListProjects()); got != 0 {
		t.Fatalf("blocked transaction persisted %d projects", got)
	}
}

type blockAll struct{}

func (blockAll) Name() string { return "block-all" }

func (blockAll) Evaluate(context.Context, domain.RuleView, []domain.Change) (domain.Result, error) {
	return domain.Result{Violations: []domain.Violation{{Rule: "block-all", Severity: domain.SeverityBlock}}}, nil
}
