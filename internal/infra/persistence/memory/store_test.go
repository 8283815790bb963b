package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"variantcore/pkg/domain"
)

func TestStoreRunInTransactionAndSnapshots(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, ok := tx.FindProject("missing"); ok {
			t.Fatalf("expected missing project lookup")
		}
		created, err := tx.CreateProject(domain.Project{Name: "1000 Genomes Demo", GenomeVersion: "37"})
		if err != nil {
			return err
		}
		if created.GUID == "" {
			t.Fatalf("expected generated GUID")
		}
		view := tx.Snapshot()
		if len(view.ListProjects()) != 1 {
			t.Fatalf("snapshot mismatch")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run transaction: %v", err)
	}
	if len(store.ListProjects()) != 1 {
		t.Fatalf("expected persisted project")
	}
	snapshot := store.ExportState()
	store.ImportState(Snapshot{})
	if len(store.ListProjects()) != 0 {
		t.Fatalf("expected cleared state")
	}
	store.ImportState(snapshot)
	if len(store.ListProjects()) != 1 {
		t.Fatalf("expected restored state")
	}
	if store.RulesEngine() == nil {
		t.Fatalf("expected rules engine")
	}
	if store.NowFunc() == nil {
		t.Fatalf("expected now func")
	}
}

func TestStoreRuleViolation(t *testing.T) {
	store := NewStore(domain.NewRulesEngine())
	store.RulesEngine().Register(blockingRule{})
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.CreateProject(domain.Project{Name: "Fail"})
		return e
	})
	if err == nil {
		t.Fatalf("expected rule violation error")
	}
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected RuleViolationError, got %T", err)
	}
	if len(store.ListProjects()) != 0 {
		t.Fatalf("blocked transaction must not commit")
	}
}

type blockingRule struct{}

func (blockingRule) Name() string { return "block" }

func (blockingRule) Evaluate(ctx context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	res.Merge(domain.Result{Violations: []domain.Violation{{Rule: "block", Severity: domain.SeverityBlock}}})
	return res, nil
}

func TestUpdateProjectErrors(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.UpdateProject("missing", func(*domain.Project) error { return nil }); err == nil {
			t.Fatalf("expected missing project error")
		}
		p, err := tx.CreateProject(domain.Project{Name: "Rare Disease", GenomeVersion: "38"})
		if err != nil {
			return err
		}
		_, err = tx.UpdateProject(p.GUID, func(*domain.Project) error { return fmt.Errorf("boom") })
		if err == nil {
			t.Fatalf("expected mutator error")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
}

func TestTransactionStateIsolatedUntilCommit(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	boom := fmt.Errorf("abort")
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.CreateProject(domain.Project{Name: "Discarded"}); err != nil {
			return err
		}
		return boom
	})
	if err != boom {
		t.Fatalf("expected abort error, got %v", err)
	}
	if len(store.ListProjects()) != 0 {
		t.Fatalf("aborted transaction leaked state")
	}
}

func TestSetNowFuncControlsTimestamps(t *testing.T) {
	store := NewStore(nil)
	fixed := time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC)
	store.SetNowFunc(func() time.Time { return fixed })
	var created domain.Project
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var e error
		created, e = tx.CreateProject(domain.Project{Name: "Clocked"})
		return e
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if !created.CreatedAt.Equal(fixed) || !created.UpdatedAt.Equal(fixed) {
		t.Fatalf("expected fixed timestamps, got %v / %v", created.CreatedAt, created.UpdatedAt)
	}
}

func TestViewSeesCommittedState(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateProject(domain.Project{Name: "Viewed"})
		return err
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := store.View(ctx, func(view domain.TransactionView) error {
		if len(view.ListProjects()) != 1 {
			t.Fatalf("expected one project in view")
		}
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
}
