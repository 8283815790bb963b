package memory

import (
	"context"
	"strings"
	"testing"
	"time"

	"variantcore/pkg/domain"
)

func seedProject(t *testing.T, store *Store, name string) domain.Project {
	t.Helper()
	var project domain.Project
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		project, err = tx.CreateProject(domain.Project{Name: name, GenomeVersion: "37"})
		return err
	}); err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return project
}

func seedFamily(t *testing.T, store *Store, projectGUID, familyID string) domain.Family {
	t.Helper()
	var family domain.Family
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		family, err = tx.CreateFamily(domain.Family{ProjectGUID: projectGUID, FamilyID: familyID, DisplayName: familyID})
		return err
	}); err != nil {
		t.Fatalf("seed family: %v", err)
	}
	return family
}

func TestFamilyLifecycleAndDefaults(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	project := seedProject(t, store, "CMG Demo")

	var family domain.Family
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		family, err = tx.CreateFamily(domain.Family{ProjectGUID: project.GUID, FamilyID: "F001"})
		return err
	}); err != nil {
		t.Fatalf("create family: %v", err)
	}
	if family.AnalysisStatus != domain.AnalysisStatusWaitingForData {
		t.Fatalf("expected default analysis status, got %q", family.AnalysisStatus)
	}

	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.UpdateFamily(family.GUID, func(f *domain.Family) error {
			f.AnalysisStatus = domain.AnalysisStatusSolved
			f.AnalysedBy = append(f.AnalysedBy, domain.AnalysedBy{DisplayName: "Ana Lyst", Email: "ana@example.org", DateSaved: time.Now()})
			return nil
		})
		return err
	}); err != nil {
		t.Fatalf("update family: %v", err)
	}
	got, ok := store.GetFamily(family.GUID)
	if !ok || got.AnalysisStatus != domain.AnalysisStatusSolved || len(got.AnalysedBy) != 1 {
		t.Fatalf("unexpected family after update: %+v", got)
	}

	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeleteFamily(family.GUID)
	}); err != nil {
		t.Fatalf("delete family: %v", err)
	}
	if _, ok := store.GetFamily(family.GUID); ok {
		t.Fatalf("expected deleted family")
	}
}

func TestCreateFamilyRequiresFamilyID(t *testing.T) {
	store := NewStore(nil)
	project := seedProject(t, store, "P")
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.CreateFamily(domain.Family{ProjectGUID: project.GUID})
		return e
	})
	if err == nil || !strings.Contains(err.Error(), "family id") {
		t.Fatalf("expected family id error, got %v", err)
	}
}

func TestIndividualRequiresKnownFamily(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.CreateIndividual(domain.Individual{FamilyGUID: "ghost", IndividualID: "IND-1"})
		return e
	})
	if err == nil || !strings.Contains(err.Error(), "unknown family") {
		t.Fatalf("expected unknown family error, got %v", err)
	}
}

func TestSampleRequiresKnownIndividual(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.CreateSample(domain.Sample{IndividualGUID: "ghost", SampleID: "NA12878"})
		return e
	})
	if err == nil || !strings.Contains(err.Error(), "unknown individual") {
		t.Fatalf("expected unknown individual error, got %v", err)
	}
}

func TestDeleteGuards(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	project := seedProject(t, store, "Guarded")
	family := seedFamily(t, store, project.GUID, "F001")

	var individual domain.Individual
	var sample domain.Sample
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		individual, err = tx.CreateIndividual(domain.Individual{
			ProjectGUID:  project.GUID,
			FamilyGUID:   family.GUID,
			IndividualID: "IND-1",
		})
		if err != nil {
			return err
		}
		sample, err = tx.CreateSample(domain.Sample{
			ProjectGUID:    project.GUID,
			IndividualGUID: individual.GUID,
			SampleID:       "NA12878",
			SampleType:     domain.SampleTypeWES,
		})
		return err
	}); err != nil {
		t.Fatalf("seed pedigree: %v", err)
	}

	cases := []struct {
		name string
		fn   func(tx domain.Transaction) error
		want string
	}{
		{"project with families", func(tx domain.Transaction) error { return tx.DeleteProject(project.GUID) }, "still referenced by family"},
		{"family with individuals", func(tx domain.Transaction) error { return tx.DeleteFamily(family.GUID) }, "still referenced by individual"},
		{"individual with samples", func(tx domain.Transaction) error { return tx.DeleteIndividual(individual.GUID) }, "still referenced by sample"},
	}
	for _, tc := range cases {
		if _, err := store.RunInTransaction(ctx, tc.fn); err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected guard error containing %q, got %v", tc.name, tc.want, err)
		}
	}

	// Deleting bottom-up succeeds.
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if err := tx.DeleteSample(sample.GUID); err != nil {
			return err
		}
		if err := tx.DeleteIndividual(individual.GUID); err != nil {
			return err
		}
		if err := tx.DeleteFamily(family.GUID); err != nil {
			return err
		}
		return tx.DeleteProject(project.GUID)
	}); err != nil {
		t.Fatalf("bottom-up delete: %v", err)
	}
}

func TestFamilyDeleteGuardedBySavedVariant(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	project := seedProject(t, store, "Variants")
	family := seedFamily(t, store, project.GUID, "F001")

	xpos, err := domain.XPos("1", 248367227)
	if err != nil {
		t.Fatalf("xpos: %v", err)
	}
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, e := tx.CreateSavedVariant(domain.SavedVariant{
			ProjectGUID: project.GUID,
			FamilyGUIDs: []string{family.GUID},
			XPos:        xpos,
			Ref:         "TC",
			Alt:         "T",
		})
		return e
	}); err != nil {
		t.Fatalf("create variant: %v", err)
	}
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeleteFamily(family.GUID)
	}); err == nil || !strings.Contains(err.Error(), "still referenced by saved variant") {
		t.Fatalf("expected saved variant guard, got %v", err)
	}
}

func TestSavedVariantValidation(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	project := seedProject(t, store, "V")
	for _, tc := range []struct {
		name    string
		variant domain.SavedVariant
		want    string
	}{
		{"missing xpos", domain.SavedVariant{ProjectGUID: project.GUID, Ref: "A", Alt: "T"}, "positive xpos"},
		{"missing alleles", domain.SavedVariant{ProjectGUID: project.GUID, XPos: 1000000001}, "ref and alt"},
	} {
		if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			_, e := tx.CreateSavedVariant(tc.variant)
			return e
		}); err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error containing %q, got %v", tc.name, tc.want, err)
		}
	}
}

func TestLocusListItemValidation(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	project := seedProject(t, store, "Lists")
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, e := tx.CreateLocusList(domain.LocusList{
			ProjectGUID: project.GUID,
			Name:        "Bad",
			Items:       []domain.LocusListItem{{Chrom: "2", Start: 10, End: 5}},
		})
		return e
	})
	if err == nil || !strings.Contains(err.Error(), "start <= end") {
		t.Fatalf("expected interval validation error, got %v", err)
	}

	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, e := tx.CreateLocusList(domain.LocusList{
			ProjectGUID: project.GUID,
			Name:        "Good",
			Items: []domain.LocusListItem{
				{GeneID: "ENSG00000135953"},
				{Chrom: "2", Start: 100, End: 200},
			},
		})
		return e
	}); err != nil {
		t.Fatalf("valid list rejected: %v", err)
	}
}

func TestGeneUniquenessAndDeleteGuard(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	project := seedProject(t, store, "Genes")

	var gene domain.Gene
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		gene, err = tx.CreateGene(domain.Gene{GeneID: "ENSG00000135953", Symbol: "MFSD8", Chrom: "4", Start: 100, End: 200})
		return err
	}); err != nil {
		t.Fatalf("create gene: %v", err)
	}

	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, e := tx.CreateGene(domain.Gene{GeneID: "ENSG00000135953", Symbol: "DUP"})
		return e
	}); err == nil || !strings.Contains(err.Error(), "already registered") {
		t.Fatalf("expected duplicate gene id error, got %v", err)
	}

	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, e := tx.CreateLocusList(domain.LocusList{
			ProjectGUID: project.GUID,
			Name:        "Uses gene",
			Items:       []domain.LocusListItem{{GeneID: gene.GeneID}},
		})
		return e
	}); err != nil {
		t.Fatalf("create list: %v", err)
	}

	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeleteGene(gene.GUID)
	}); err == nil || !strings.Contains(err.Error(), "still referenced by locus list") {
		t.Fatalf("expected gene delete guard, got %v", err)
	}
}

func TestSubmissionDefaultsAndLifecycle(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	project := seedProject(t, store, "MME")

	var submission domain.MatchmakerSubmission
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		submission, err = tx.CreateSubmission(domain.MatchmakerSubmission{
			ProjectGUID:  project.GUID,
			FamilyID:     "F001",
			IndividualID: "IND-1",
			SubmittedData: map[string]any{
				"patient": map[string]any{"id": "IND-1"},
			},
		})
		return err
	}); err != nil {
		t.Fatalf("create submission: %v", err)
	}
	if submission.SubmittedAt.IsZero() {
		t.Fatalf("expected defaulted submission date")
	}

	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.UpdateSubmission(submission.GUID, func(m *domain.MatchmakerSubmission) error {
			m.Deletion = &domain.SubmissionDeletion{By: "staff@example.org", Date: time.Now()}
			return nil
		})
		return err
	}); err != nil {
		t.Fatalf("update submission: %v", err)
	}
	got, ok := store.GetSubmission(submission.GUID)
	if !ok || got.Deletion == nil {
		t.Fatalf("expected deletion metadata to persist")
	}

	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeleteSubmission(submission.GUID)
	}); err != nil {
		t.Fatalf("delete submission: %v", err)
	}
}

func TestDecoratedBackReferences(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	project := seedProject(t, store, "Decorated")
	family := seedFamily(t, store, project.GUID, "F001")

	var individual domain.Individual
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		individual, err = tx.CreateIndividual(domain.Individual{ProjectGUID: project.GUID, FamilyGUID: family.GUID, IndividualID: "IND-1"})
		if err != nil {
			return err
		}
		if _, err = tx.CreateSample(domain.Sample{ProjectGUID: project.GUID, IndividualGUID: individual.GUID, SampleID: "S1", SampleType: domain.SampleTypeWGS}); err != nil {
			return err
		}
		_, err = tx.CreateLocusList(domain.LocusList{ProjectGUID: project.GUID, Name: "L1"})
		return err
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	gotFamily, _ := store.GetFamily(family.GUID)
	if len(gotFamily.IndividualIDs) != 1 || gotFamily.IndividualIDs[0] != individual.GUID {
		t.Fatalf("expected family individual back-refs, got %v", gotFamily.IndividualIDs)
	}
	gotIndividual, _ := store.GetIndividual(individual.GUID)
	if len(gotIndividual.SampleIDs) != 1 {
		t.Fatalf("expected individual sample back-refs, got %v", gotIndividual.SampleIDs)
	}
	gotProject, _ := store.GetProject(project.GUID)
	if len(gotProject.LocusListIDs) != 1 {
		t.Fatalf("expected project locus list back-refs, got %v", gotProject.LocusListIDs)
	}
}

func TestClonePreventsAliasing(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	project := seedProject(t, store, "Aliasing")
	family := seedFamily(t, store, project.GUID, "F001")

	xpos, _ := domain.XPos("X", 500000)
	var variant domain.SavedVariant
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		variant, err = tx.CreateSavedVariant(domain.SavedVariant{
			ProjectGUID: project.GUID,
			FamilyGUIDs: []string{family.GUID},
			XPos:        xpos,
			Ref:         "G",
			Alt:         "A",
			Tags:        []domain.VariantTag{{Name: "Tier 1", Category: "CMG Discovery Tags"}},
		})
		return err
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	variant.Tags[0].Name = "mutated"
	variant.FamilyGUIDs[0] = "mutated"
	stored, _ := store.GetSavedVariant(variant.GUID)
	if stored.Tags[0].Name != "Tier 1" || stored.FamilyGUIDs[0] != family.GUID {
		t.Fatalf("store state aliased caller slices: %+v", stored)
	}
}
