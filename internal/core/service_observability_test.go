package core

import (
	"bytes"
	"context"
	"expvar"
	"strings"
	"testing"
	"time"

	"variantcore/pkg/domain"
)

type captureAuditRecorder struct {
	entries []AuditEntry
}

func (c *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	c.entries = append(c.entries, entry)
}

func (c *captureAuditRecorder) has(op string, status AuditStatus, predicate func(AuditEntry) bool) bool {
	for _, entry := range c.entries {
		if entry.Operation == op && entry.Status == status {
			if predicate == nil || predicate(entry) {
				return true
			}
		}
	}
	return false
}

type metricsCall struct {
	op       string
	success  bool
	duration time.Duration
}

type captureMetricsRecorder struct {
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, duration time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success, duration: duration})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type captureTracer struct {
	started []string
	ended   []spanRecord
}

type spanRecord struct {
	op  string
	err error
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	c.started = append(c.started, op)
	return ctx, &captureSpan{tracer: c, op: op}
}

func (c *captureTracer) has(op string, success bool) bool {
	for _, record := range c.ended {
		if record.op == op {
			if success && record.err == nil {
				return true
			}
			if !success && record.err != nil {
				return true
			}
		}
	}
	return false
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}

func strPtr(s string) *string { return &s }

func TestServiceObservabilityComplianceEntities(t *testing.T) {
	ctx := context.Background()
	audit := &captureAuditRecorder{}
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}

	svc := NewInMemoryService(NewRulesEngine(),
		WithAuditRecorder(audit),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
	)

	const updatedDesc = "updated"

	project, _, err := svc.CreateProject(ctx, domain.Project{Name: "Rare Disease", GenomeVersion: "38"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if !audit.has("create_project", AuditStatusSuccess, func(entry AuditEntry) bool { return entry.EntityID == project.GUID }) {
		t.Fatalf("expected audit entry for create_project success")
	}

	if _, _, err := svc.UpdateProject(ctx, project.GUID, func(p *domain.Project) error {
		p.Description = strPtr(updatedDesc)
		return nil
	}); err != nil {
		t.Fatalf("update project: %v", err)
	}
	if !audit.has("update_project", AuditStatusSuccess, nil) {
		t.Fatalf("expected audit entry for update_project success")
	}

	if _, err := svc.DeleteProject(ctx, "missing-project"); err == nil {
		t.Fatalf("expected delete_project error for missing guid")
	}
	if !audit.has("delete_project", AuditStatusError, nil) {
		t.Fatalf("expected audit error entry for delete_project")
	}
	if !metrics.has("delete_project", false) {
		t.Fatalf("expected metrics entry for failed delete_project")
	}
	if !tracer.has("delete_project", false) {
		t.Fatalf("expected trace span for failed delete_project")
	}

	family, _, err := svc.CreateFamily(ctx, domain.Family{ProjectGUID: project.GUID, FamilyID: "F001"})
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	if _, _, err := svc.UpdateFamily(ctx, family.GUID, func(f *domain.Family) error {
		f.Description = strPtr(updatedDesc)
		return nil
	}); err != nil {
		t.Fatalf("update family: %v", err)
	}

	individual, _, err := svc.CreateIndividual(ctx, domain.Individual{
		ProjectGUID:  project.GUID,
		FamilyGUID:   family.GUID,
		IndividualID: "F001_1",
	})
	if err != nil {
		t.Fatalf("create individual: %v", err)
	}
	if _, _, err := svc.UpdateIndividual(ctx, individual.GUID, func(i *domain.Individual) error {
		i.Notes = strPtr(updatedDesc)
		return nil
	}); err != nil {
		t.Fatalf("update individual: %v", err)
	}

	sample, _, err := svc.CreateSample(ctx, domain.Sample{
		ProjectGUID:    project.GUID,
		IndividualGUID: individual.GUID,
		SampleID:       "S-1",
	})
	if err != nil {
		t.Fatalf("create sample: %v", err)
	}
	if _, _, err := svc.UpdateSample(ctx, sample.GUID, func(s *domain.Sample) error {
		s.DatasetFilePath = strPtr("/data/callset.vcf.gz")
		return nil
	}); err != nil {
		t.Fatalf("update sample: %v", err)
	}

	xpos, err := domain.XPos("1", 248367227)
	if err != nil {
		t.Fatalf("xpos: %v", err)
	}
	variant, _, err := svc.CreateSavedVariant(ctx, domain.SavedVariant{
		ProjectGUID: project.GUID,
		FamilyGUIDs: []string{family.GUID},
		XPos:        xpos,
		Ref:         "TC",
		Alt:         "T",
	})
	if err != nil {
		t.Fatalf("create saved variant: %v", err)
	}
	if !audit.has("create_saved_variant", AuditStatusSuccess, func(entry AuditEntry) bool { return entry.EntityID == variant.GUID }) {
		t.Fatalf("expected audit entry for create_saved_variant")
	}
	if _, _, err := svc.UpdateSavedVariant(ctx, variant.GUID, func(v *domain.SavedVariant) error {
		v.Note = strPtr(updatedDesc)
		return nil
	}); err != nil {
		t.Fatalf("update saved variant: %v", err)
	}

	list, _, err := svc.CreateLocusList(ctx, domain.LocusList{
		ProjectGUID: project.GUID,
		Name:        "Candidate Genes",
		Items:       []domain.LocusListItem{{GeneID: "ENSG00000186092"}},
	})
	if err != nil {
		t.Fatalf("create locus list: %v", err)
	}
	if _, _, err := svc.UpdateLocusList(ctx, list.GUID, func(l *domain.LocusList) error {
		l.IsPublic = true
		return nil
	}); err != nil {
		t.Fatalf("update locus list: %v", err)
	}

	gene, _, err := svc.CreateGene(ctx, domain.Gene{GeneID: "ENSG00000186092", Symbol: "OR4F5", Chrom: "1", Start: 69091, End: 70008})
	if err != nil {
		t.Fatalf("create gene: %v", err)
	}
	if _, _, err := svc.UpdateGene(ctx, gene.GUID, func(g *domain.Gene) error {
		g.End = 70010
		return nil
	}); err != nil {
		t.Fatalf("update gene: %v", err)
	}

	submission, _, err := svc.CreateSubmission(ctx, domain.MatchmakerSubmission{
		ProjectGUID:  project.GUID,
		FamilyID:     family.FamilyID,
		IndividualID: individual.IndividualID,
	})
	if err != nil {
		t.Fatalf("create submission: %v", err)
	}
	if _, _, err := svc.UpdateSubmission(ctx, submission.GUID, func(m *domain.MatchmakerSubmission) error {
		m.SubmittedData = map[string]any{"features": []string{"HP:0001250"}}
		return nil
	}); err != nil {
		t.Fatalf("update submission: %v", err)
	}

	if _, err := svc.DeleteSubmission(ctx, submission.GUID); err != nil {
		t.Fatalf("delete submission: %v", err)
	}
	if _, err := svc.DeleteGene(ctx, "missing-gene"); err == nil {
		t.Fatalf("expected delete_gene error for missing guid")
	}
	if _, err := svc.DeleteLocusList(ctx, list.GUID); err != nil {
		t.Fatalf("delete locus list: %v", err)
	}
	if _, err := svc.DeleteGene(ctx, gene.GUID); err != nil {
		t.Fatalf("delete gene: %v", err)
	}
	if _, err := svc.DeleteSavedVariant(ctx, variant.GUID); err != nil {
		t.Fatalf("delete saved variant: %v", err)
	}
	if _, err := svc.DeleteSample(ctx, sample.GUID); err != nil {
		t.Fatalf("delete sample: %v", err)
	}
	if _, err := svc.DeleteIndividual(ctx, individual.GUID); err != nil {
		t.Fatalf("delete individual: %v", err)
	}
	if _, err := svc.DeleteFamily(ctx, family.GUID); err != nil {
		t.Fatalf("delete family: %v", err)
	}
	if _, err := svc.DeleteProject(ctx, project.GUID); err != nil {
		t.Fatalf("delete project success: %v", err)
	}

	successOps := []string{
		"create_project", "update_project", "delete_project",
		"create_family", "update_family", "delete_family",
		"create_individual", "update_individual", "delete_individual",
		"create_sample", "update_sample", "delete_sample",
		"create_saved_variant", "update_saved_variant", "delete_saved_variant",
		"create_locus_list", "update_locus_list", "delete_locus_list",
		"create_gene", "update_gene", "delete_gene",
		"create_submission", "update_submission", "delete_submission",
	}

	for _, op := range successOps {
		if !metrics.has(op, true) {
			t.Fatalf("expected metrics success entry for %s", op)
		}
		if !tracer.has(op, true) {
			t.Fatalf("expected finished span for %s", op)
		}
		if !audit.has(op, AuditStatusSuccess, nil) {
			t.Fatalf("expected audit success entry for %s", op)
		}
	}
}

const entryStatusSuccess = "success"
const entryStatusError = "error"

func TestExpvarMetricsRecorderExports(t *testing.T) {
	recorder := NewExpvarMetricsRecorder("")
	if recorder.Name() == "" {
		t.Fatalf("expected recorder to have export name")
	}
	recorder.Observe(context.Background(), "test_op", true, 10*time.Millisecond)
	recorder.Observe(context.Background(), "test_op", false, 5*time.Millisecond)

	snapshot := recorder.Snapshot()
	if snapshot.DurationsMS["test_op"] <= 0 {
		t.Fatalf("expected positive duration, snapshot=%+v", snapshot)
	}
	if snapshot.Results["test_op"][entryStatusSuccess] != 1 || snapshot.Results["test_op"][entryStatusError] != 1 {
		t.Fatalf("unexpected results snapshot=%+v", snapshot)
	}

	if v := expvar.Get(recorder.Name()); v == nil {
		t.Fatalf("expected expvar export to be registered")
	} else if !strings.Contains(v.String(), "test_op") {
		t.Fatalf("expected expvar output to contain operation: %s", v.String())
	}
}

func TestJSONTraceTracerExports(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	_, span := tracer.Start(context.Background(), "trace_op")
	span.End(nil)

	entries := tracer.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected single span entry, got %d", len(entries))
	}
	if entries[0].Operation != "trace_op" || entries[0].Status != entryStatusSuccess {
		t.Fatalf("unexpected span entry: %+v", entries[0])
	}
	if !strings.Contains(buf.String(), "\"operation\":\"trace_op\"") {
		t.Fatalf("expected JSON output to contain operation: %q", buf.String())
	}
}
