package core

import (
	"context"
	"fmt"
	"time"

	"variantcore/internal/infra/persistence/memory"
	"variantcore/pkg/domain"
)

// Service exposes higher-level transactional CRUD operations for the core
// schema, instrumented with audit, metrics, and tracing hooks.
type Service struct {
	store   PersistentStore
	logger  Logger
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
}

// ServiceOption customizes service construction.
type ServiceOption func(*Service)

// WithLogger attaches a structured logger to the service.
func WithLogger(l Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAuditRecorder attaches an audit recorder invoked after every operation.
func WithAuditRecorder(a AuditRecorder) ServiceOption {
	return func(s *Service) {
		if a != nil {
			s.audit = a
		}
	}
}

// WithMetricsRecorder attaches a metrics recorder invoked after every operation.
func WithMetricsRecorder(m MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer attaches a tracer producing one span per operation.
func WithTracer(t Tracer) ServiceOption {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		logger:  noopLogger{},
		audit:   noopAuditRecorder{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service and in-memory store with the given rules engine.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// View executes fn against a read-only snapshot of committed state.
func (s *Service) View(ctx context.Context, fn func(TransactionView) error) error {
	return s.store.View(ctx, fn)
}

// ErrNotFound is returned when reference validation fails within transactional helpers.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// run wraps a store transaction with tracing, metrics, audit, and logging.
func (s *Service) run(ctx context.Context, op string, fn func(tx Transaction) error, entityID func() string) (Result, error) {
	ctx, span := s.tracer.Start(ctx, op)
	start := time.Now()
	res, err := s.store.RunInTransaction(ctx, fn)
	duration := time.Since(start)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)

	entry := AuditEntry{
		Operation:  op,
		Status:     AuditStatusSuccess,
		Violations: res.Violations,
		Duration:   duration,
		At:         time.Now().UTC(),
	}
	if entityID != nil {
		entry.EntityID = entityID()
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
		s.logger.Error("operation failed", "operation", op, "error", err)
	} else {
		for _, v := range res.Warnings() {
			s.logger.Warn("rule warning", "operation", op, "rule", v.Rule, "message", v.Message)
		}
		s.logger.Debug("operation committed", "operation", op, "entity_id", entry.EntityID)
	}
	s.audit.Record(ctx, entry)
	return res, err
}

// CreateProject persists a new project.
func (s *Service) CreateProject(ctx context.Context, project Project) (Project, Result, error) {
	var created Project
	res, err := s.run(ctx, "create_project", func(tx Transaction) error {
		var err error
		created, err = tx.CreateProject(project)
		return err
	}, func() string { return created.GUID })
	return created, res, err
}

// UpdateProject mutates a project using the provided mutator.
func (s *Service) UpdateProject(ctx context.Context, guid string, mutator func(*Project) error) (Project, Result, error) {
	var updated Project
	res, err := s.run(ctx, "update_project", func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateProject(guid, mutator)
		return err
	}, func() string { return guid })
	return updated, res, err
}

// DeleteProject removes a project record.
func (s *Service) DeleteProject(ctx context.Context, guid string) (Result, error) {
	return s.run(ctx, "delete_project", func(tx Transaction) error {
		return tx.DeleteProject(guid)
	}, func() string { return guid })
}

// CreateFamily persists a new family.
func (s *Service) CreateFamily(ctx context.Context, family Family) (Family, Result, error) {
	var created Family
	res, err := s.run(ctx, "create_family", func(tx Transaction) error {
		var err error
		created, err = tx.CreateFamily(family)
		return err
	}, func() string { return created.GUID })
	return created, res, err
}

// UpdateFamily mutates a family using the provided mutator.
func (s *Service) UpdateFamily(ctx context.Context, guid string, mutator func(*Family) error) (Family, Result, error) {
	var updated Family
	res, err := s.run(ctx, "update_family", func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateFamily(guid, mutator)
		return err
	}, func() string { return guid })
	return updated, res, err
}

// DeleteFamily removes a family record.
func (s *Service) DeleteFamily(ctx context.Context, guid string) (Result, error) {
	return s.run(ctx, "delete_family", func(tx Transaction) error {
		return tx.DeleteFamily(guid)
	}, func() string { return guid })
}

// SetFamilyAnalysisStatus transitions a family's analysis workflow state.
func (s *Service) SetFamilyAnalysisStatus(ctx context.Context, guid string, status AnalysisStatus) (Family, Result, error) {
	return s.UpdateFamily(ctx, guid, func(f *Family) error {
		f.AnalysisStatus = status
		return nil
	})
}

// RecordFamilyAnalysedBy appends an analysed-by entry to the family's history.
func (s *Service) RecordFamilyAnalysedBy(ctx context.Context, guid string, by AnalysedBy) (Family, Result, error) {
	if by.DateSaved.IsZero() {
		by.DateSaved = time.Now().UTC()
	}
	return s.UpdateFamily(ctx, guid, func(f *Family) error {
		f.AnalysedBy = append(f.AnalysedBy, by)
		return nil
	})
}

// CreateIndividual persists a new individual.
func (s *Service) CreateIndividual(ctx context.Context, individual Individual) (Individual, Result, error) {
	var created Individual
	res, err := s.run(ctx, "create_individual", func(tx Transaction) error {
		var err error
		created, err = tx.CreateIndividual(individual)
		return err
	}, func() string { return created.GUID })
	return created, res, err
}

// UpdateIndividual mutates an individual using the provided mutator.
func (s *Service) UpdateIndividual(ctx context.Context, guid string, mutator func(*Individual) error) (Individual, Result, error) {
	var updated Individual
	res, err := s.run(ctx, "update_individual", func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateIndividual(guid, mutator)
		return err
	}, func() string { return guid })
	return updated, res, err
}

// DeleteIndividual removes an individual record.
func (s *Service) DeleteIndividual(ctx context.Context, guid string) (Result, error) {
	return s.run(ctx, "delete_individual", func(tx Transaction) error {
		return tx.DeleteIndividual(guid)
	}, func() string { return guid })
}

// CreateSample persists a new sequencing sample.
func (s *Service) CreateSample(ctx context.Context, sample Sample) (Sample, Result, error) {
	var created Sample
	res, err := s.run(ctx, "create_sample", func(tx Transaction) error {
		var err error
		created, err = tx.CreateSample(sample)
		return err
	}, func() string { return created.GUID })
	return created, res, err
}

// UpdateSample mutates a sample using the provided mutator.
func (s *Service) UpdateSample(ctx context.Context, guid string, mutator func(*Sample) error) (Sample, Result, error) {
	var updated Sample
	res, err := s.run(ctx, "update_sample", func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateSample(guid, mutator)
		return err
	}, func() string { return guid })
	return updated, res, err
}

// DeleteSample removes a sample record.
func (s *Service) DeleteSample(ctx context.Context, guid string) (Result, error) {
	return s.run(ctx, "delete_sample", func(tx Transaction) error {
		return tx.DeleteSample(guid)
	}, func() string { return guid })
}

// MarkSampleLoaded transitions a sample to loaded with its callset metadata.
func (s *Service) MarkSampleLoaded(ctx context.Context, guid string, loadedDate time.Time, searchIndex string) (Sample, Result, error) {
	if loadedDate.IsZero() {
		loadedDate = time.Now().UTC()
	}
	return s.UpdateSample(ctx, guid, func(sm *Sample) error {
		sm.Status = domain.SampleStatusLoaded
		sm.LoadedDate = &loadedDate
		if searchIndex != "" {
			sm.SearchIndex = &searchIndex
		}
		return nil
	})
}

// CreateSavedVariant persists a new saved variant.
func (s *Service) CreateSavedVariant(ctx context.Context, variant SavedVariant) (SavedVariant, Result, error) {
	var created SavedVariant
	res, err := s.run(ctx, "create_saved_variant", func(tx Transaction) error {
		var err error
		created, err = tx.CreateSavedVariant(variant)
		return err
	}, func() string { return created.GUID })
	return created, res, err
}

// UpdateSavedVariant mutates a saved variant using the provided mutator.
func (s *Service) UpdateSavedVariant(ctx context.Context, guid string, mutator func(*SavedVariant) error) (SavedVariant, Result, error) {
	var updated SavedVariant
	res, err := s.run(ctx, "update_saved_variant", func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateSavedVariant(guid, mutator)
		return err
	}, func() string { return guid })
	return updated, res, err
}

// DeleteSavedVariant removes a saved variant record.
func (s *Service) DeleteSavedVariant(ctx context.Context, guid string) (Result, error) {
	return s.run(ctx, "delete_saved_variant", func(tx Transaction) error {
		return tx.DeleteSavedVariant(guid)
	}, func() string { return guid })
}

// TagSavedVariantForFamily links a saved variant to an additional family after
// validating the family exists in the same transactional scope.
func (s *Service) TagSavedVariantForFamily(ctx context.Context, variantGUID, familyGUID string) (SavedVariant, Result, error) {
	var updated SavedVariant
	res, err := s.run(ctx, "tag_saved_variant_for_family", func(tx Transaction) error {
		if _, ok := tx.FindFamily(familyGUID); !ok {
			return ErrNotFound{Entity: EntityFamily, ID: familyGUID}
		}
		var err error
		updated, err = tx.UpdateSavedVariant(variantGUID, func(v *SavedVariant) error {
			for _, existing := range v.FamilyGUIDs {
				if existing == familyGUID {
					return nil
				}
			}
			v.FamilyGUIDs = append(v.FamilyGUIDs, familyGUID)
			return nil
		})
		return err
	}, func() string { return variantGUID })
	return updated, res, err
}

// CreateLocusList persists a new locus list.
func (s *Service) CreateLocusList(ctx context.Context, list LocusList) (LocusList, Result, error) {
	var created LocusList
	res, err := s.run(ctx, "create_locus_list", func(tx Transaction) error {
		var err error
		created, err = tx.CreateLocusList(list)
		return err
	}, func() string { return created.GUID })
	return created, res, err
}

// UpdateLocusList mutates a locus list using the provided mutator.
func (s *Service) UpdateLocusList(ctx context.Context, guid string, mutator func(*LocusList) error) (LocusList, Result, error) {
	var updated LocusList
	res, err := s.run(ctx, "update_locus_list", func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateLocusList(guid, mutator)
		return err
	}, func() string { return guid })
	return updated, res, err
}

// DeleteLocusList removes a locus list record.
func (s *Service) DeleteLocusList(ctx context.Context, guid string) (Result, error) {
	return s.run(ctx, "delete_locus_list", func(tx Transaction) error {
		return tx.DeleteLocusList(guid)
	}, func() string { return guid })
}

// CreateGene persists reference gene metadata.
func (s *Service) CreateGene(ctx context.Context, gene Gene) (Gene, Result, error) {
	var created Gene
	res, err := s.run(ctx, "create_gene", func(tx Transaction) error {
		var err error
		created, err = tx.CreateGene(gene)
		return err
	}, func() string { return created.GUID })
	return created, res, err
}

// UpdateGene mutates gene metadata using the provided mutator.
func (s *Service) UpdateGene(ctx context.Context, guid string, mutator func(*Gene) error) (Gene, Result, error) {
	var updated Gene
	res, err := s.run(ctx, "update_gene", func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateGene(guid, mutator)
		return err
	}, func() string { return guid })
	return updated, res, err
}

// DeleteGene removes a gene record.
func (s *Service) DeleteGene(ctx context.Context, guid string) (Result, error) {
	return s.run(ctx, "delete_gene", func(tx Transaction) error {
		return tx.DeleteGene(guid)
	}, func() string { return guid })
}

// CreateSubmission persists a new matchmaker submission.
func (s *Service) CreateSubmission(ctx context.Context, submission MatchmakerSubmission) (MatchmakerSubmission, Result, error) {
	var created MatchmakerSubmission
	res, err := s.run(ctx, "create_submission", func(tx Transaction) error {
		var err error
		created, err = tx.CreateSubmission(submission)
		return err
	}, func() string { return created.GUID })
	return created, res, err
}

// UpdateSubmission mutates a matchmaker submission using the provided mutator.
func (s *Service) UpdateSubmission(ctx context.Context, guid string, mutator func(*MatchmakerSubmission) error) (MatchmakerSubmission, Result, error) {
	var updated MatchmakerSubmission
	res, err := s.run(ctx, "update_submission", func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateSubmission(guid, mutator)
		return err
	}, func() string { return guid })
	return updated, res, err
}

// DeleteSubmission removes a matchmaker submission record.
func (s *Service) DeleteSubmission(ctx context.Context, guid string) (Result, error) {
	return s.run(ctx, "delete_submission", func(tx Transaction) error {
		return tx.DeleteSubmission(guid)
	}, func() string { return guid })
}

// RetractSubmission marks a matchmaker submission as withdrawn without losing
// the submission history.
func (s *Service) RetractSubmission(ctx context.Context, guid, by string, date time.Time) (MatchmakerSubmission, Result, error) {
	if date.IsZero() {
		date = time.Now().UTC()
	}
	return s.UpdateSubmission(ctx, guid, func(m *MatchmakerSubmission) error {
		m.Deletion = &domain.SubmissionDeletion{By: by, Date: date}
		return nil
	})
}
