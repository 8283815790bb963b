// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"variantcore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Project aliases domain.Project for in-memory persistence operations.
	Project = domain.Project
	// Family aliases domain.Family.
	Family = domain.Family
	// Individual aliases domain.Individual.
	Individual = domain.Individual
	// Sample aliases domain.Sample.
	Sample = domain.Sample
	// SavedVariant aliases domain.SavedVariant.
	SavedVariant = domain.SavedVariant
	// LocusList aliases domain.LocusList.
	LocusList = domain.LocusList
	// Gene aliases domain.Gene.
	Gene = domain.Gene
	// MatchmakerSubmission aliases domain.MatchmakerSubmission.
	MatchmakerSubmission = domain.MatchmakerSubmission
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore abstraction.
	PersistentStore = domain.PersistentStore
)

type memoryState struct {
	projects    map[string]Project
	families    map[string]Family
	individuals map[string]Individual
	samples     map[string]Sample
	variants    map[string]SavedVariant
	locusLists  map[string]LocusList
	genes       map[string]Gene
	submissions map[string]MatchmakerSubmission
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Projects    map[string]Project              `json:"projects"`
	Families    map[string]Family               `json:"families"`
	Individuals map[string]Individual           `json:"individuals"`
	Samples     map[string]Sample               `json:"samples"`
	Variants    map[string]SavedVariant         `json:"saved_variants"`
	LocusLists  map[string]LocusList            `json:"locus_lists"`
	Genes       map[string]Gene                 `json:"genes"`
	Submissions map[string]MatchmakerSubmission `json:"matchmaker_submissions"`
}

func newMemoryState() memoryState {
	return memoryState{
		projects:    make(map[string]Project),
		families:    make(map[string]Family),
		individuals: make(map[string]Individual),
		samples:     make(map[string]Sample),
		variants:    make(map[string]SavedVariant),
		locusLists:  make(map[string]LocusList),
		genes:       make(map[string]Gene),
		submissions: make(map[string]MatchmakerSubmission),
	}
}

func (m memoryState) clone() memoryState {
	out := newMemoryState()
	for id, p := range m.projects {
		out.projects[id] = cloneProject(p)
	}
	for id, f := range m.families {
		out.families[id] = cloneFamily(f)
	}
	for id, i := range m.individuals {
		out.individuals[id] = cloneIndividual(i)
	}
	for id, s := range m.samples {
		out.samples[id] = cloneSample(s)
	}
	for id, v := range m.variants {
		out.variants[id] = cloneSavedVariant(v)
	}
	for id, l := range m.locusLists {
		out.locusLists[id] = cloneLocusList(l)
	}
	for id, g := range m.genes {
		out.genes[id] = g
	}
	for id, sub := range m.submissions {
		out.submissions[id] = cloneSubmission(sub)
	}
	return out
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	cloned := state.clone()
	return Snapshot{
		Projects:    cloned.projects,
		Families:    cloned.families,
		Individuals: cloned.individuals,
		Samples:     cloned.samples,
		Variants:    cloned.variants,
		LocusLists:  cloned.locusLists,
		Genes:       cloned.genes,
		Submissions: cloned.submissions,
	}
}

func memoryStateFromSnapshot(snapshot Snapshot) memoryState {
	state := newMemoryState()
	for id, p := range snapshot.Projects {
		state.projects[id] = cloneProject(p)
	}
	for id, f := range snapshot.Families {
		state.families[id] = cloneFamily(f)
	}
	for id, i := range snapshot.Individuals {
		state.individuals[id] = cloneIndividual(i)
	}
	for id, s := range snapshot.Samples {
		state.samples[id] = cloneSample(s)
	}
	for id, v := range snapshot.Variants {
		state.variants[id] = cloneSavedVariant(v)
	}
	for id, l := range snapshot.LocusLists {
		state.locusLists[id] = cloneLocusList(l)
	}
	for id, g := range snapshot.Genes {
		state.genes[id] = g
	}
	for id, sub := range snapshot.Submissions {
		state.submissions[id] = cloneSubmission(sub)
	}
	return state
}

// migrateSnapshot normalizes snapshots produced by older builds: guid keys are
// re-derived from record bodies and dangling cross-references are dropped.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	out := Snapshot{
		Projects:    make(map[string]Project, len(snapshot.Projects)),
		Families:    make(map[string]Family, len(snapshot.Families)),
		Individuals: make(map[string]Individual, len(snapshot.Individuals)),
		Samples:     make(map[string]Sample, len(snapshot.Samples)),
		Variants:    make(map[string]SavedVariant, len(snapshot.Variants)),
		LocusLists:  make(map[string]LocusList, len(snapshot.LocusLists)),
		Genes:       make(map[string]Gene, len(snapshot.Genes)),
		Submissions: make(map[string]MatchmakerSubmission, len(snapshot.Submissions)),
	}
	for key, p := range snapshot.Projects {
		if p.GUID == "" {
			p.GUID = key
		}
		out.Projects[p.GUID] = p
	}
	for key, f := range snapshot.Families {
		if f.GUID == "" {
			f.GUID = key
		}
		out.Families[f.GUID] = f
	}
	for key, i := range snapshot.Individuals {
		if i.GUID == "" {
			i.GUID = key
		}
		out.Individuals[i.GUID] = i
	}
	for key, s := range snapshot.Samples {
		if s.GUID == "" {
			s.GUID = key
		}
		out.Samples[s.GUID] = s
	}
	for key, v := range snapshot.Variants {
		if v.GUID == "" {
			v.GUID = key
		}
		if changed, ok := filterIDs(v.FamilyGUIDs, func(id string) bool {
			_, exists := out.Families[id]
			if !exists {
				_, exists = snapshot.Families[id]
			}
			return exists
		}); ok {
			v.FamilyGUIDs = changed
		}
		out.Variants[v.GUID] = v
	}
	for key, l := range snapshot.LocusLists {
		if l.GUID == "" {
			l.GUID = key
		}
		out.LocusLists[l.GUID] = l
	}
	for key, g := range snapshot.Genes {
		if g.GUID == "" {
			g.GUID = key
		}
		out.Genes[g.GUID] = g
	}
	for key, sub := range snapshot.Submissions {
		if sub.GUID == "" {
			sub.GUID = key
		}
		out.Submissions[sub.GUID] = sub
	}
	return out
}

func filterIDs(values []string, exists func(string) bool) ([]string, bool) {
	if len(values) == 0 {
		return nil, false
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	changed := false
	for _, v := range values {
		if _, ok := seen[v]; ok {
			changed = true
			continue
		}
		seen[v] = struct{}{}
		if !exists(v) {
			changed = true
			continue
		}
		out = append(out, v)
	}
	if !changed && len(out) == len(values) {
		return values, false
	}
	return out, true
}

func cloneProject(p Project) Project {
	cp := p
	if p.Description != nil {
		d := *p.Description
		cp.Description = &d
	}
	cp.LocusListIDs = append([]string(nil), p.LocusListIDs...)
	return cp
}

func cloneFamily(f Family) Family {
	cp := f
	if f.Description != nil {
		d := *f.Description
		cp.Description = &d
	}
	if f.CodedPhenotype != nil {
		p := *f.CodedPhenotype
		cp.CodedPhenotype = &p
	}
	if f.OMIMNumber != nil {
		n := *f.OMIMNumber
		cp.OMIMNumber = &n
	}
	cp.AnalysedBy = append([]domain.AnalysedBy(nil), f.AnalysedBy...)
	cp.IndividualIDs = append([]string(nil), f.IndividualIDs...)
	return cp
}

func cloneIndividual(i Individual) Individual {
	cp := i
	if i.PaternalID != nil {
		v := *i.PaternalID
		cp.PaternalID = &v
	}
	if i.MaternalID != nil {
		v := *i.MaternalID
		cp.MaternalID = &v
	}
	if i.Notes != nil {
		v := *i.Notes
		cp.Notes = &v
	}
	cp.SampleIDs = append([]string(nil), i.SampleIDs...)
	return cp
}

func cloneSample(s Sample) Sample {
	cp := s
	if s.LoadedDate != nil {
		t := *s.LoadedDate
		cp.LoadedDate = &t
	}
	if s.DatasetFilePath != nil {
		v := *s.DatasetFilePath
		cp.DatasetFilePath = &v
	}
	if s.SearchIndex != nil {
		v := *s.SearchIndex
		cp.SearchIndex = &v
	}
	return cp
}

func cloneSavedVariant(v SavedVariant) SavedVariant {
	cp := v
	if v.Note != nil {
		n := *v.Note
		cp.Note = &n
	}
	cp.FamilyGUIDs = append([]string(nil), v.FamilyGUIDs...)
	cp.GeneIDs = append([]string(nil), v.GeneIDs...)
	cp.Tags = append([]domain.VariantTag(nil), v.Tags...)
	return cp
}

func cloneLocusList(l LocusList) LocusList {
	cp := l
	if l.Description != nil {
		d := *l.Description
		cp.Description = &d
	}
	cp.Items = append([]domain.LocusListItem(nil), l.Items...)
	return cp
}

func cloneSubmission(m MatchmakerSubmission) MatchmakerSubmission {
	cp := m
	if m.Deletion != nil {
		d := *m.Deletion
		cp.Deletion = &d
	}
	if m.SubmittedData != nil {
		data := make(map[string]any, len(m.SubmittedData))
		for k, v := range m.SubmittedData {
			data[k] = v
		}
		cp.SubmittedData = data
	}
	return cp
}

func familyIndividualIDs(state *memoryState, familyGUID string) []string {
	var ids []string
	for _, individual := range state.individuals {
		if individual.FamilyGUID == familyGUID {
			ids = append(ids, individual.GUID)
		}
	}
	sort.Strings(ids)
	return ids
}

func decorateFamily(state *memoryState, family Family) Family {
	family.IndividualIDs = familyIndividualIDs(state, family.GUID)
	return family
}

func individualSampleIDs(state *memoryState, individualGUID string) []string {
	var ids []string
	for _, sample := range state.samples {
		if sample.IndividualGUID == individualGUID {
			ids = append(ids, sample.GUID)
		}
	}
	sort.Strings(ids)
	return ids
}

func decorateIndividual(state *memoryState, individual Individual) Individual {
	individual.SampleIDs = individualSampleIDs(state, individual.GUID)
	return individual
}

func projectLocusListIDs(state *memoryState, projectGUID string) []string {
	var ids []string
	for _, list := range state.locusLists {
		if list.ProjectGUID == projectGUID {
			ids = append(ids, list.GUID)
		}
	}
	sort.Strings(ids)
	return ids
}

func decorateProject(state *memoryState, project Project) Project {
	project.LocusListIDs = projectLocusListIDs(state, project.GUID)
	return project
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// SetNowFunc overrides the time provider, primarily for deterministic tests.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		s.nowFn = fn
	}
}

// transaction represents a mutation set applied to the store state.
type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

// transactionView exposes a read-only snapshot of the transactional state to rules.
type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// FindProject exposes project lookup within the transaction scope.
func (tx *transaction) FindProject(guid string) (Project, bool) {
	p, ok := tx.state.projects[guid]
	if !ok {
		return Project{}, false
	}
	return cloneProject(decorateProject(&tx.state, p)), true
}

// FindFamily exposes family lookup within the transaction scope.
func (tx *transaction) FindFamily(guid string) (Family, bool) {
	f, ok := tx.state.families[guid]
	if !ok {
		return Family{}, false
	}
	return cloneFamily(decorateFamily(&tx.state, f)), true
}

// CreateProject stores a new project within the transaction.
func (tx *transaction) CreateProject(p Project) (Project, error) {
	if p.GUID == "" {
		p.GUID = tx.store.newID()
	}
	if _, exists := tx.state.projects[p.GUID]; exists {
		return Project{}, fmt.Errorf("project %q already exists", p.GUID)
	}
	if p.Name == "" {
		return Project{}, fmt.Errorf("project %q requires a name", p.GUID)
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.projects[p.GUID] = cloneProject(p)
	tx.recordChange(Change{Entity: domain.EntityProject, Action: domain.ActionCreate, After: cloneProject(p)})
	return cloneProject(p), nil
}

// UpdateProject mutates a project using the provided mutator function.
func (tx *transaction) UpdateProject(guid string, mutator func(*Project) error) (Project, error) {
	current, ok := tx.state.projects[guid]
	if !ok {
		return Project{}, fmt.Errorf("project %q not found", guid)
	}
	before := cloneProject(current)
	if err := mutator(&current); err != nil {
		return Project{}, err
	}
	current.GUID = guid
	current.UpdatedAt = tx.now
	tx.state.projects[guid] = cloneProject(current)
	tx.recordChange(Change{Entity: domain.EntityProject, Action: domain.ActionUpdate, Before: before, After: cloneProject(current)})
	return cloneProject(current), nil
}

// DeleteProject removes a project once no other records reference it.
func (tx *transaction) DeleteProject(guid string) error {
	current, ok := tx.state.projects[guid]
	if !ok {
		return fmt.Errorf("project %q not found", guid)
	}
	for _, family := range tx.state.families {
		if family.ProjectGUID == guid {
			return fmt.Errorf("project %q still referenced by family %q", guid, family.GUID)
		}
	}
	for _, list := range tx.state.locusLists {
		if list.ProjectGUID == guid {
			return fmt.Errorf("project %q still referenced by locus list %q", guid, list.GUID)
		}
	}
	for _, variant := range tx.state.variants {
		if variant.ProjectGUID == guid {
			return fmt.Errorf("project %q still referenced by saved variant %q", guid, variant.GUID)
		}
	}
	for _, submission := range tx.state.submissions {
		if submission.ProjectGUID == guid {
			return fmt.Errorf("project %q still referenced by submission %q", guid, submission.GUID)
		}
	}
	delete(tx.state.projects, guid)
	tx.recordChange(Change{Entity: domain.EntityProject, Action: domain.ActionDelete, Before: cloneProject(current)})
	return nil
}

// CreateFamily stores a new family.
func (tx *transaction) CreateFamily(f Family) (Family, error) {
	if f.GUID == "" {
		f.GUID = tx.store.newID()
	}
	if _, exists := tx.state.families[f.GUID]; exists {
		return Family{}, fmt.Errorf("family %q already exists", f.GUID)
	}
	if f.FamilyID == "" {
		return Family{}, fmt.Errorf("family %q requires a family id", f.GUID)
	}
	if f.AnalysisStatus == "" {
		f.AnalysisStatus = domain.AnalysisStatusWaitingForData
	}
	f.CreatedAt = tx.now
	f.UpdatedAt = tx.now
	tx.state.families[f.GUID] = cloneFamily(f)
	tx.recordChange(Change{Entity: domain.EntityFamily, Action: domain.ActionCreate, After: cloneFamily(f)})
	return cloneFamily(f), nil
}

// UpdateFamily mutates an existing family.
func (tx *transaction) UpdateFamily(guid string, mutator func(*Family) error) (Family, error) {
	current, ok := tx.state.families[guid]
	if !ok {
		return Family{}, fmt.Errorf("family %q not found", guid)
	}
	before := cloneFamily(current)
	if err := mutator(&current); err != nil {
		return Family{}, err
	}
	current.GUID = guid
	current.UpdatedAt = tx.now
	tx.state.families[guid] = cloneFamily(current)
	tx.recordChange(Change{Entity: domain.EntityFamily, Action: domain.ActionUpdate, Before: before, After: cloneFamily(current)})
	return cloneFamily(current), nil
}

// DeleteFamily removes a family once no individuals or saved variants reference it.
func (tx *transaction) DeleteFamily(guid string) error {
	current, ok := tx.state.families[guid]
	if !ok {
		return fmt.Errorf("family %q not found", guid)
	}
	for _, individual := range tx.state.individuals {
		if individual.FamilyGUID == guid {
			return fmt.Errorf("family %q still referenced by individual %q", guid, individual.GUID)
		}
	}
	for _, variant := range tx.state.variants {
		for _, familyGUID := range variant.FamilyGUIDs {
			if familyGUID == guid {
				return fmt.Errorf("family %q still referenced by saved variant %q", guid, variant.GUID)
			}
		}
	}
	delete(tx.state.families, guid)
	tx.recordChange(Change{Entity: domain.EntityFamily, Action: domain.ActionDelete, Before: cloneFamily(current)})
	return nil
}

// CreateIndividual stores a new individual.
func (tx *transaction) CreateIndividual(i Individual) (Individual, error) {
	if i.GUID == "" {
		i.GUID = tx.store.newID()
	}
	if _, exists := tx.state.individuals[i.GUID]; exists {
		return Individual{}, fmt.Errorf("individual %q already exists", i.GUID)
	}
	if i.FamilyGUID == "" {
		return Individual{}, fmt.Errorf("individual %q requires a family", i.GUID)
	}
	if _, ok := tx.state.families[i.FamilyGUID]; !ok {
		return Individual{}, fmt.Errorf("individual %q references unknown family %q", i.GUID, i.FamilyGUID)
	}
	if i.Sex == "" {
		i.Sex = domain.SexUnknown
	}
	if i.Affected == "" {
		i.Affected = domain.AffectedStatusUnknown
	}
	i.CreatedAt = tx.now
	i.UpdatedAt = tx.now
	tx.state.individuals[i.GUID] = cloneIndividual(i)
	tx.recordChange(Change{Entity: domain.EntityIndividual, Action: domain.ActionCreate, After: cloneIndividual(i)})
	return cloneIndividual(i), nil
}

// UpdateIndividual mutates an existing individual.
func (tx *transaction) UpdateIndividual(guid string, mutator func(*Individual) error) (Individual, error) {
	current, ok := tx.state.individuals[guid]
	if !ok {
		return Individual{}, fmt.Errorf("individual %q not found", guid)
	}
	before := cloneIndividual(current)
	if err := mutator(&current); err != nil {
		return Individual{}, err
	}
	current.GUID = guid
	current.UpdatedAt = tx.now
	tx.state.individuals[guid] = cloneIndividual(current)
	tx.recordChange(Change{Entity: domain.EntityIndividual, Action: domain.ActionUpdate, Before: before, After: cloneIndividual(current)})
	return cloneIndividual(current), nil
}

// DeleteIndividual removes an individual once no samples reference it.
func (tx *transaction) DeleteIndividual(guid string) error {
	current, ok := tx.state.individuals[guid]
	if !ok {
		return fmt.Errorf("individual %q not found", guid)
	}
	for _, sample := range tx.state.samples {
		if sample.IndividualGUID == guid {
			return fmt.Errorf("individual %q still referenced by sample %q", guid, sample.GUID)
		}
	}
	delete(tx.state.individuals, guid)
	tx.recordChange(Change{Entity: domain.EntityIndividual, Action: domain.ActionDelete, Before: cloneIndividual(current)})
	return nil
}

// CreateSample stores a new sequencing sample.
func (tx *transaction) CreateSample(sm Sample) (Sample, error) {
	if sm.GUID == "" {
		sm.GUID = tx.store.newID()
	}
	if _, exists := tx.state.samples[sm.GUID]; exists {
		return Sample{}, fmt.Errorf("sample %q already exists", sm.GUID)
	}
	if sm.IndividualGUID == "" {
		return Sample{}, fmt.Errorf("sample %q requires an individual", sm.GUID)
	}
	if _, ok := tx.state.individuals[sm.IndividualGUID]; !ok {
		return Sample{}, fmt.Errorf("sample %q references unknown individual %q", sm.GUID, sm.IndividualGUID)
	}
	if sm.Status == "" {
		sm.Status = domain.SampleStatusPending
	}
	sm.CreatedAt = tx.now
	sm.UpdatedAt = tx.now
	tx.state.samples[sm.GUID] = cloneSample(sm)
	tx.recordChange(Change{Entity: domain.EntitySample, Action: domain.ActionCreate, After: cloneSample(sm)})
	return cloneSample(sm), nil
}

// UpdateSample mutates an existing sample.
func (tx *transaction) UpdateSample(guid string, mutator func(*Sample) error) (Sample, error) {
	current, ok := tx.state.samples[guid]
	if !ok {
		return Sample{}, fmt.Errorf("sample %q not found", guid)
	}
	before := cloneSample(current)
	if err := mutator(&current); err != nil {
		return Sample{}, err
	}
	current.GUID = guid
	current.UpdatedAt = tx.now
	tx.state.samples[guid] = cloneSample(current)
	tx.recordChange(Change{Entity: domain.EntitySample, Action: domain.ActionUpdate, Before: before, After: cloneSample(current)})
	return cloneSample(current), nil
}

// DeleteSample removes a sample from the transaction state.
func (tx *transaction) DeleteSample(guid string) error {
	current, ok := tx.state.samples[guid]
	if !ok {
		return fmt.Errorf("sample %q not found", guid)
	}
	delete(tx.state.samples, guid)
	tx.recordChange(Change{Entity: domain.EntitySample, Action: domain.ActionDelete, Before: cloneSample(current)})
	return nil
}

// CreateSavedVariant stores a new saved variant.
func (tx *transaction) CreateSavedVariant(v SavedVariant) (SavedVariant, error) {
	if v.GUID == "" {
		v.GUID = tx.store.newID()
	}
	if _, exists := tx.state.variants[v.GUID]; exists {
		return SavedVariant{}, fmt.Errorf("saved variant %q already exists", v.GUID)
	}
	if v.XPos <= 0 {
		return SavedVariant{}, fmt.Errorf("saved variant %q requires a positive xpos", v.GUID)
	}
	if v.Ref == "" || v.Alt == "" {
		return SavedVariant{}, fmt.Errorf("saved variant %q requires ref and alt alleles", v.GUID)
	}
	v.CreatedAt = tx.now
	v.UpdatedAt = tx.now
	tx.state.variants[v.GUID] = cloneSavedVariant(v)
	tx.recordChange(Change{Entity: domain.EntitySavedVariant, Action: domain.ActionCreate, After: cloneSavedVariant(v)})
	return cloneSavedVariant(v), nil
}

// UpdateSavedVariant mutates an existing saved variant.
func (tx *transaction) UpdateSavedVariant(guid string, mutator func(*SavedVariant) error) (SavedVariant, error) {
	current, ok := tx.state.variants[guid]
	if !ok {
		return SavedVariant{}, fmt.Errorf("saved variant %q not found", guid)
	}
	before := cloneSavedVariant(current)
	if err := mutator(&current); err != nil {
		return SavedVariant{}, err
	}
	current.GUID = guid
	current.UpdatedAt = tx.now
	tx.state.variants[guid] = cloneSavedVariant(current)
	tx.recordChange(Change{Entity: domain.EntitySavedVariant, Action: domain.ActionUpdate, Before: before, After: cloneSavedVariant(current)})
	return cloneSavedVariant(current), nil
}

// DeleteSavedVariant removes a saved variant from the transaction state.
func (tx *transaction) DeleteSavedVariant(guid string) error {
	current, ok := tx.state.variants[guid]
	if !ok {
		return fmt.Errorf("saved variant %q not found", guid)
	}
	delete(tx.state.variants, guid)
	tx.recordChange(Change{Entity: domain.EntitySavedVariant, Action: domain.ActionDelete, Before: cloneSavedVariant(current)})
	return nil
}

// CreateLocusList stores a new locus list after validating its items.
func (tx *transaction) CreateLocusList(l LocusList) (LocusList, error) {
	if l.GUID == "" {
		l.GUID = tx.store.newID()
	}
	if _, exists := tx.state.locusLists[l.GUID]; exists {
		return LocusList{}, fmt.Errorf("locus list %q already exists", l.GUID)
	}
	if l.Name == "" {
		return LocusList{}, fmt.Errorf("locus list %q requires a name", l.GUID)
	}
	for idx, item := range l.Items {
		if err := validateLocusListItem(item); err != nil {
			return LocusList{}, fmt.Errorf("locus list %q item %d: %w", l.GUID, idx, err)
		}
	}
	l.CreatedAt = tx.now
	l.UpdatedAt = tx.now
	tx.state.locusLists[l.GUID] = cloneLocusList(l)
	tx.recordChange(Change{Entity: domain.EntityLocusList, Action: domain.ActionCreate, After: cloneLocusList(l)})
	return cloneLocusList(l), nil
}

func validateLocusListItem(item domain.LocusListItem) error {
	if item.GeneID != "" {
		return nil
	}
	if item.Chrom == "" {
		return fmt.Errorf("interval item requires a chromosome")
	}
	if item.Start <= 0 || item.End < item.Start {
		return fmt.Errorf("interval item requires 0 < start <= end")
	}
	return nil
}

// UpdateLocusList mutates an existing locus list.
func (tx *transaction) UpdateLocusList(guid string, mutator func(*LocusList) error) (LocusList, error) {
	current, ok := tx.state.locusLists[guid]
	if !ok {
		return LocusList{}, fmt.Errorf("locus list %q not found", guid)
	}
	before := cloneLocusList(current)
	if err := mutator(&current); err != nil {
		return LocusList{}, err
	}
	for idx, item := range current.Items {
		if err := validateLocusListItem(item); err != nil {
			return LocusList{}, fmt.Errorf("locus list %q item %d: %w", guid, idx, err)
		}
	}
	current.GUID = guid
	current.UpdatedAt = tx.now
	tx.state.locusLists[guid] = cloneLocusList(current)
	tx.recordChange(Change{Entity: domain.EntityLocusList, Action: domain.ActionUpdate, Before: before, After: cloneLocusList(current)})
	return cloneLocusList(current), nil
}

// DeleteLocusList removes a locus list from the transaction state.
func (tx *transaction) DeleteLocusList(guid string) error {
	current, ok := tx.state.locusLists[guid]
	if !ok {
		return fmt.Errorf("locus list %q not found", guid)
	}
	delete(tx.state.locusLists, guid)
	tx.recordChange(Change{Entity: domain.EntityLocusList, Action: domain.ActionDelete, Before: cloneLocusList(current)})
	return nil
}

// CreateGene stores reference gene metadata keyed by record guid.
func (tx *transaction) CreateGene(g Gene) (Gene, error) {
	if g.GUID == "" {
		g.GUID = tx.store.newID()
	}
	if _, exists := tx.state.genes[g.GUID]; exists {
		return Gene{}, fmt.Errorf("gene %q already exists", g.GUID)
	}
	if g.GeneID == "" {
		return Gene{}, fmt.Errorf("gene %q requires a gene id", g.GUID)
	}
	for _, existing := range tx.state.genes {
		if existing.GeneID == g.GeneID {
			return Gene{}, fmt.Errorf("gene id %q already registered as %q", g.GeneID, existing.GUID)
		}
	}
	g.CreatedAt = tx.now
	g.UpdatedAt = tx.now
	tx.state.genes[g.GUID] = g
	tx.recordChange(Change{Entity: domain.EntityGene, Action: domain.ActionCreate, After: g})
	return g, nil
}

// UpdateGene mutates existing gene metadata.
func (tx *transaction) UpdateGene(guid string, mutator func(*Gene) error) (Gene, error) {
	current, ok := tx.state.genes[guid]
	if !ok {
		return Gene{}, fmt.Errorf("gene %q not found", guid)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Gene{}, err
	}
	current.GUID = guid
	current.UpdatedAt = tx.now
	tx.state.genes[guid] = current
	tx.recordChange(Change{Entity: domain.EntityGene, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteGene removes a gene once no locus list item references it.
func (tx *transaction) DeleteGene(guid string) error {
	current, ok := tx.state.genes[guid]
	if !ok {
		return fmt.Errorf("gene %q not found", guid)
	}
	for _, list := range tx.state.locusLists {
		for _, item := range list.Items {
			if item.GeneID != "" && item.GeneID == current.GeneID {
				return fmt.Errorf("gene %q still referenced by locus list %q", guid, list.GUID)
			}
		}
	}
	delete(tx.state.genes, guid)
	tx.recordChange(Change{Entity: domain.EntityGene, Action: domain.ActionDelete, Before: current})
	return nil
}

// CreateSubmission stores a new matchmaker submission.
func (tx *transaction) CreateSubmission(m MatchmakerSubmission) (MatchmakerSubmission, error) {
	if m.GUID == "" {
		m.GUID = tx.store.newID()
	}
	if _, exists := tx.state.submissions[m.GUID]; exists {
		return MatchmakerSubmission{}, fmt.Errorf("submission %q already exists", m.GUID)
	}
	if m.IndividualID == "" {
		return MatchmakerSubmission{}, fmt.Errorf("submission %q requires an individual id", m.GUID)
	}
	if m.SubmittedAt.IsZero() {
		m.SubmittedAt = tx.now
	}
	m.CreatedAt = tx.now
	m.UpdatedAt = tx.now
	tx.state.submissions[m.GUID] = cloneSubmission(m)
	tx.recordChange(Change{Entity: domain.EntitySubmission, Action: domain.ActionCreate, After: cloneSubmission(m)})
	return cloneSubmission(m), nil
}

// UpdateSubmission mutates an existing matchmaker submission.
func (tx *transaction) UpdateSubmission(guid string, mutator func(*MatchmakerSubmission) error) (MatchmakerSubmission, error) {
	current, ok := tx.state.submissions[guid]
	if !ok {
		return MatchmakerSubmission{}, fmt.Errorf("submission %q not found", guid)
	}
	before := cloneSubmission(current)
	if err := mutator(&current); err != nil {
		return MatchmakerSubmission{}, err
	}
	current.GUID = guid
	current.UpdatedAt = tx.now
	tx.state.submissions[guid] = cloneSubmission(current)
	tx.recordChange(Change{Entity: domain.EntitySubmission, Action: domain.ActionUpdate, Before: before, After: cloneSubmission(current)})
	return cloneSubmission(current), nil
}

// DeleteSubmission removes a matchmaker submission from the transaction state.
func (tx *transaction) DeleteSubmission(guid string) error {
	current, ok := tx.state.submissions[guid]
	if !ok {
		return fmt.Errorf("submission %q not found", guid)
	}
	delete(tx.state.submissions, guid)
	tx.recordChange(Change{Entity: domain.EntitySubmission, Action: domain.ActionDelete, Before: cloneSubmission(current)})
	return nil
}

// ListProjects returns all projects within the transaction snapshot.
func (v transactionView) ListProjects() []Project {
	out := make([]Project, 0, len(v.state.projects))
	for _, p := range v.state.projects {
		out = append(out, cloneProject(decorateProject(v.state, p)))
	}
	return out
}

// ListFamilies returns all families in the snapshot.
func (v transactionView) ListFamilies() []Family {
	out := make([]Family, 0, len(v.state.families))
	for _, f := range v.state.families {
		out = append(out, cloneFamily(decorateFamily(v.state, f)))
	}
	return out
}

// ListIndividuals returns all individuals in the snapshot.
func (v transactionView) ListIndividuals() []Individual {
	out := make([]Individual, 0, len(v.state.individuals))
	for _, i := range v.state.individuals {
		out = append(out, cloneIndividual(decorateIndividual(v.state, i)))
	}
	return out
}

// ListSamples returns all samples in the snapshot.
func (v transactionView) ListSamples() []Sample {
	out := make([]Sample, 0, len(v.state.samples))
	for _, s := range v.state.samples {
		out = append(out, cloneSample(s))
	}
	return out
}

// ListSavedVariants returns all saved variants in the snapshot.
func (v transactionView) ListSavedVariants() []SavedVariant {
	out := make([]SavedVariant, 0, len(v.state.variants))
	for _, sv := range v.state.variants {
		out = append(out, cloneSavedVariant(sv))
	}
	return out
}

// ListLocusLists returns all locus lists in the snapshot.
func (v transactionView) ListLocusLists() []LocusList {
	out := make([]LocusList, 0, len(v.state.locusLists))
	for _, l := range v.state.locusLists {
		out = append(out, cloneLocusList(l))
	}
	return out
}

// ListGenes returns all gene reference records in the snapshot.
func (v transactionView) ListGenes() []Gene {
	out := make([]Gene, 0, len(v.state.genes))
	for _, g := range v.state.genes {
		out = append(out, g)
	}
	return out
}

// ListSubmissions returns all matchmaker submissions in the snapshot.
func (v transactionView) ListSubmissions() []MatchmakerSubmission {
	out := make([]MatchmakerSubmission, 0, len(v.state.submissions))
	for _, m := range v.state.submissions {
		out = append(out, cloneSubmission(m))
	}
	return out
}

// FindProject retrieves a project by guid from the snapshot.
func (v transactionView) FindProject(guid string) (Project, bool) {
	p, ok := v.state.projects[guid]
	if !ok {
		return Project{}, false
	}
	return cloneProject(decorateProject(v.state, p)), true
}

// FindFamily retrieves a family by guid from the snapshot.
func (v transactionView) FindFamily(guid string) (Family, bool) {
	f, ok := v.state.families[guid]
	if !ok {
		return Family{}, false
	}
	return cloneFamily(decorateFamily(v.state, f)), true
}

// FindIndividual retrieves an individual by guid from the snapshot.
func (v transactionView) FindIndividual(guid string) (Individual, bool) {
	i, ok := v.state.individuals[guid]
	if !ok {
		return Individual{}, false
	}
	return cloneIndividual(decorateIndividual(v.state, i)), true
}

// FindSample retrieves a sample by guid from the snapshot.
func (v transactionView) FindSample(guid string) (Sample, bool) {
	s, ok := v.state.samples[guid]
	if !ok {
		return Sample{}, false
	}
	return cloneSample(s), true
}

// FindSavedVariant retrieves a saved variant by guid from the snapshot.
func (v transactionView) FindSavedVariant(guid string) (SavedVariant, bool) {
	sv, ok := v.state.variants[guid]
	if !ok {
		return SavedVariant{}, false
	}
	return cloneSavedVariant(sv), true
}

// FindLocusList retrieves a locus list by guid from the snapshot.
func (v transactionView) FindLocusList(guid string) (LocusList, bool) {
	l, ok := v.state.locusLists[guid]
	if !ok {
		return LocusList{}, false
	}
	return cloneLocusList(l), true
}

// FindGene retrieves a gene by guid from the snapshot.
func (v transactionView) FindGene(guid string) (Gene, bool) {
	g, ok := v.state.genes[guid]
	if !ok {
		return Gene{}, false
	}
	return g, true
}

// FindSubmission retrieves a matchmaker submission by guid from the snapshot.
func (v transactionView) FindSubmission(guid string) (MatchmakerSubmission, bool) {
	m, ok := v.state.submissions[guid]
	if !ok {
		return MatchmakerSubmission{}, false
	}
	return cloneSubmission(m), true
}

// GetProject fetches a project from committed state.
func (s *Store) GetProject(guid string) (Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.projects[guid]
	if !ok {
		return Project{}, false
	}
	return cloneProject(decorateProject(&s.state, p)), true
}

// ListProjects lists all projects from committed state.
func (s *Store) ListProjects() []Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Project, 0, len(s.state.projects))
	for _, p := range s.state.projects {
		out = append(out, cloneProject(decorateProject(&s.state, p)))
	}
	return out
}

// GetFamily fetches a family from committed state.
func (s *Store) GetFamily(guid string) (Family, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.state.families[guid]
	if !ok {
		return Family{}, false
	}
	return cloneFamily(decorateFamily(&s.state, f)), true
}

// ListFamilies lists all families from committed state.
func (s *Store) ListFamilies() []Family {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Family, 0, len(s.state.families))
	for _, f := range s.state.families {
		out = append(out, cloneFamily(decorateFamily(&s.state, f)))
	}
	return out
}

// GetIndividual fetches an individual from committed state.
func (s *Store) GetIndividual(guid string) (Individual, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.state.individuals[guid]
	if !ok {
		return Individual{}, false
	}
	return cloneIndividual(decorateIndividual(&s.state, i)), true
}

// ListIndividuals lists all individuals from committed state.
func (s *Store) ListIndividuals() []Individual {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Individual, 0, len(s.state.individuals))
	for _, i := range s.state.individuals {
		out = append(out, cloneIndividual(decorateIndividual(&s.state, i)))
	}
	return out
}

// GetSample fetches a sample from committed state.
func (s *Store) GetSample(guid string) (Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sm, ok := s.state.samples[guid]
	if !ok {
		return Sample{}, false
	}
	return cloneSample(sm), true
}

// ListSamples lists all samples from committed state.
func (s *Store) ListSamples() []Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Sample, 0, len(s.state.samples))
	for _, sm := range s.state.samples {
		out = append(out, cloneSample(sm))
	}
	return out
}

// GetSavedVariant fetches a saved variant from committed state.
func (s *Store) GetSavedVariant(guid string) (SavedVariant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.state.variants[guid]
	if !ok {
		return SavedVariant{}, false
	}
	return cloneSavedVariant(v), true
}

// ListSavedVariants lists all saved variants from committed state.
func (s *Store) ListSavedVariants() []SavedVariant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SavedVariant, 0, len(s.state.variants))
	for _, v := range s.state.variants {
		out = append(out, cloneSavedVariant(v))
	}
	return out
}

// GetLocusList fetches a locus list from committed state.
func (s *Store) GetLocusList(guid string) (LocusList, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.state.locusLists[guid]
	if !ok {
		return LocusList{}, false
	}
	return cloneLocusList(l), true
}

// ListLocusLists lists all locus lists from committed state.
func (s *Store) ListLocusLists() []LocusList {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]LocusList, 0, len(s.state.locusLists))
	for _, l := range s.state.locusLists {
		out = append(out, cloneLocusList(l))
	}
	return out
}

// GetGene fetches a gene record from committed state.
func (s *Store) GetGene(guid string) (Gene, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.state.genes[guid]
	if !ok {
		return Gene{}, false
	}
	return g, true
}

// ListGenes lists all gene records from committed state.
func (s *Store) ListGenes() []Gene {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Gene, 0, len(s.state.genes))
	for _, g := range s.state.genes {
		out = append(out, g)
	}
	return out
}

// GetSubmission fetches a matchmaker submission from committed state.
func (s *Store) GetSubmission(guid string) (MatchmakerSubmission, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.state.submissions[guid]
	if !ok {
		return MatchmakerSubmission{}, false
	}
	return cloneSubmission(m), true
}

// ListSubmissions lists all matchmaker submissions from committed state.
func (s *Store) ListSubmissions() []MatchmakerSubmission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]MatchmakerSubmission, 0, len(s.state.submissions))
	for _, m := range s.state.submissions {
		out = append(out, cloneSubmission(m))
	}
	return out
}
