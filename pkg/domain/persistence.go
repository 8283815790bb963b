package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateProject(Project) (Project, error)
	UpdateProject(guid string, mutator func(*Project) error) (Project, error)
	DeleteProject(guid string) error
	CreateFamily(Family) (Family, error)
	UpdateFamily(guid string, mutator func(*Family) error) (Family, error)
	DeleteFamily(guid string) error
	CreateIndividual(Individual) (Individual, error)
	UpdateIndividual(guid string, mutator func(*Individual) error) (Individual, error)
	DeleteIndividual(guid string) error
	CreateSample(Sample) (Sample, error)
	UpdateSample(guid string, mutator func(*Sample) error) (Sample, error)
	DeleteSample(guid string) error
	CreateSavedVariant(SavedVariant) (SavedVariant, error)
	UpdateSavedVariant(guid string, mutator func(*SavedVariant) error) (SavedVariant, error)
	DeleteSavedVariant(guid string) error
	CreateLocusList(LocusList) (LocusList, error)
	UpdateLocusList(guid string, mutator func(*LocusList) error) (LocusList, error)
	DeleteLocusList(guid string) error
	CreateGene(Gene) (Gene, error)
	UpdateGene(guid string, mutator func(*Gene) error) (Gene, error)
	DeleteGene(guid string) error
	CreateSubmission(MatchmakerSubmission) (MatchmakerSubmission, error)
	UpdateSubmission(guid string, mutator func(*MatchmakerSubmission) error) (MatchmakerSubmission, error)
	DeleteSubmission(guid string) error
	FindProject(guid string) (Project, bool)
	FindFamily(guid string) (Family, bool)
}

// RuleView provides read-only access to domain entities for rule evaluation.
type RuleView interface {
	ListProjects() []Project
	ListFamilies() []Family
	ListIndividuals() []Individual
	ListSamples() []Sample
	ListSavedVariants() []SavedVariant
	ListLocusLists() []LocusList
	ListGenes() []Gene
	ListSubmissions() []MatchmakerSubmission
	FindProject(guid string) (Project, bool)
	FindFamily(guid string) (Family, bool)
	FindIndividual(guid string) (Individual, bool)
	FindSample(guid string) (Sample, bool)
	FindSavedVariant(guid string) (SavedVariant, bool)
	FindLocusList(guid string) (LocusList, bool)
	FindGene(guid string) (Gene, bool)
	FindSubmission(guid string) (MatchmakerSubmission, bool)
}

// TransactionView provides read-only snapshot access within and after transactions.
type TransactionView interface {
	RuleView
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetProject(guid string) (Project, bool)
	ListProjects() []Project
	GetFamily(guid string) (Family, bool)
	ListFamilies() []Family
	GetIndividual(guid string) (Individual, bool)
	ListIndividuals() []Individual
	GetSample(guid string) (Sample, bool)
	ListSamples() []Sample
	GetSavedVariant(guid string) (SavedVariant, bool)
	ListSavedVariants() []SavedVariant
	GetLocusList(guid string) (LocusList, bool)
	ListLocusLists() []LocusList
	GetGene(guid string) (Gene, bool)
	ListGenes() []Gene
	GetSubmission(guid string) (MatchmakerSubmission, bool)
	ListSubmissions() []MatchmakerSubmission
}
