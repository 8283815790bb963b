// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by variantcore.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityProject identifies a project record.
	EntityProject EntityType = "project"
	// EntityFamily identifies a family record.
	EntityFamily EntityType = "family"
	// EntityIndividual identifies an individual record.
	EntityIndividual EntityType = "individual"
	// EntitySample identifies a sequencing sample record.
	EntitySample EntityType = "sample"
	// EntitySavedVariant identifies a saved variant record.
	EntitySavedVariant EntityType = "saved_variant"
	// EntityLocusList identifies a locus list record.
	EntityLocusList EntityType = "locus_list"
	// EntityGene identifies a gene reference record.
	EntityGene EntityType = "gene"
	// EntitySubmission identifies a matchmaker submission record.
	EntitySubmission EntityType = "matchmaker_submission"
)

// AnalysisStatus represents the canonical family analysis workflow states.
type AnalysisStatus string

// Canonical family analysis statuses used for overview summaries and audit display.
const (
	AnalysisStatusWaitingForData AnalysisStatus = "waiting_for_data"
	AnalysisStatusInProgress     AnalysisStatus = "in_progress"
	AnalysisStatusComplete       AnalysisStatus = "complete"
	AnalysisStatusSolved         AnalysisStatus = "solved"
)

// SampleStatus enumerates sample load states.
type SampleStatus string

// Canonical sample statuses tracked from submission through search-index load.
const (
	SampleStatusPending SampleStatus = "pending"
	SampleStatusLoading SampleStatus = "loading"
	SampleStatusLoaded  SampleStatus = "loaded"
	SampleStatusFailed  SampleStatus = "failed"
)

// SampleType enumerates sequencing assay types.
type SampleType string

// Canonical sample types recognised by overview aggregation.
const (
	SampleTypeWES SampleType = "wes"
	SampleTypeWGS SampleType = "wgs"
	SampleTypeRNA SampleType = "rna"
)

// DatasetType enumerates callset categories attached to samples.
type DatasetType string

// Canonical dataset types for variant-call and structural-variant callsets.
const (
	DatasetTypeVariantCalls DatasetType = "variant_calls"
	DatasetTypeSVCalls      DatasetType = "sv_calls"
	DatasetTypeAlignment    DatasetType = "alignment"
)

// Sex captures an individual's recorded sex.
type Sex string

// Recorded sex values.
const (
	SexMale    Sex = "M"
	SexFemale  Sex = "F"
	SexUnknown Sex = "U"
)

// Affected captures an individual's recorded affected status.
type Affected string

// Recorded affected status values.
const (
	AffectedStatusAffected   Affected = "A"
	AffectedStatusUnaffected Affected = "N"
	AffectedStatusUnknown    Affected = "U"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records.
type Base struct {
	GUID      string    `json:"guid"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Project is the permission and grouping boundary for all other records.
type Project struct {
	Base
	Name          string   `json:"name"`
	Description   *string  `json:"description,omitempty"`
	GenomeVersion string   `json:"genome_version"`
	CanEdit       bool     `json:"can_edit"`
	LocusListIDs  []string `json:"locus_list_guids"`
}

// AnalysedBy records which user analysed a family and when.
type AnalysedBy struct {
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	IsStaff     bool      `json:"is_staff"`
	DateSaved   time.Time `json:"date_saved"`
}

// Family represents a pedigree under analysis within a project.
type Family struct {
	Base
	ProjectGUID    string         `json:"project_guid"`
	FamilyID       string         `json:"family_id"`
	DisplayName    string         `json:"display_name"`
	Description    *string        `json:"description,omitempty"`
	AnalysisStatus AnalysisStatus `json:"analysis_status"`
	AnalysedBy     []AnalysedBy   `json:"analysed_by"`
	CodedPhenotype *string        `json:"coded_phenotype,omitempty"`
	OMIMNumber     *string        `json:"post_discovery_omim_number,omitempty"`
	IndividualIDs  []string       `json:"individual_guids"`
}

// Individual represents one member of a family.
type Individual struct {
	Base
	ProjectGUID  string   `json:"project_guid"`
	FamilyGUID   string   `json:"family_guid"`
	IndividualID string   `json:"individual_id"`
	PaternalID   *string  `json:"paternal_id,omitempty"`
	MaternalID   *string  `json:"maternal_id,omitempty"`
	Sex          Sex      `json:"sex"`
	Affected     Affected `json:"affected"`
	DisplayName  string   `json:"display_name"`
	Notes        *string  `json:"notes,omitempty"`
	SampleIDs    []string `json:"sample_guids"`
}

// Sample tracks one sequencing callset for an individual.
type Sample struct {
	Base
	ProjectGUID     string       `json:"project_guid"`
	IndividualGUID  string       `json:"individual_guid"`
	SampleID        string       `json:"sample_id"`
	SampleType      SampleType   `json:"sample_type"`
	DatasetType     DatasetType  `json:"dataset_type"`
	Status          SampleStatus `json:"sample_status"`
	LoadedDate      *time.Time   `json:"loaded_date,omitempty"`
	DatasetFilePath *string      `json:"dataset_file_path,omitempty"`
	SearchIndex     *string      `json:"search_index,omitempty"`
}

// VariantTag labels a saved variant with a named category.
type VariantTag struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

// SavedVariant records a genomic variant bookmarked for one or more families.
type SavedVariant struct {
	Base
	ProjectGUID string       `json:"project_guid"`
	FamilyGUIDs []string     `json:"family_guids"`
	XPos        int64        `json:"xpos"`
	Ref         string       `json:"ref"`
	Alt         string       `json:"alt"`
	GeneIDs     []string     `json:"gene_ids"`
	Tags        []VariantTag `json:"tags"`
	Note        *string      `json:"note,omitempty"`
}

// LocusListItem is a gene reference or genomic interval within a locus list.
// Display is derived during enrichment and left empty in stored records.
type LocusListItem struct {
	GeneID  string `json:"gene_id,omitempty"`
	Chrom   string `json:"chrom,omitempty"`
	Start   int    `json:"start,omitempty"`
	End     int    `json:"end,omitempty"`
	Display string `json:"display,omitempty"`
}

// LocusList is a named set of genes or intervals used to scope variant searches.
// RawItems is derived during enrichment and left empty in stored records.
type LocusList struct {
	Base
	ProjectGUID string          `json:"project_guid"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	IsPublic    bool            `json:"is_public"`
	Items       []LocusListItem `json:"items"`
	RawItems    string          `json:"raw_items,omitempty"`
}

// Gene is reference metadata resolved against locus list items and variants.
type Gene struct {
	Base
	GeneID string `json:"gene_id"`
	Symbol string `json:"gene_symbol"`
	Chrom  string `json:"chrom"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
}

// SubmissionDeletion records the retraction of a matchmaker submission.
type SubmissionDeletion struct {
	By   string    `json:"by"`
	Date time.Time `json:"date"`
}

// MatchmakerSubmission records a phenotype/genotype submission for matching.
type MatchmakerSubmission struct {
	Base
	ProjectGUID   string              `json:"project_guid"`
	FamilyID      string              `json:"family_id"`
	IndividualID  string              `json:"individual_id"`
	SubmittedAt   time.Time           `json:"submission_date"`
	SubmittedData map[string]any      `json:"submitted_data,omitempty"`
	Deletion      *SubmissionDeletion `json:"deletion,omitempty"`
}

// ProjectRef returns the owning project GUID for grouping.
func (f Family) ProjectRef() string { return f.ProjectGUID }

// ProjectRef returns the owning project GUID for grouping.
func (i Individual) ProjectRef() string { return i.ProjectGUID }

// ProjectRef returns the owning project GUID for grouping.
func (s Sample) ProjectRef() string { return s.ProjectGUID }

// ProjectRef returns the owning project GUID for grouping.
func (v SavedVariant) ProjectRef() string { return v.ProjectGUID }

// ProjectRef returns the owning project GUID for grouping.
func (l LocusList) ProjectRef() string { return l.ProjectGUID }

// ProjectRef returns the owning project GUID for grouping.
func (m MatchmakerSubmission) ProjectRef() string { return m.ProjectGUID }

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Warnings returns the subset of violations with warn severity.
func (r Result) Warnings() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == SeverityWarn {
			out = append(out, v)
		}
	}
	return out
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
