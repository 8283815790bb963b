package core

import "variantcore/pkg/domain"

type (
	EntityType           = domain.EntityType
	AnalysisStatus       = domain.AnalysisStatus
	SampleStatus         = domain.SampleStatus
	SampleType           = domain.SampleType
	Severity             = domain.Severity
	Base                 = domain.Base
	Project              = domain.Project
	Family               = domain.Family
	Individual           = domain.Individual
	Sample               = domain.Sample
	SavedVariant         = domain.SavedVariant
	LocusList            = domain.LocusList
	Gene                 = domain.Gene
	MatchmakerSubmission = domain.MatchmakerSubmission
	AnalysedBy           = domain.AnalysedBy
	Change               = domain.Change
	Action               = domain.Action
	Violation            = domain.Violation
	Result               = domain.Result
	RuleViolationError   = domain.RuleViolationError
	RulesEngine          = domain.RulesEngine
	Transaction          = domain.Transaction
	TransactionView      = domain.TransactionView
	RuleView             = domain.RuleView
	PersistentStore      = domain.PersistentStore
)

const (
	EntityProject      = domain.EntityProject
	EntityFamily       = domain.EntityFamily
	EntityIndividual   = domain.EntityIndividual
	EntitySample       = domain.EntitySample
	EntitySavedVariant = domain.EntitySavedVariant
	EntityLocusList    = domain.EntityLocusList
	EntityGene         = domain.EntityGene
	EntitySubmission   = domain.EntitySubmission
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)

// NewRulesEngine re-exports the domain rules engine constructor.
func NewRulesEngine() *RulesEngine { return domain.NewRulesEngine() }
