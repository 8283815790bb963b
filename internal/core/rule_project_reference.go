package core

import (
	"context"
	"fmt"

	"variantcore/pkg/domain"
)

// NewProjectReferenceRule returns the default in-transaction rule flagging
// records that reference a project GUID with no matching project.
func NewProjectReferenceRule() domain.Rule {
	return projectReferenceRule{}
}

type projectReferenceRule struct{}

func (projectReferenceRule) Name() string { return "project_reference" }

func (projectReferenceRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	known := make(map[string]struct{})
	for _, project := range view.ListProjects() {
		known[project.GUID] = struct{}{}
	}

	res := domain.Result{}
	flag := func(entity domain.EntityType, guid, projectGUID string) {
		if projectGUID == "" {
			return
		}
		if _, ok := known[projectGUID]; ok {
			return
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "project_reference",
			Severity: domain.SeverityWarn,
			Message:  fmt.Sprintf("%s %s references unknown project %s", entity, guid, projectGUID),
			Entity:   entity,
			EntityID: guid,
		})
	}

	for _, family := range view.ListFamilies() {
		flag(domain.EntityFamily, family.GUID, family.ProjectGUID)
	}
	for _, individual := range view.ListIndividuals() {
		flag(domain.EntityIndividual, individual.GUID, individual.ProjectGUID)
	}
	for _, sample := range view.ListSamples() {
		flag(domain.EntitySample, sample.GUID, sample.ProjectGUID)
	}
	for _, variant := range view.ListSavedVariants() {
		flag(domain.EntitySavedVariant, variant.GUID, variant.ProjectGUID)
	}
	for _, list := range view.ListLocusLists() {
		flag(domain.EntityLocusList, list.GUID, list.ProjectGUID)
	}
	for _, submission := range view.ListSubmissions() {
		flag(domain.EntitySubmission, submission.GUID, submission.ProjectGUID)
	}
	return res, nil
}
