package derive

import (
	"sort"

	"variantcore/pkg/domain"
)

// ProjectScoped is satisfied by every entity owned by a project.
type ProjectScoped interface {
	ProjectRef() string
}

// GroupByProject partitions a normalized collection on each entity's owning
// project GUID. Entities with an empty project reference are excluded from
// every group. Input maps are never modified.
func GroupByProject[T ProjectScoped](entities map[string]T) map[string]map[string]T {
	groups := make(map[string]map[string]T)
	for guid, entity := range entities {
		projectGUID := entity.ProjectRef()
		if projectGUID == "" {
			continue
		}
		group, ok := groups[projectGUID]
		if !ok {
			group = make(map[string]T)
			groups[projectGUID] = group
		}
		group[guid] = entity
	}
	return groups
}

// VariantsByFamily maps each family GUID to the variants linked to it, keyed
// by composite variant key. A variant linked to N families appears in all N
// groups; two variants sharing a composite key within one family collapse to
// a single entry.
func VariantsByFamily(variants map[string]domain.SavedVariant) map[string]map[string]domain.SavedVariant {
	groups := make(map[string]map[string]domain.SavedVariant)
	for _, variant := range variants {
		key := variant.VariantKey()
		for _, familyGUID := range variant.FamilyGUIDs {
			if familyGUID == "" {
				continue
			}
			group, ok := groups[familyGUID]
			if !ok {
				group = make(map[string]domain.SavedVariant)
				groups[familyGUID] = group
			}
			group[key] = variant
		}
	}
	return groups
}

// SubmissionsForFamily returns the matchmaker submissions for the family,
// restricted to the family's project and matching on the family identifier.
// Submissions are deduplicated per individual keeping the most recent
// submission, and ordered by submission date (newest first) with GUID as a
// tiebreaker. A project with no submissions yields an empty slice.
func SubmissionsForFamily(byProject map[string]map[string]domain.MatchmakerSubmission, family domain.Family) []domain.MatchmakerSubmission {
	projectSubmissions := byProject[family.ProjectGUID]
	if len(projectSubmissions) == 0 {
		return nil
	}

	latest := make(map[string]domain.MatchmakerSubmission)
	for _, submission := range projectSubmissions {
		if submission.FamilyID != family.FamilyID {
			continue
		}
		current, seen := latest[submission.IndividualID]
		if !seen || submission.SubmittedAt.After(current.SubmittedAt) {
			latest[submission.IndividualID] = submission
		}
	}

	out := make([]domain.MatchmakerSubmission, 0, len(latest))
	for _, submission := range latest {
		out = append(out, submission)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.After(out[j].SubmittedAt)
		}
		return out[i].GUID < out[j].GUID
	})
	return out
}
