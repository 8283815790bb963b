package derive

import (
	"sort"
	"strings"

	"variantcore/pkg/domain"
)

// FieldKind tags the rendering and submission policy of one family detail
// field. Every field resolves to exactly one kind; unregistered identifiers
// fall back to FieldKindText.
type FieldKind string

const (
	FieldKindText              FieldKind = "text"
	FieldKindAnalysisStatus    FieldKind = "analysis_status"
	FieldKindAnalysedBy        FieldKind = "analysed_by"
	FieldKindFirstLoadedSample FieldKind = "first_loaded_sample"
	FieldKindOMIM              FieldKind = "omim"
)

// FieldDescriptor describes how one family field is rendered and submitted.
type FieldDescriptor struct {
	ID         string
	Label      string
	Kind       FieldKind
	SubmitArgs map[string]any
	ShowEmpty  bool
}

// fieldRegistry is the static field table. Identifiers missing from it are
// served by defaultFieldDescriptor.
var fieldRegistry = map[string]FieldDescriptor{
	"description": {
		ID:    "description",
		Label: "Family Description",
		Kind:  FieldKindText,
	},
	"analysis_status": {
		ID:        "analysis_status",
		Label:     "Analysis Status",
		Kind:      FieldKindAnalysisStatus,
		ShowEmpty: true,
	},
	"analysed_by": {
		ID:         "analysed_by",
		Label:      "Analysed By",
		Kind:       FieldKindAnalysedBy,
		SubmitArgs: map[string]any{"record_analysed_by": true},
		ShowEmpty:  true,
	},
	"first_loaded_sample": {
		ID:        "first_loaded_sample",
		Label:     "Data Loaded",
		Kind:      FieldKindFirstLoadedSample,
		ShowEmpty: true,
	},
	"coded_phenotype": {
		ID:    "coded_phenotype",
		Label: "Coded Phenotype",
		Kind:  FieldKindText,
	},
	"post_discovery_omim_number": {
		ID:         "post_discovery_omim_number",
		Label:      "Post-discovery OMIM #",
		Kind:       FieldKindOMIM,
		SubmitArgs: map[string]any{"external_reference": "omim"},
	},
}

func defaultFieldDescriptor(id string) FieldDescriptor {
	return FieldDescriptor{ID: id, Label: id, Kind: FieldKindText}
}

// LookupField resolves the descriptor for a field identifier, falling back
// to a plain text descriptor for unregistered identifiers.
func LookupField(id string) FieldDescriptor {
	if descriptor, ok := fieldRegistry[id]; ok {
		return descriptor
	}
	return defaultFieldDescriptor(id)
}

// BuildFieldUpdate merges user-entered values with the field's fixed submit
// arguments. Fixed arguments win over colliding user keys so a field cannot
// be redirected by user payloads.
func BuildFieldUpdate(descriptor FieldDescriptor, userValues map[string]any) map[string]any {
	update := make(map[string]any, len(userValues)+len(descriptor.SubmitArgs)+1)
	for key, value := range userValues {
		update[key] = value
	}
	for key, value := range descriptor.SubmitArgs {
		update[key] = value
	}
	update["field"] = descriptor.ID
	return update
}

// FamilyField is one rendered family detail field.
type FamilyField struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Kind      FieldKind `json:"kind"`
	Value     string    `json:"value"`
	Editable  bool      `json:"editable"`
	ShowEmpty bool      `json:"show_empty"`
}

// ContributorSummary lists who analysed a family. Full mode separates staff
// from external collaborators and appends the contribution date to each
// name; compact mode trims to unique display names.
type ContributorSummary struct {
	Names    []string `json:"names,omitempty"`
	Staff    []string `json:"staff,omitempty"`
	External []string `json:"external,omitempty"`
}

// FamilyDetail is the composed detail view for one family.
type FamilyDetail struct {
	FamilyGUID   string             `json:"family_guid"`
	FamilyID     string             `json:"family_id"`
	Compact      bool               `json:"compact"`
	Fields       []FamilyField      `json:"fields"`
	Contributors ContributorSummary `json:"contributors"`
}

// FamilyDetailInput carries everything needed to compose one family view.
type FamilyDetailInput struct {
	Family  domain.Family
	Samples []domain.Sample
	CanEdit bool
	Compact bool
}

var familyFieldOrder = []string{
	"description",
	"analysis_status",
	"analysed_by",
	"first_loaded_sample",
	"coded_phenotype",
	"post_discovery_omim_number",
}

// ComposeFamilyDetail resolves each registered field against the family and
// its samples. Fields with empty values are dropped unless their descriptor
// asks to show them anyway; editability follows the caller's permission flag
// except for the derived first-loaded-sample field, which is never editable.
func ComposeFamilyDetail(input FamilyDetailInput) FamilyDetail {
	detail := FamilyDetail{
		FamilyGUID:   input.Family.GUID,
		FamilyID:     input.Family.FamilyID,
		Compact:      input.Compact,
		Contributors: contributorSummary(input.Family.AnalysedBy, input.Compact),
	}

	for _, id := range familyFieldOrder {
		descriptor := LookupField(id)
		value := fieldValue(descriptor, input)
		if value == "" && !descriptor.ShowEmpty {
			continue
		}
		detail.Fields = append(detail.Fields, FamilyField{
			ID:        descriptor.ID,
			Label:     descriptor.Label,
			Kind:      descriptor.Kind,
			Value:     value,
			Editable:  input.CanEdit && descriptor.Kind != FieldKindFirstLoadedSample,
			ShowEmpty: descriptor.ShowEmpty,
		})
	}
	return detail
}

func fieldValue(descriptor FieldDescriptor, input FamilyDetailInput) string {
	family := input.Family
	switch descriptor.Kind {
	case FieldKindAnalysisStatus:
		return string(family.AnalysisStatus)
	case FieldKindAnalysedBy:
		summary := contributorSummary(family.AnalysedBy, input.Compact)
		if input.Compact {
			return strings.Join(summary.Names, ", ")
		}
		parts := make([]string, 0, 2)
		if len(summary.Staff) > 0 {
			parts = append(parts, "Staff: "+strings.Join(summary.Staff, ", "))
		}
		if len(summary.External) > 0 {
			parts = append(parts, "Collaborators: "+strings.Join(summary.External, ", "))
		}
		return strings.Join(parts, "; ")
	case FieldKindFirstLoadedSample:
		if first, ok := FirstLoadedSample(input.Samples); ok {
			return first.LoadedDate.Format(loadedDateLayout)
		}
		return "No data loaded"
	case FieldKindOMIM:
		if family.OMIMNumber != nil {
			return *family.OMIMNumber
		}
		return ""
	default:
		switch descriptor.ID {
		case "description":
			if family.Description != nil {
				return *family.Description
			}
		case "coded_phenotype":
			if family.CodedPhenotype != nil {
				return *family.CodedPhenotype
			}
		}
		return ""
	}
}

func contributorSummary(analysedBy []domain.AnalysedBy, compact bool) ContributorSummary {
	summary := ContributorSummary{}
	if compact {
		seen := make(map[string]struct{}, len(analysedBy))
		for _, entry := range analysedBy {
			if _, ok := seen[entry.DisplayName]; ok {
				continue
			}
			seen[entry.DisplayName] = struct{}{}
			summary.Names = append(summary.Names, entry.DisplayName)
		}
		sort.Strings(summary.Names)
		return summary
	}

	for _, entry := range analysedBy {
		name := entry.DisplayName
		if !entry.DateSaved.IsZero() {
			name += " (" + entry.DateSaved.Format(loadedDateLayout) + ")"
		}
		if entry.IsStaff {
			summary.Staff = append(summary.Staff, name)
		} else {
			summary.External = append(summary.External, name)
		}
	}
	sort.Strings(summary.Staff)
	sort.Strings(summary.External)
	return summary
}
