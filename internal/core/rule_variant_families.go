package core

import (
	"context"
	"fmt"

	"variantcore/pkg/domain"
)

// NewVariantFamiliesRule returns the default in-transaction rule blocking
// saved variants that reference families absent from the store.
func NewVariantFamiliesRule() domain.Rule {
	return variantFamiliesRule{}
}

type variantFamiliesRule struct{}

func (variantFamiliesRule) Name() string { return "variant_families" }

func (variantFamiliesRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, variant := range view.ListSavedVariants() {
		if len(variant.FamilyGUIDs) == 0 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "variant_families",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("saved variant %s is not linked to any family", variant.GUID),
				Entity:   domain.EntitySavedVariant,
				EntityID: variant.GUID,
			})
			continue
		}
		for _, familyGUID := range variant.FamilyGUIDs {
			if _, ok := view.FindFamily(familyGUID); ok {
				continue
			}
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "variant_families",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("saved variant %s references unknown family %s", variant.GUID, familyGUID),
				Entity:   domain.EntitySavedVariant,
				EntityID: variant.GUID,
			})
		}
	}
	return res, nil
}
