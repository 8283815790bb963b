package core

import (
	"context"
	"fmt"

	"variantcore/pkg/domain"
)

// NewSampleLoadedDateRule returns the default in-transaction rule blocking
// samples marked loaded without a loaded date.
func NewSampleLoadedDateRule() domain.Rule {
	return sampleLoadedDateRule{}
}

type sampleLoadedDateRule struct{}

func (sampleLoadedDateRule) Name() string { return "sample_loaded_date" }

func (sampleLoadedDateRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, sample := range view.ListSamples() {
		if sample.Status != domain.SampleStatusLoaded {
			continue
		}
		if sample.LoadedDate != nil && !sample.LoadedDate.IsZero() {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "sample_loaded_date",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("sample %s is loaded without a loaded date", sample.GUID),
			Entity:   domain.EntitySample,
			EntityID: sample.GUID,
		})
	}
	return res, nil
}
