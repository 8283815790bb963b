package core

import "variantcore/pkg/domain"

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewProjectReferenceRule())
	engine.Register(NewVariantFamiliesRule())
	engine.Register(NewSampleLoadedDateRule())
	return engine
}
