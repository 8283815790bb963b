package domain

import "testing"

func TestResultMergeAndBlocking(t *testing.T) {
	var combined Result
	combined.Merge(Result{})
	if len(combined.Violations) != 0 {
		t.Fatalf("merge of empty result added violations: %v", combined.Violations)
	}

	combined.Merge(Result{Violations: []Violation{{Rule: "a", Severity: SeverityWarn}}})
	combined.Merge(Result{Violations: []Violation{{Rule: "b", Severity: SeverityLog}}})
	if combined.HasBlocking() {
		t.Fatal("warn/log violations should not block")
	}

	combined.Merge(Result{Violations: []Violation{{Rule: "c", Severity: SeverityBlock}}})
	if !combined.HasBlocking() {
		t.Fatal("expected blocking result after block severity merge")
	}
	if len(combined.Violations) != 3 {
		t.Fatalf("expected 3 violations, got %d", len(combined.Violations))
	}

	warnings := combined.Warnings()
	if len(warnings) != 1 || warnings[0].Rule != "a" {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
}

func TestRuleViolationError(t *testing.T) {
	err := RuleViolationError{Result: Result{Violations: []Violation{{Rule: "x", Severity: SeverityBlock}}}}
	if err.Error() == "" {
		t.Fatal("expected error message")
	}
}
