// Package testutil provides shared test helpers that enforce the repository's
// layering rules: the domain model stays dependency-free, the selector layer
// stays pure, and infra adapters are reached only through their facades.
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// AssertNoTransitiveDependency shells out to `go list -deps` with the given
// pattern (e.g. ./... or .) and fails the test when any dependency path
// matches the forbidden predicate. The reason is included in the failure.
func AssertNoTransitiveDependency(t testing.TB, pattern string, forbidden func(path string) bool, reason string) {
	t.Helper()
	out, err := goListDeps(pattern)
	if err != nil {
		t.Fatalf("go list failed: %v\n%s", err, string(out))
	}
	var violations []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && forbidden(line) {
			violations = append(violations, line)
		}
	}
	if len(violations) > 0 {
		t.Fatalf("forbidden transitive dependency (%s):\n%s", reason, strings.Join(violations, "\n"))
	}
}

// AssertNoDirectImports parses every non-test .go file in dir (typically "."
// from within the package under test) and fails when an import path matches
// the forbidden predicate. Build tags are not followed.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	violations, err := directImportViolations(dir, forbidden)
	if err != nil {
		t.Fatalf("scan %s: %v", dir, err)
	}
	if len(violations) > 0 {
		t.Fatalf("forbidden direct imports (%s):\n%s", reason, strings.Join(violations, "\n"))
	}
}

// InternalImportForbidden matches any import path under an internal tree.
// pkg/domain uses it to stay importable from every layer without cycles.
func InternalImportForbidden(path string) bool {
	return strings.Contains(path, "/internal/")
}

// InfraImportForbidden matches import paths that reach infra adapter
// implementations directly instead of going through their facade package.
func InfraImportForbidden(path string) bool {
	return strings.Contains(path, "/internal/infra/")
}

var goListDeps = func(pattern string) ([]byte, error) {
	cmd := exec.Command("go", "list", "-deps", pattern)
	return cmd.CombinedOutput()
}

func directImportViolations(dir string, forbidden func(importPath string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var violations []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		parsed, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range parsed.Imports {
			path := strings.Trim(imp.Path.Value, "\"")
			if forbidden(path) {
				violations = append(violations, path+" (in "+name+")")
			}
		}
	}
	return violations, nil
}
