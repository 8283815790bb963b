package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

const testForbiddenImport = "some/forbidden/package"

// TestAssertNoDirectImportsIgnoresTestFiles checks that _test.go files are skipped.
func TestAssertNoDirectImportsIgnoresTestFiles(t *testing.T) {
	dir := t.TempDir()

	src := []byte("package tmp\nimport \"fmt\"\nfunc X() { fmt.Println(\"x\") }")
	if err := os.WriteFile(filepath.Join(dir, "main.go"), src, 0o600); err != nil {
		t.Fatalf("write main file: %v", err)
	}
	testSrc := []byte("package tmp\nimport \"testing\"\nimport \"" + testForbiddenImport + "\"\nfunc TestX(t *testing.T) {}")
	if err := os.WriteFile(filepath.Join(dir, "main_test.go"), testSrc, 0o600); err != nil {
		t.Fatalf("write test file: %v", err)
	}

	AssertNoDirectImports(t, dir, func(importPath string) bool {
		return importPath == testForbiddenImport
	}, "test files are exempt")
}

// TestAssertNoDirectImportsIgnoresSubdirectories checks that only the top
// level of dir is scanned.
func TestAssertNoDirectImportsIgnoresSubdirectories(t *testing.T) {
	dir := t.TempDir()
	subdir := filepath.Join(dir, "subdir")
	if err := os.Mkdir(subdir, 0o750); err != nil {
		t.Fatalf("create subdir: %v", err)
	}
	sub := []byte("package subpkg\nimport \"" + testForbiddenImport + "\"\nfunc X() {}")
	if err := os.WriteFile(filepath.Join(subdir, "sub.go"), sub, 0o600); err != nil {
		t.Fatalf("write subdir file: %v", err)
	}
	safe := []byte("package tmp\nimport \"fmt\"\nfunc Y() { fmt.Println(\"safe\") }")
	if err := os.WriteFile(filepath.Join(dir, "safe.go"), safe, 0o600); err != nil {
		t.Fatalf("write safe file: %v", err)
	}

	AssertNoDirectImports(t, dir, func(importPath string) bool {
		return importPath == testForbiddenImport
	}, "subdirectories are not scanned")
}

// TestAssertNoDirectImportsGroupedImports checks grouped, aliased, and dot imports.
func TestAssertNoDirectImportsGroupedImports(t *testing.T) {
	dir := t.TempDir()
	src := []byte("package tmp\nimport \"fmt\"\nimport (\n\t\"os\"\n\talias \"context\"\n\t. \"io\"\n)\nfunc X() {}")
	if err := os.WriteFile(filepath.Join(dir, "quotes.go"), src, 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	AssertNoDirectImports(t, dir, func(importPath string) bool {
		return importPath == testForbiddenImport
	}, "grouped imports are parsed")
}

func TestAssertNoDirectImportsEmptyDirectory(t *testing.T) {
	AssertNoDirectImports(t, t.TempDir(), func(string) bool { return true }, "empty directory has nothing to flag")
}

func TestAssertNoTransitiveDependencyWithUnusedForbidden(t *testing.T) {
	AssertNoTransitiveDependency(t, ".", func(path string) bool {
		return path == "github.com/some/package/we/dont/use"
	}, "unused package must stay out of the dependency graph")
}
