package utils_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TwoAbove/lc/internal/utils"
)

// textFileName defines the name of the text file used in tests.
const textFileName = "sample.txt"

// nestedDirectoryName defines the directory used for nested path tests.
const nestedDirectoryName = "subdir"

// TestDeduplicatePatterns verifies that DeduplicatePatterns removes duplicate patterns.
func TestDeduplicatePatterns(testingInstance *testing.T) {
	testCases := []struct {
		testName string
		patterns []string
		expected []string
	}{
		{
			testName: "removes duplicates",
			patterns: []string{"a", "b", "a"},
			expected: []string{"a", "b"},
		},
		{
			testName: "keeps unique",
			patterns: []string{"a", "b"},
			expected: []string{"a", "b"},
		},
	}
	for index, testCase := range testCases {
		actual := utils.DeduplicatePatterns(testCase.patterns)
		if len(actual) != len(testCase.expected) {
			testingInstance.Errorf("case %d (%s): expected length %d, got %d", index, testCase.testName, len(testCase.expected), len(actual))
			continue
		}
		for position, value := range actual {
			if value != testCase.expected[position] {
				testingInstance.Errorf("case %d (%s): expected %s at position %d, got %s", index, testCase.testName, testCase.expected[position], position, value)
			}
		}
	}
}

// TestRelativePathOrSelf verifies relative path calculations.
func TestRelativePathOrSelf(testingInstance *testing.T) {
	temporaryRoot := testingInstance.TempDir()
	nestedPath := filepath.Join(temporaryRoot, nestedDirectoryName, textFileName)
	testCases := []struct {
		testName string
		fullPath string
		root     string
		expected string
	}{
		{testName: "root path returns dot", fullPath: temporaryRoot, root: temporaryRoot, expected: "."},
		{testName: "sub path returns relative", fullPath: filepath.Join(temporaryRoot, textFileName), root: temporaryRoot, expected: textFileName},
		{testName: "nested path uses forward slashes", fullPath: nestedPath, root: temporaryRoot, expected: nestedDirectoryName + "/" + textFileName},
	}
	for index, testCase := range testCases {
		actual := utils.RelativePathOrSelf(testCase.fullPath, testCase.root)
		if actual != testCase.expected {
			testingInstance.Errorf("case %d (%s): expected %s, got %s", index, testCase.testName, testCase.expected, actual)
		}
	}
}

// TestRelativePathHelpers verifies joining and splitting of forward-slash relative paths.
func TestRelativePathHelpers(testingInstance *testing.T) {
	joinCases := []struct {
		parent   string
		name     string
		expected string
	}{
		{parent: "", name: "a", expected: "a"},
		{parent: ".", name: "a", expected: "a"},
		{parent: "a/b", name: "c", expected: "a/b/c"},
	}
	for _, testCase := range joinCases {
		if actual := utils.JoinRelative(testCase.parent, testCase.name); actual != testCase.expected {
			testingInstance.Errorf("JoinRelative(%q, %q): expected %q, got %q", testCase.parent, testCase.name, testCase.expected, actual)
		}
	}
}

// TestIsVersionControlDirectory verifies recognition of VCS metadata directories.
func TestIsVersionControlDirectory(testingInstance *testing.T) {
	for _, name := range []string{".git", ".hg", ".svn", ".bzr", ".repo"} {
		if !utils.IsVersionControlDirectory(name) {
			testingInstance.Errorf("expected %s to be a version control directory", name)
		}
	}
	for _, name := range []string{"git", ".github", "src"} {
		if utils.IsVersionControlDirectory(name) {
			testingInstance.Errorf("did not expect %s to be a version control directory", name)
		}
	}
}

// TestClassifyContent verifies binary detection by extension and by content.
func TestClassifyContent(testingInstance *testing.T) {
	testCases := []struct {
		testName string
		path     string
		sample   []byte
		expected utils.Classification
	}{
		{testName: "empty file is text", path: "empty.txt", sample: nil, expected: utils.ClassificationText},
		{testName: "plain ascii is text", path: "main.go", sample: []byte("package main\n"), expected: utils.ClassificationText},
		{testName: "utf8 text is text", path: "notes.md", sample: []byte("héllo wörld ✓\n"), expected: utils.ClassificationText},
		{testName: "ansi escapes are text", path: "log.txt", sample: []byte("\x1b[31mred\x1b[0m\r\n\t\f\v\b"), expected: utils.ClassificationText},
		{testName: "nul byte is binary", path: "data.dat", sample: []byte("abc\x00def"), expected: utils.ClassificationBinary},
		{testName: "mostly control bytes is binary", path: "blob", sample: []byte{0x01, 0x02, 0x03, 0x04, 'a', 'b'}, expected: utils.ClassificationBinary},
		{testName: "invalid utf8 is binary", path: "latin1", sample: []byte{0xff, 0xfe, 0xfd, 'a'}, expected: utils.ClassificationBinary},
		{testName: "known extension short circuits", path: "image.PNG", sample: []byte("looks like text"), expected: utils.ClassificationBinary},
		{testName: "multi part extension", path: "release.tar.gz", sample: []byte("text"), expected: utils.ClassificationBinary},
	}
	for _, testCase := range testCases {
		testCase := testCase
		testingInstance.Run(testCase.testName, func(subTest *testing.T) {
			actual := utils.ClassifyContent(testCase.path, testCase.sample)
			if actual != testCase.expected {
				subTest.Fatalf("expected %d, got %d", testCase.expected, actual)
			}
		})
	}
}

// TestIsBinaryInspectsBoundedPrefix verifies that content past the sniff window is not inspected.
func TestIsBinaryInspectsBoundedPrefix(testingInstance *testing.T) {
	prefix := []byte(strings.Repeat("a", utils.SniffLength))
	data := append(prefix, 0x00, 0x01, 0x02)
	if utils.IsBinary(data) {
		testingInstance.Fatalf("expected bytes beyond the sniff window to be ignored")
	}
}

// TestReadSample verifies that ReadSample returns at most SniffLength bytes.
func TestReadSample(testingInstance *testing.T) {
	temporaryRoot := testingInstance.TempDir()
	largePath := filepath.Join(temporaryRoot, "large.txt")
	largeContent := bytes.Repeat([]byte("x"), utils.SniffLength*2)
	if writeError := os.WriteFile(largePath, largeContent, 0o600); writeError != nil {
		testingInstance.Fatalf("failed to write file: %v", writeError)
	}
	sample, readError := utils.ReadSample(largePath)
	if readError != nil {
		testingInstance.Fatalf("unexpected error: %v", readError)
	}
	if len(sample) != utils.SniffLength {
		testingInstance.Fatalf("expected %d bytes, got %d", utils.SniffLength, len(sample))
	}

	if _, missingError := utils.ReadSample(filepath.Join(temporaryRoot, "missing")); missingError == nil {
		testingInstance.Fatalf("expected error for missing file")
	}
}

// TestResolveDocumentRoot verifies repository root discovery.
func TestResolveDocumentRoot(testingInstance *testing.T) {
	repositoryRoot := testingInstance.TempDir()
	if mkdirError := os.MkdirAll(filepath.Join(repositoryRoot, utils.GitDirectoryName), 0o755); mkdirError != nil {
		testingInstance.Fatalf("failed to create git directory: %v", mkdirError)
	}
	nestedDirectory := filepath.Join(repositoryRoot, nestedDirectoryName, "deeper")
	if mkdirError := os.MkdirAll(nestedDirectory, 0o755); mkdirError != nil {
		testingInstance.Fatalf("failed to create nested directory: %v", mkdirError)
	}
	canonicalRepositoryRoot, canonicalError := utils.CanonicalPath(repositoryRoot)
	if canonicalError != nil {
		testingInstance.Fatalf("failed to canonicalize: %v", canonicalError)
	}

	root, isRepository, resolveError := utils.ResolveDocumentRoot(nestedDirectory)
	if resolveError != nil {
		testingInstance.Fatalf("unexpected error: %v", resolveError)
	}
	if !isRepository {
		testingInstance.Fatalf("expected nested directory to resolve to a repository")
	}
	if root != canonicalRepositoryRoot {
		testingInstance.Fatalf("expected root %s, got %s", canonicalRepositoryRoot, root)
	}
}

// TestResolveDocumentRootWithoutRepository verifies the target itself is used outside repositories.
func TestResolveDocumentRootWithoutRepository(testingInstance *testing.T) {
	plainDirectory := testingInstance.TempDir()
	if _, found := utils.FindRepositoryRoot(plainDirectory); found {
		testingInstance.Skip("temporary directory is inside a repository")
	}
	canonicalDirectory, _ := utils.CanonicalPath(plainDirectory)
	root, isRepository, resolveError := utils.ResolveDocumentRoot(plainDirectory)
	if resolveError != nil {
		testingInstance.Fatalf("unexpected error: %v", resolveError)
	}
	if isRepository {
		testingInstance.Fatalf("did not expect a repository")
	}
	if root != canonicalDirectory {
		testingInstance.Fatalf("expected %s, got %s", canonicalDirectory, root)
	}
}
