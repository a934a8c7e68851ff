package commands_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/TwoAbove/lc/internal/commands"
	"github.com/TwoAbove/lc/internal/document"
	"github.com/TwoAbove/lc/internal/ignore"
	"github.com/TwoAbove/lc/internal/tokenizer"
	"github.com/TwoAbove/lc/internal/utils"
)

const (
	textFileName      = "plain.txt"
	textFileContent   = "hello\nworld\n"
	binaryFileName    = "data.bin"
	binaryFileContent = "\x00\xff"
	imageFileName     = "logo.png"
	ignoredFileName   = "debug.log"
	keptLogFileName   = "keep.log"
	nestedDirName     = "pkg"
	ignoredDirName    = "build"
	gitIgnoreContent  = "*.log\nbuild/\n"
)

type runeCounter struct{}

func (runeCounter) Name() string { return "runes" }

func (runeCounter) CountString(input string) (int, error) { return len([]rune(input)), nil }

type rejectingCounter struct{}

func (rejectingCounter) Name() string { return "rejecting" }

func (rejectingCounter) CountString(input string) (int, error) {
	if strings.Contains(input, "reject") {
		return 0, errors.New("cannot encode")
	}
	return len(input), nil
}

func writeFixture(testingHandle *testing.T, path string, content string) {
	testingHandle.Helper()
	if mkdirError := os.MkdirAll(filepath.Dir(path), 0o755); mkdirError != nil {
		testingHandle.Fatalf("mkdir %s: %v", filepath.Dir(path), mkdirError)
	}
	if writeError := os.WriteFile(path, []byte(content), 0o644); writeError != nil {
		testingHandle.Fatalf("writing %s: %v", path, writeError)
	}
}

// createRepository lays out a repository fixture and returns its canonical root.
func createRepository(testingHandle *testing.T) string {
	testingHandle.Helper()
	rootDirectory := testingHandle.TempDir()
	if mkdirError := os.MkdirAll(filepath.Join(rootDirectory, utils.GitDirectoryName), 0o755); mkdirError != nil {
		testingHandle.Fatalf("mkdir .git: %v", mkdirError)
	}
	writeFixture(testingHandle, filepath.Join(rootDirectory, utils.GitDirectoryName, "HEAD"), "ref: refs/heads/main\n")
	writeFixture(testingHandle, filepath.Join(rootDirectory, utils.GitIgnoreFileName), gitIgnoreContent)
	writeFixture(testingHandle, filepath.Join(rootDirectory, textFileName), textFileContent)
	writeFixture(testingHandle, filepath.Join(rootDirectory, binaryFileName), binaryFileContent)
	writeFixture(testingHandle, filepath.Join(rootDirectory, imageFileName), "not really an image")
	writeFixture(testingHandle, filepath.Join(rootDirectory, ignoredFileName), "noise")
	writeFixture(testingHandle, filepath.Join(rootDirectory, ignoredDirName, "out.txt"), "artifact")
	writeFixture(testingHandle, filepath.Join(rootDirectory, nestedDirName, utils.GitIgnoreFileName), "!"+keptLogFileName+"\n")
	writeFixture(testingHandle, filepath.Join(rootDirectory, nestedDirName, keptLogFileName), "kept")
	writeFixture(testingHandle, filepath.Join(rootDirectory, nestedDirName, "main.go"), "package pkg\n")

	canonicalRoot, canonicalError := utils.CanonicalPath(rootDirectory)
	if canonicalError != nil {
		testingHandle.Fatalf("canonical path: %v", canonicalError)
	}
	return canonicalRoot
}

func snapshotOptions(target string) commands.SnapshotOptions {
	return commands.SnapshotOptions{
		TargetDirectory:    target,
		Accountant:         tokenizer.Accountant{Counter: runeCounter{}, Limit: tokenizer.DefaultTokenLimit},
		Concurrency:        4,
		UseGitignore:       true,
		ToolIgnoreFileName: utils.ToolIgnoreFileName,
		DefaultPatterns:    ignore.DefaultPatterns,
	}
}

func entryPaths(codebaseDocument document.CodebaseDocument) []string {
	var paths []string
	for _, entry := range codebaseDocument.Entries {
		paths = append(paths, entry.Path)
	}
	return paths
}

func findEntry(testingHandle *testing.T, codebaseDocument document.CodebaseDocument, path string) document.FileEntry {
	testingHandle.Helper()
	for _, entry := range codebaseDocument.Entries {
		if entry.Path == path {
			return entry
		}
	}
	testingHandle.Fatalf("entry %s not found in %v", path, entryPaths(codebaseDocument))
	return document.FileEntry{}
}

// TestBuildSnapshotRespectsIgnoreRules verifies which paths a repository snapshot contains.
func TestBuildSnapshotRespectsIgnoreRules(testingHandle *testing.T) {
	rootDirectory := createRepository(testingHandle)

	codebaseDocument, buildError := commands.BuildSnapshot(context.Background(), snapshotOptions(rootDirectory))
	if buildError != nil {
		testingHandle.Fatalf("BuildSnapshot error: %v", buildError)
	}
	if codebaseDocument.Root != rootDirectory {
		testingHandle.Fatalf("expected root %s, got %s", rootDirectory, codebaseDocument.Root)
	}
	expectedPaths := []string{
		utils.GitIgnoreFileName,
		binaryFileName,
		imageFileName,
		nestedDirName + "/" + utils.GitIgnoreFileName,
		nestedDirName + "/" + keptLogFileName,
		nestedDirName + "/main.go",
		textFileName,
	}
	if diff := cmp.Diff(expectedPaths, entryPaths(codebaseDocument)); diff != "" {
		testingHandle.Fatalf("unexpected entries (-want +got):\n%s", diff)
	}
}

// TestBuildSnapshotClassifiesEntries verifies text, binary placeholder, and accounting fields.
func TestBuildSnapshotClassifiesEntries(testingHandle *testing.T) {
	rootDirectory := createRepository(testingHandle)

	codebaseDocument, buildError := commands.BuildSnapshot(context.Background(), snapshotOptions(rootDirectory))
	if buildError != nil {
		testingHandle.Fatalf("BuildSnapshot error: %v", buildError)
	}

	textEntry := findEntry(testingHandle, codebaseDocument, textFileName)
	expectedText := document.FileEntry{
		Path:      textFileName,
		Kind:      document.KindText,
		Content:   textFileContent,
		Lines:     2,
		Tokens:    len([]rune(textFileContent)),
		SizeBytes: int64(len(textFileContent)),
		Counted:   true,
	}
	if diff := cmp.Diff(expectedText, textEntry); diff != "" {
		testingHandle.Fatalf("unexpected text entry (-want +got):\n%s", diff)
	}

	for _, binaryPath := range []string{binaryFileName, imageFileName} {
		binaryEntry := findEntry(testingHandle, codebaseDocument, binaryPath)
		if binaryEntry.Kind != document.KindBinary || binaryEntry.Content != document.BinaryPlaceholder {
			testingHandle.Fatalf("expected binary placeholder for %s, got %+v", binaryPath, binaryEntry)
		}
		if binaryEntry.Lines != 0 || !binaryEntry.Counted {
			testingHandle.Fatalf("unexpected binary accounting for %s: %+v", binaryPath, binaryEntry)
		}
	}
}

// TestBuildSnapshotSubfolderUsesRepositoryRoot verifies that a subfolder snapshot is keyed by the repository root.
func TestBuildSnapshotSubfolderUsesRepositoryRoot(testingHandle *testing.T) {
	rootDirectory := createRepository(testingHandle)

	codebaseDocument, buildError := commands.BuildSnapshot(context.Background(), snapshotOptions(filepath.Join(rootDirectory, nestedDirName)))
	if buildError != nil {
		testingHandle.Fatalf("BuildSnapshot error: %v", buildError)
	}
	if codebaseDocument.Root != rootDirectory {
		testingHandle.Fatalf("expected repository root %s, got %s", rootDirectory, codebaseDocument.Root)
	}
	expectedPaths := []string{
		nestedDirName + "/" + utils.GitIgnoreFileName,
		nestedDirName + "/" + keptLogFileName,
		nestedDirName + "/main.go",
	}
	if diff := cmp.Diff(expectedPaths, entryPaths(codebaseDocument)); diff != "" {
		testingHandle.Fatalf("unexpected entries (-want +got):\n%s", diff)
	}
}

// TestBuildSnapshotSkipsOutputFile verifies that skipped paths never reach the document.
func TestBuildSnapshotSkipsOutputFile(testingHandle *testing.T) {
	rootDirectory := createRepository(testingHandle)
	outputPath := filepath.Join(rootDirectory, "context.xml")
	writeFixture(testingHandle, outputPath, "<lc></lc>")
	options := snapshotOptions(rootDirectory)
	options.SkipPaths = []string{outputPath}

	codebaseDocument, buildError := commands.BuildSnapshot(context.Background(), options)
	if buildError != nil {
		testingHandle.Fatalf("BuildSnapshot error: %v", buildError)
	}
	for _, path := range entryPaths(codebaseDocument) {
		if path == "context.xml" {
			testingHandle.Fatalf("expected the output file to be skipped")
		}
	}
}

// TestBuildSnapshotDirectoryOnly verifies that directory-only snapshots carry structure without content.
func TestBuildSnapshotDirectoryOnly(testingHandle *testing.T) {
	rootDirectory := createRepository(testingHandle)
	options := snapshotOptions(rootDirectory)
	options.DirectoryOnly = true

	codebaseDocument, buildError := commands.BuildSnapshot(context.Background(), options)
	if buildError != nil {
		testingHandle.Fatalf("BuildSnapshot error: %v", buildError)
	}
	if !codebaseDocument.DirectoryOnly {
		testingHandle.Fatalf("expected directory-only document")
	}
	directoryEntry := findEntry(testingHandle, codebaseDocument, nestedDirName)
	if !directoryEntry.IsDirectory() {
		testingHandle.Fatalf("expected %s to be a directory entry", nestedDirName)
	}
	for _, entry := range codebaseDocument.Entries {
		if entry.Content != "" || entry.Tokens != 0 {
			testingHandle.Fatalf("directory-only entry carries content: %+v", entry)
		}
		if entry.Path == ignoredDirName {
			testingHandle.Fatalf("ignored directory listed")
		}
	}
}

// TestBuildSnapshotDeterministicAcrossConcurrency verifies identical output for sequential and parallel inspection.
func TestBuildSnapshotDeterministicAcrossConcurrency(testingHandle *testing.T) {
	rootDirectory := createRepository(testingHandle)
	for index := 0; index < 30; index++ {
		writeFixture(testingHandle, filepath.Join(rootDirectory, "many", strings.Repeat("f", index+1)+".txt"), strings.Repeat("x", index))
	}

	sequentialOptions := snapshotOptions(rootDirectory)
	sequentialOptions.Concurrency = 1
	sequential, sequentialError := commands.BuildSnapshot(context.Background(), sequentialOptions)
	if sequentialError != nil {
		testingHandle.Fatalf("sequential BuildSnapshot error: %v", sequentialError)
	}

	parallelOptions := snapshotOptions(rootDirectory)
	parallelOptions.Concurrency = 16
	parallel, parallelError := commands.BuildSnapshot(context.Background(), parallelOptions)
	if parallelError != nil {
		testingHandle.Fatalf("parallel BuildSnapshot error: %v", parallelError)
	}

	if diff := cmp.Diff(sequential, parallel); diff != "" {
		testingHandle.Fatalf("output depends on concurrency (-sequential +parallel):\n%s", diff)
	}
}

// TestBuildSnapshotOverLimitAndUncounted verifies over-limit flagging and uncounted files.
func TestBuildSnapshotOverLimitAndUncounted(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	writeFixture(testingHandle, filepath.Join(rootDirectory, "large.txt"), strings.Repeat("word ", 40))
	writeFixture(testingHandle, filepath.Join(rootDirectory, "small.txt"), "tiny")
	writeFixture(testingHandle, filepath.Join(rootDirectory, "odd.txt"), "please reject me")

	options := snapshotOptions(rootDirectory)
	options.Accountant = tokenizer.Accountant{Counter: rejectingCounter{}, Limit: 50}
	codebaseDocument, buildError := commands.BuildSnapshot(context.Background(), options)
	if buildError != nil {
		testingHandle.Fatalf("BuildSnapshot error: %v", buildError)
	}

	stats := codebaseDocument.Stats(options.Accountant.Limit)
	if len(stats.OverLimit) != 1 || stats.OverLimit[0].Path != "large.txt" {
		testingHandle.Fatalf("expected large.txt over limit, got %+v", stats.OverLimit)
	}
	if len(stats.Uncounted) != 1 || !strings.HasSuffix(stats.Uncounted[0], "/odd.txt") {
		testingHandle.Fatalf("expected odd.txt uncounted, got %+v", stats.Uncounted)
	}
	largeEntry := findEntry(testingHandle, codebaseDocument, "large.txt")
	if largeEntry.Content != strings.Repeat("word ", 40) {
		testingHandle.Fatalf("over-limit files must be embedded in full")
	}
}

// TestBuildSnapshotForcedBinaryPatterns verifies [binary] sections in the tool ignore file.
func TestBuildSnapshotForcedBinaryPatterns(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	writeFixture(testingHandle, filepath.Join(rootDirectory, utils.ToolIgnoreFileName), "[binary]\n*.fixture\n")
	writeFixture(testingHandle, filepath.Join(rootDirectory, "golden.fixture"), "readable text")

	codebaseDocument, buildError := commands.BuildSnapshot(context.Background(), snapshotOptions(rootDirectory))
	if buildError != nil {
		testingHandle.Fatalf("BuildSnapshot error: %v", buildError)
	}
	fixtureEntry := findEntry(testingHandle, codebaseDocument, "golden.fixture")
	if fixtureEntry.Kind != document.KindBinary {
		testingHandle.Fatalf("expected forced binary entry, got %+v", fixtureEntry)
	}
}

// TestBuildSnapshotUnreadableFile verifies that read failures become error entries.
func TestBuildSnapshotUnreadableFile(testingHandle *testing.T) {
	if os.Geteuid() == 0 {
		testingHandle.Skip("file permissions are not enforced for root")
	}
	rootDirectory := testingHandle.TempDir()
	lockedPath := filepath.Join(rootDirectory, "locked.txt")
	writeFixture(testingHandle, lockedPath, "secret")
	if chmodError := os.Chmod(lockedPath, 0o000); chmodError != nil {
		testingHandle.Fatalf("chmod: %v", chmodError)
	}
	testingHandle.Cleanup(func() { _ = os.Chmod(lockedPath, 0o600) })

	codebaseDocument, buildError := commands.BuildSnapshot(context.Background(), snapshotOptions(rootDirectory))
	if buildError != nil {
		testingHandle.Fatalf("BuildSnapshot error: %v", buildError)
	}
	lockedEntry := findEntry(testingHandle, codebaseDocument, "locked.txt")
	if lockedEntry.Kind != document.KindError {
		testingHandle.Fatalf("expected error entry, got %+v", lockedEntry)
	}
	if !strings.HasPrefix(lockedEntry.Content, "[Error reading file: ") {
		testingHandle.Fatalf("unexpected error body %q", lockedEntry.Content)
	}
}

// TestBuildSnapshotRejectsInvalidTarget verifies validation of the target directory.
func TestBuildSnapshotRejectsInvalidTarget(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	filePath := filepath.Join(rootDirectory, textFileName)
	writeFixture(testingHandle, filePath, textFileContent)

	for _, target := range []string{filepath.Join(rootDirectory, "missing"), filePath} {
		_, buildError := commands.BuildSnapshot(context.Background(), snapshotOptions(target))
		if !errors.Is(buildError, commands.ErrInvalidDirectory) {
			testingHandle.Fatalf("expected ErrInvalidDirectory for %s, got %v", target, buildError)
		}
	}
}

// TestBuildSnapshotHonoursCancellation verifies that a cancelled context aborts the build.
func TestBuildSnapshotHonoursCancellation(testingHandle *testing.T) {
	rootDirectory := createRepository(testingHandle)
	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()

	_, buildError := commands.BuildSnapshot(cancelledContext, snapshotOptions(rootDirectory))
	if !errors.Is(buildError, context.Canceled) {
		testingHandle.Fatalf("expected context.Canceled, got %v", buildError)
	}
}
