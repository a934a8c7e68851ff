package ignore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/TwoAbove/lc/internal/utils"
)

const (
	// binarySectionHeader identifies the section listing binary content patterns.
	binarySectionHeader = "[binary]"
	// ignoreSectionHeader identifies the section listing ignore patterns.
	ignoreSectionHeader = "[ignore]"

	defaultPatternsSource = "defaults"
	excludePatternsSource = "exclude"
)

const (
	readIgnoreFileErrorFormat    = "read ignore file %s: %w"
	targetOutsideRootErrorFormat = "target %s is not inside %s"
	skippedIgnoreFileMessage     = "skipping unreadable ignore file"
	loadedIgnoreFileMessage      = "loaded ignore file"
)

// DefaultPatterns are excluded from every snapshot unless configuration overrides them.
var DefaultPatterns = []string{"package-lock.json", "yarn.lock"}

// FileFormat selects how an ignore file is read.
type FileFormat int

const (
	// FormatGitignore reads every line as a gitignore pattern.
	FormatGitignore FileFormat = iota
	// FormatSectioned additionally recognises [binary] and [ignore] section headers.
	FormatSectioned
)

// LoadFile reads the ignore file at path and compiles it into a RuleSet rooted at base.
// A missing file yields an empty set and no error.
//
// #nosec G304
func LoadFile(path string, base string, format FileFormat, logger *zap.Logger) (RuleSet, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fileHandle, openError := os.Open(path)
	if openError != nil {
		if os.IsNotExist(openError) {
			return RuleSet{Base: base, Source: path}, nil
		}
		return RuleSet{}, fmt.Errorf(readIgnoreFileErrorFormat, path, openError)
	}
	defer fileHandle.Close()

	var ignoreLines []string
	var binaryLines []string
	currentSectionHeader := ignoreSectionHeader
	scanner := bufio.NewScanner(fileHandle)
	for scanner.Scan() {
		line := scanner.Text()
		if format == FormatSectioned {
			trimmedLine := strings.TrimSpace(line)
			if strings.EqualFold(trimmedLine, binarySectionHeader) {
				currentSectionHeader = binarySectionHeader
				ignoreLines = append(ignoreLines, "")
				binaryLines = append(binaryLines, "")
				continue
			}
			if strings.EqualFold(trimmedLine, ignoreSectionHeader) {
				currentSectionHeader = ignoreSectionHeader
				ignoreLines = append(ignoreLines, "")
				binaryLines = append(binaryLines, "")
				continue
			}
		}
		// Blank placeholders keep reported line numbers aligned with the file.
		if currentSectionHeader == binarySectionHeader {
			binaryLines = append(binaryLines, line)
			ignoreLines = append(ignoreLines, "")
			continue
		}
		ignoreLines = append(ignoreLines, line)
		binaryLines = append(binaryLines, "")
	}
	if scanError := scanner.Err(); scanError != nil {
		return RuleSet{}, fmt.Errorf(readIgnoreFileErrorFormat, path, scanError)
	}

	ruleSet := ParseLines(path, base, ignoreLines, logger)
	ruleSet.BinaryRules = ParseLines(path, base, binaryLines, logger).Rules
	logger.Debug(loadedIgnoreFileMessage,
		zap.String("path", path),
		zap.Int("rules", len(ruleSet.Rules)),
		zap.Int("binaryRules", len(ruleSet.BinaryRules)))
	return ruleSet, nil
}

// Options configures which ignore sources contribute to a Matcher.
type Options struct {
	// DocumentRoot is the canonical directory that entry paths are relative to.
	DocumentRoot string
	// TargetDirectory is the canonical directory being scanned, inside DocumentRoot.
	TargetDirectory string
	// IsRepository enables the repository-local exclude file.
	IsRepository bool
	// UseGitignore enables .gitignore files.
	UseGitignore bool
	// ToolIgnoreFileName names the per-directory tool ignore file; empty disables it.
	ToolIgnoreFileName string
	// GlobalIgnorePath locates the user-wide ignore file; empty disables it.
	GlobalIgnorePath string
	// DefaultPatterns are applied at the document root before any file.
	DefaultPatterns []string
	// ExcludePatterns are applied at the document root after every file.
	ExcludePatterns []string
	Logger          *zap.Logger
}

func (options Options) logger() *zap.Logger {
	if options.Logger == nil {
		return zap.NewNop()
	}
	return options.Logger
}

// GlobalIgnorePath returns the path of the global tool ignore file below
// homeDirectory, or an empty path when there is no home directory.
func GlobalIgnorePath(homeDirectory string) string {
	if homeDirectory == "" {
		return ""
	}
	return filepath.Join(homeDirectory, utils.ToolIgnoreFileName)
}

// LoadStack builds the Matcher that applies above and at the target directory:
// the global ignore file, the default patterns, the repository exclude file,
// the ignore files of every directory from the document root down to the
// target, and finally the explicit exclude patterns.
func LoadStack(options Options) (*Matcher, error) {
	relativeTarget, relativeError := filepath.Rel(options.DocumentRoot, options.TargetDirectory)
	if relativeError != nil || relativeTarget == ".." || strings.HasPrefix(relativeTarget, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf(targetOutsideRootErrorFormat, options.TargetDirectory, options.DocumentRoot)
	}

	var ruleSets []RuleSet
	if options.GlobalIgnorePath != "" {
		ruleSets = append(ruleSets, options.loadOrSkip(options.GlobalIgnorePath, "", FormatSectioned))
	}
	ruleSets = append(ruleSets, ParseLines(defaultPatternsSource, "", options.DefaultPatterns, options.logger()))
	if options.IsRepository {
		excludePath := filepath.Join(options.DocumentRoot, utils.GitDirectoryName, filepath.FromSlash(utils.GitExcludeRelativePath))
		ruleSets = append(ruleSets, options.loadOrSkip(excludePath, "", FormatGitignore))
	}

	ruleSets = append(ruleSets, options.DirectoryRuleSets(options.DocumentRoot, "")...)
	if relativeTarget != "." {
		relativeDirectory := ""
		for _, segment := range strings.Split(filepath.ToSlash(relativeTarget), pathSeparator) {
			relativeDirectory = utils.JoinRelative(relativeDirectory, segment)
			absoluteDirectory := filepath.Join(options.DocumentRoot, filepath.FromSlash(relativeDirectory))
			ruleSets = append(ruleSets, options.DirectoryRuleSets(absoluteDirectory, relativeDirectory)...)
		}
	}

	ruleSets = append(ruleSets, ParseLines(excludePatternsSource, "", options.ExcludePatterns, options.logger()))
	return NewMatcher(ruleSets...), nil
}

// DirectoryRuleSets loads the ignore files that live in absoluteDirectory.
// relativeDirectory is the same directory relative to the document root and
// becomes the base of the returned sets.
func (options Options) DirectoryRuleSets(absoluteDirectory string, relativeDirectory string) []RuleSet {
	var ruleSets []RuleSet
	if options.UseGitignore {
		gitIgnorePath := filepath.Join(absoluteDirectory, utils.GitIgnoreFileName)
		ruleSets = append(ruleSets, options.loadOrSkip(gitIgnorePath, relativeDirectory, FormatGitignore))
	}
	if options.ToolIgnoreFileName != "" {
		toolIgnorePath := filepath.Join(absoluteDirectory, options.ToolIgnoreFileName)
		ruleSets = append(ruleSets, options.loadOrSkip(toolIgnorePath, relativeDirectory, FormatSectioned))
	}
	return ruleSets
}

func (options Options) loadOrSkip(path string, base string, format FileFormat) RuleSet {
	ruleSet, loadError := LoadFile(path, base, format, options.logger())
	if loadError != nil {
		options.logger().Warn(skippedIgnoreFileMessage, zap.String("path", path), zap.Error(loadError))
		return RuleSet{}
	}
	return ruleSet
}
