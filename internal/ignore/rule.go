// Package ignore compiles gitignore-style pattern files and decides which paths
// a traversal excludes.
package ignore

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

const (
	commentPrefix        = "#"
	negationPrefix       = "!"
	escapeCharacter      = '\\'
	pathSeparator        = "/"
	doubleStarToken      = "**"
	anyPathPrefixRegex   = "(?:.*/)?"
	anySegmentRegex      = "[^/]*"
	singleCharacterRegex = "[^/]"
	descendantsRegex     = "/.*"
)

const (
	skippedPatternMessage         = "skipping malformed ignore pattern"
	unterminatedClassErrorMessage = "unterminated character class"
	trailingEscapeErrorMessage    = "trailing escape character"
	compilePatternErrorFormat     = "compile pattern %q: %w"
	unknownCharacterClassFormat   = "unknown character class %q"
)

var (
	errUnterminatedClass = errors.New(unterminatedClassErrorMessage)
	errTrailingEscape    = errors.New(trailingEscapeErrorMessage)
)

// Rule is a single compiled ignore pattern.
type Rule struct {
	Pattern       string
	Negate        bool
	DirectoryOnly bool
	Anchored      bool
	Source        string
	Line          int
	expression    *regexp.Regexp
}

// Matches reports whether the rule selects relativePath, which is expressed
// relative to the base of the rule's set.
func (rule Rule) Matches(relativePath string, isDirectory bool) bool {
	if rule.expression == nil {
		return false
	}
	if rule.DirectoryOnly && !isDirectory {
		return false
	}
	if rule.Anchored {
		return rule.expression.MatchString(relativePath)
	}
	baseName := relativePath
	if separatorIndex := strings.LastIndex(relativePath, pathSeparator); separatorIndex >= 0 {
		baseName = relativePath[separatorIndex+1:]
	}
	return rule.expression.MatchString(baseName)
}

// ParseRule compiles one line of an ignore file. The boolean result is false for
// blank lines and comments; an error is returned for malformed patterns.
func ParseRule(line string) (Rule, bool, error) {
	trimmedLine := trimTrailingWhitespace(strings.TrimRight(line, "\r\n"))
	if trimmedLine == "" || strings.HasPrefix(trimmedLine, commentPrefix) {
		return Rule{}, false, nil
	}

	rule := Rule{}
	if strings.HasPrefix(trimmedLine, negationPrefix) {
		rule.Negate = true
		trimmedLine = trimmedLine[len(negationPrefix):]
	} else if strings.HasPrefix(trimmedLine, `\#`) || strings.HasPrefix(trimmedLine, `\!`) {
		trimmedLine = trimmedLine[1:]
	}

	if strings.HasSuffix(trimmedLine, pathSeparator) {
		rule.DirectoryOnly = true
		trimmedLine = strings.TrimRight(trimmedLine, pathSeparator)
	}
	if trimmedLine == "" {
		return Rule{}, false, nil
	}

	if strings.HasPrefix(trimmedLine, pathSeparator) {
		rule.Anchored = true
		trimmedLine = strings.TrimLeft(trimmedLine, pathSeparator)
	} else if strings.Contains(trimmedLine, pathSeparator) {
		rule.Anchored = true
	}
	rule.Pattern = trimmedLine

	expressionSource, translateError := translateGlob(trimmedLine)
	if translateError != nil {
		return Rule{}, false, fmt.Errorf(compilePatternErrorFormat, line, translateError)
	}
	compiledExpression, compileError := regexp.Compile(expressionSource)
	if compileError != nil {
		return Rule{}, false, fmt.Errorf(compilePatternErrorFormat, line, compileError)
	}
	rule.expression = compiledExpression
	return rule, true, nil
}

// ParseLines compiles every line of an ignore file into a RuleSet rooted at base.
// Malformed lines are logged and skipped.
func ParseLines(source string, base string, lines []string, logger *zap.Logger) RuleSet {
	if logger == nil {
		logger = zap.NewNop()
	}
	ruleSet := RuleSet{Base: base, Source: source}
	for lineIndex, line := range lines {
		rule, isRule, parseError := ParseRule(line)
		if parseError != nil {
			logger.Warn(skippedPatternMessage,
				zap.String("source", source),
				zap.Int("line", lineIndex+1),
				zap.Error(parseError))
			continue
		}
		if !isRule {
			continue
		}
		rule.Source = source
		rule.Line = lineIndex + 1
		ruleSet.Rules = append(ruleSet.Rules, rule)
	}
	return ruleSet
}

// trimTrailingWhitespace removes trailing spaces and tabs unless escaped with a backslash.
func trimTrailingWhitespace(line string) string {
	end := len(line)
	for end > 0 && (line[end-1] == ' ' || line[end-1] == '\t') {
		if end >= 2 && line[end-2] == escapeCharacter {
			break
		}
		end--
	}
	return line[:end]
}

// translateGlob converts a gitignore glob into an anchored regular expression.
func translateGlob(pattern string) (string, error) {
	var builder strings.Builder
	builder.WriteString("^")

	for index := 0; index < len(pattern); {
		remaining := pattern[index:]
		switch {
		case index == 0 && strings.HasPrefix(remaining, doubleStarToken+pathSeparator):
			builder.WriteString(anyPathPrefixRegex)
			index += len(doubleStarToken + pathSeparator)
		case remaining == pathSeparator+doubleStarToken:
			builder.WriteString(descendantsRegex)
			index += len(remaining)
		case strings.HasPrefix(remaining, pathSeparator+doubleStarToken+pathSeparator):
			builder.WriteString(pathSeparator + anyPathPrefixRegex)
			index += len(pathSeparator + doubleStarToken + pathSeparator)
		case remaining == doubleStarToken && index == 0:
			builder.WriteString(".*")
			index += len(doubleStarToken)
		case remaining[0] == '*':
			for index < len(pattern) && pattern[index] == '*' {
				index++
			}
			builder.WriteString(anySegmentRegex)
		case remaining[0] == '?':
			builder.WriteString(singleCharacterRegex)
			index++
		case remaining[0] == '[':
			classExpression, consumed, classError := translateClass(remaining)
			if classError != nil {
				return "", classError
			}
			builder.WriteString(classExpression)
			index += consumed
		case remaining[0] == escapeCharacter:
			if len(remaining) < 2 {
				return "", errTrailingEscape
			}
			builder.WriteString(regexp.QuoteMeta(remaining[1:2]))
			index += 2
		default:
			builder.WriteString(regexp.QuoteMeta(remaining[:1]))
			index++
		}
	}

	builder.WriteString("$")
	return builder.String(), nil
}

// characterClassNames lists the POSIX classes git accepts inside brackets.
var characterClassNames = map[string]struct{}{
	"alnum": {}, "alpha": {}, "blank": {}, "cntrl": {}, "digit": {}, "graph": {},
	"lower": {}, "print": {}, "punct": {}, "space": {}, "upper": {}, "xdigit": {},
}

// translateClass converts a bracket expression starting at class[0] == '['.
// It returns the regular expression and the number of pattern bytes consumed.
// Negated classes never match a path separator.
func translateClass(class string) (string, int, error) {
	var builder strings.Builder
	builder.WriteString("[")
	index := 1
	if index < len(class) && (class[index] == '!' || class[index] == '^') {
		builder.WriteString("^/")
		index++
	}
	firstMember := true
	for index < len(class) {
		character := class[index]
		switch {
		case character == ']' && !firstMember:
			builder.WriteString("]")
			return builder.String(), index + 1, nil
		case character == escapeCharacter:
			if index+1 >= len(class) {
				return "", 0, errUnterminatedClass
			}
			builder.WriteString(regexp.QuoteMeta(class[index+1 : index+2]))
			index += 2
		case character == '-':
			builder.WriteString("-")
			index++
		case character == '/':
			return "", 0, errUnterminatedClass
		case strings.HasPrefix(class[index:], "[:"):
			nameEnd := strings.Index(class[index+2:], ":]")
			if nameEnd < 0 {
				return "", 0, errUnterminatedClass
			}
			name := class[index+2 : index+2+nameEnd]
			if _, known := characterClassNames[name]; !known {
				return "", 0, fmt.Errorf(unknownCharacterClassFormat, name)
			}
			builder.WriteString("[:" + name + ":]")
			index += nameEnd + 4
		default:
			builder.WriteString(regexp.QuoteMeta(class[index : index+1]))
			index++
		}
		firstMember = false
	}
	return "", 0, errUnterminatedClass
}
