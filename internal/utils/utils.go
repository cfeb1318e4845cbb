// Package utils contains general helper functions used across dirstat.
package utils

import (
	"path/filepath"
	"strings"
)

// ExcludeFileName is the name of the per-root exclude file.
const ExcludeFileName = ".dirstatignore"

const (
	pathSegmentSeparator = "/"
	anchorPrefix         = "/"
)

// DeduplicatePatterns removes duplicate patterns from a slice while preserving order.
// The first occurrence of each unique pattern is kept.
func DeduplicatePatterns(patterns []string) []string {
	encounteredPatterns := make(map[string]struct{})
	result := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if _, exists := encounteredPatterns[pattern]; !exists {
			encounteredPatterns[pattern] = struct{}{}
			result = append(result, pattern)
		}
	}
	return result
}

// RelativePathOrSelf calculates the relative path from root to fullPath.
// Returns the cleaned fullPath if relative calculation fails.
// Returns "." if fullPath and root resolve to the same directory.
func RelativePathOrSelf(fullPath, root string) string {
	cleanPath := filepath.Clean(fullPath)
	absoluteRoot, err := filepath.Abs(root)
	if err != nil {
		return cleanPath
	}
	cleanAbsoluteRoot := filepath.Clean(absoluteRoot)

	if cleanPath == cleanAbsoluteRoot {
		return "."
	}

	relativePath, relErr := filepath.Rel(cleanAbsoluteRoot, cleanPath)
	if relErr != nil {
		return cleanPath
	}
	return filepath.ToSlash(relativePath)
}

// MatchesExcludePattern reports whether a path relative to the scan root is
// excluded by any of the patterns. Paths and patterns are normalized to
// forward slashes. A pattern ending with a slash only matches directories.
// A single-segment pattern matches the last path segment at any depth unless
// it starts with a slash, which anchors it to the scan root. Multi-segment
// patterns match the whole relative path, each segment evaluated with
// filepath.Match semantics. Descendants of an excluded directory are never
// listed, so patterns are not matched against path prefixes.
func MatchesExcludePattern(relativePath string, isDirectory bool, excludePatterns []string) bool {
	normalizedPath := strings.ReplaceAll(relativePath, "\\", pathSegmentSeparator)
	pathSegments := strings.Split(normalizedPath, pathSegmentSeparator)
	lastSegment := pathSegments[len(pathSegments)-1]

	for _, patternValue := range excludePatterns {
		normalizedPattern := strings.ReplaceAll(strings.TrimSpace(patternValue), "\\", pathSegmentSeparator)
		if normalizedPattern == "" {
			continue
		}
		isDirectoryPattern := strings.HasSuffix(normalizedPattern, pathSegmentSeparator)
		if isDirectoryPattern && !isDirectory {
			continue
		}
		isAnchored := strings.HasPrefix(normalizedPattern, anchorPrefix)
		trimmedPattern := strings.Trim(normalizedPattern, pathSegmentSeparator)
		if trimmedPattern == "" {
			continue
		}
		patternSegments := strings.Split(trimmedPattern, pathSegmentSeparator)

		if len(patternSegments) == 1 && !isAnchored {
			if segmentsMatch([]string{lastSegment}, patternSegments) {
				return true
			}
			continue
		}

		if len(pathSegments) == len(patternSegments) && segmentsMatch(pathSegments, patternSegments) {
			return true
		}
	}

	return false
}

// segmentsMatch reports whether each pattern segment matches the corresponding
// path segment using filepath.Match semantics.
func segmentsMatch(pathSegments, patternSegments []string) bool {
	for segmentIndex, patternSegment := range patternSegments {
		isMatched, matchError := filepath.Match(patternSegment, pathSegments[segmentIndex])
		if matchError != nil || !isMatched {
			return false
		}
	}
	return true
}
