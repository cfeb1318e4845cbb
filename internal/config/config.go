// Package config loads dirstat configuration files and exclude pattern files.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/temirov/dirstat/internal/utils"
)

// LoadExcludeFilePatterns reads an exclude file and returns its patterns.
// A missing file yields no patterns.
//
// #nosec G304
func LoadExcludeFilePatterns(excludeFilePath string) ([]string, error) {
	fileHandle, openFileError := os.Open(excludeFilePath)
	if openFileError != nil {
		if os.IsNotExist(openFileError) {
			return nil, nil
		}
		return nil, openFileError
	}
	defer func() {
		closeError := fileHandle.Close()
		if closeError != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close %s: %v\n", excludeFilePath, closeError)
		}
	}()

	var excludePatterns []string
	scanner := bufio.NewScanner(fileHandle)
	for scanner.Scan() {
		trimmedLine := strings.TrimSpace(scanner.Text())
		if trimmedLine == "" || strings.HasPrefix(trimmedLine, "#") {
			continue
		}
		excludePatterns = append(excludePatterns, trimmedLine)
	}
	if scanError := scanner.Err(); scanError != nil {
		return nil, scanError
	}
	return excludePatterns, nil
}

// LoadCombinedExcludePatterns merges the scan root's exclude file with the
// provided patterns. The exclude file is skipped when useExcludeFile is false
// or when the scan root is not a directory.
func LoadCombinedExcludePatterns(absoluteRootPath string, exclusionPatterns []string, useExcludeFile bool) ([]string, error) {
	var combinedPatterns []string

	if useExcludeFile {
		if info, statErr := os.Stat(absoluteRootPath); statErr == nil && info.IsDir() {
			excludeFilePath := filepath.Join(absoluteRootPath, utils.ExcludeFileName)
			filePatterns, loadError := LoadExcludeFilePatterns(excludeFilePath)
			if loadError != nil {
				return nil, fmt.Errorf("loading %s from %s: %w", utils.ExcludeFileName, absoluteRootPath, loadError)
			}
			combinedPatterns = append(combinedPatterns, filePatterns...)
		}
	}

	for _, pattern := range exclusionPatterns {
		trimmedPattern := strings.TrimSpace(pattern)
		if trimmedPattern == "" {
			continue
		}
		combinedPatterns = append(combinedPatterns, trimmedPattern)
	}

	return utils.DeduplicatePatterns(combinedPatterns), nil
}
