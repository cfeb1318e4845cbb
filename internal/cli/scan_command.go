package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/temirov/dirstat/internal/cachefile"
	"github.com/temirov/dirstat/internal/commands"
	"github.com/temirov/dirstat/internal/config"
	"github.com/temirov/dirstat/internal/dirtree"
	"github.com/temirov/dirstat/internal/services/stream"
	"github.com/temirov/dirstat/internal/types"
)

const (
	formatFlagName            = "format"
	depthFlagName             = "depth"
	crossFileSystemsFlagName  = "cross-filesystems"
	noOverflowFlagName        = "no-overflow"
	overflowThresholdFlagName = "overflow-threshold"
	exclusionFlagName         = "e"
	noIgnoreFlagName          = "no-ignore"
	cacheOutFlagName          = "cache-out"
	metricsTextfileFlagName   = "metrics-textfile"
	clipboardFlagName         = "clipboard"
	eventsFlagName            = "events"

	scanUse              = "scan [path]"
	loadUse              = "load <cache-file|scanned-directory>"
	scanAlias            = "s"
	loadAlias            = "l"
	scanShortDescription = "scan a directory tree (" + scanAlias + ")"
	loadShortDescription = "load a cache file written by scan (" + loadAlias + ")"

	// scanLongDescription provides detailed help for the scan command.
	scanLongDescription = `Read a directory tree and report accumulated sizes per directory.
Directories with many files group them under a <Files> entry unless --no-overflow is given.
Use --cache-out to save the finished tree for the load command.`
	// scanUsageExample demonstrates scan command usage.
	scanUsageExample = `  # Show the two top levels of the home directory
  dirstat scan --depth 2 ~

  # Save a cache file and exclude build outputs
  dirstat scan -e build/ -e '*.o' --cache-out /tmp/src.cache.gz ./src`

	// loadLongDescription provides detailed help for the load command.
	loadLongDescription = `Rebuild a tree from a cache file written by scan --cache-out.
Given a directory, the file written by scan --cache-out auto for that directory is loaded.
The file system is not read; directories come back in the cached state.`
	// loadUsageExample demonstrates load command usage.
	loadUsageExample = `  # Render a saved scan as JSON
  dirstat load --format json /tmp/src.cache.gz`

	formatFlagDescription            = "output format (raw, json, ndjson)"
	depthFlagDescription             = "maximum rendered depth below the scan root (-1 for unlimited)"
	crossFileSystemsFlagDescription  = "descend into directories on other file systems"
	noOverflowFlagDescription        = "do not group files of large directories"
	overflowThresholdFlagDescription = "number of direct files that triggers grouping"
	exclusionFlagDescription         = "exclude path pattern"
	noIgnoreFlagDescription          = "do not use the .dirstatignore file"
	cacheOutFlagDescription          = "write the finished tree to this cache file (\"auto\" for the per-root default)"
	metricsTextfileFlagDescription   = "write Prometheus scan metrics to this textfile"
	clipboardFlagDescription         = "copy the rendered report to the system clipboard"
	eventsFlagDescription            = "emit an event for every entry added to the tree"

	// autoCacheFileValue selects the per-root file under the user cache directory.
	autoCacheFileValue = "auto"

	invalidFormatMessage            = "invalid format value '%s'"
	invalidOverflowThresholdMessage = "--%s must be at least 1, got %d"
)

// outputFlags holds the flags shared by scan and load.
type outputFlags struct {
	format          string
	depth           int
	clipboard       bool
	events          bool
	metricsTextfile string
}

// scanFlags holds the flags specific to scan.
type scanFlags struct {
	crossFileSystems  bool
	noOverflow        bool
	overflowThreshold int
	exclusionPatterns []string
	noIgnore          bool
	cacheOut          string
}

// outputSettings is the result of merging configuration and flags.
type outputSettings struct {
	format          string
	depth           int
	clipboard       bool
	events          bool
	metricsTextfile string
}

// isSupportedFormat reports whether the provided format is recognized.
func isSupportedFormat(format string) bool {
	switch format {
	case types.FormatRaw, types.FormatJSON, types.FormatNDJSON:
		return true
	default:
		return false
	}
}

func addOutputFlags(command *cobra.Command, flags *outputFlags) {
	command.Flags().StringVar(&flags.format, formatFlagName, types.FormatRaw, formatFlagDescription)
	command.Flags().IntVar(&flags.depth, depthFlagName, commands.UnlimitedDepth, depthFlagDescription)
	registerBooleanFlag(command.Flags(), &flags.clipboard, clipboardFlagName, false, clipboardFlagDescription)
	registerBooleanFlag(command.Flags(), &flags.events, eventsFlagName, false, eventsFlagDescription)
	command.Flags().StringVar(&flags.metricsTextfile, metricsTextfileFlagName, "", metricsTextfileFlagDescription)
}

// resolveOutputSettings overlays explicitly set flags onto the configuration.
func resolveOutputSettings(configuration config.OutputConfiguration, flags outputFlags, changed func(string) bool) (outputSettings, error) {
	settings := outputSettings{
		format: types.FormatRaw,
		depth:  commands.UnlimitedDepth,
	}
	if configuration.Format != "" {
		settings.format = configuration.Format
	}
	if configuration.Depth != nil {
		settings.depth = *configuration.Depth
	}
	if configuration.Clipboard != nil {
		settings.clipboard = *configuration.Clipboard
	}
	if configuration.Events != nil {
		settings.events = *configuration.Events
	}

	if changed(formatFlagName) {
		settings.format = flags.format
	}
	if changed(depthFlagName) {
		settings.depth = flags.depth
	}
	if changed(clipboardFlagName) {
		settings.clipboard = flags.clipboard
	}
	if changed(eventsFlagName) {
		settings.events = flags.events
	}
	settings.metricsTextfile = flags.metricsTextfile

	settings.format = strings.ToLower(strings.TrimSpace(settings.format))
	if !isSupportedFormat(settings.format) {
		return outputSettings{}, fmt.Errorf(invalidFormatMessage, settings.format)
	}
	if settings.depth < 0 {
		settings.depth = commands.UnlimitedDepth
	}
	return settings, nil
}

// resolveScanConfig overlays explicitly set flags onto the scan configuration.
// It reports whether the root's exclude file should be read.
func resolveScanConfig(configuration config.ScanConfiguration, flags scanFlags, changed func(string) bool) (dirtree.ScanConfig, bool, error) {
	scanConfig := dirtree.DefaultScanConfig()
	useExcludeFile := true
	if configuration.CrossFileSystems != nil {
		scanConfig.CrossFileSystems = *configuration.CrossFileSystems
	}
	if configuration.OverflowGrouping != nil {
		scanConfig.EnableOverflowGrouping = *configuration.OverflowGrouping
	}
	if configuration.OverflowThreshold != nil {
		scanConfig.OverflowThreshold = *configuration.OverflowThreshold
	}
	if configuration.UseExcludeFile != nil {
		useExcludeFile = *configuration.UseExcludeFile
	}

	if changed(crossFileSystemsFlagName) {
		scanConfig.CrossFileSystems = flags.crossFileSystems
	}
	if changed(noOverflowFlagName) {
		scanConfig.EnableOverflowGrouping = !flags.noOverflow
	}
	if changed(overflowThresholdFlagName) {
		if flags.overflowThreshold < 1 {
			return dirtree.ScanConfig{}, false, fmt.Errorf(invalidOverflowThresholdMessage, overflowThresholdFlagName, flags.overflowThreshold)
		}
		scanConfig.OverflowThreshold = flags.overflowThreshold
	}
	if changed(noIgnoreFlagName) {
		useExcludeFile = !flags.noIgnore
	}

	scanConfig.ExcludePatterns = append(append([]string{}, configuration.Exclude...), flags.exclusionPatterns...)
	return scanConfig, useExcludeFile, nil
}

// resolveCacheOutput maps the configured cache file to an absolute path and
// creates its directory.
func resolveCacheOutput(state *applicationState, cacheFile string, rootPath string) (string, error) {
	if cacheFile == "" {
		return "", nil
	}
	var resolved string
	var resolveErr error
	if cacheFile == autoCacheFileValue {
		resolved, resolveErr = cachefile.DefaultPath(rootPath)
	} else {
		resolved, resolveErr = state.resolvePath(cacheFile)
	}
	if resolveErr != nil {
		return "", resolveErr
	}
	if ensureErr := cachefile.EnsureDirectory(resolved); ensureErr != nil {
		return "", ensureErr
	}
	return resolved, nil
}

// resolveCacheInput accepts a cache file or a directory scanned with the
// automatic cache location.
func resolveCacheInput(state *applicationState, argument string) (string, error) {
	resolved, resolveErr := state.resolvePath(argument)
	if resolveErr != nil {
		return "", resolveErr
	}
	if info, statErr := os.Stat(resolved); statErr == nil && info.IsDir() {
		return cachefile.DefaultPath(resolved)
	}
	return resolved, nil
}

// newScanCommand returns the scan subcommand.
func newScanCommand(state *applicationState) *cobra.Command {
	var output outputFlags
	var scan scanFlags

	scanCommand := &cobra.Command{
		Use:     scanUse,
		Aliases: []string{scanAlias},
		Short:   scanShortDescription,
		Long:    scanLongDescription,
		Example: scanUsageExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			if prepareErr := state.prepare(); prepareErr != nil {
				return prepareErr
			}
			changed := command.Flags().Changed
			settings, settingsErr := resolveOutputSettings(state.configuration.Output, output, changed)
			if settingsErr != nil {
				return settingsErr
			}
			scanConfig, useExcludeFile, scanConfigErr := resolveScanConfig(state.configuration.Scan, scan, changed)
			if scanConfigErr != nil {
				return scanConfigErr
			}

			rootArgument := defaultPath
			if len(arguments) == 1 {
				rootArgument = arguments[0]
			}
			rootPath, rootErr := state.resolvePath(rootArgument)
			if rootErr != nil {
				return rootErr
			}
			patterns, patternsErr := config.LoadCombinedExcludePatterns(rootPath, scanConfig.ExcludePatterns, useExcludeFile)
			if patternsErr != nil {
				return patternsErr
			}
			scanConfig.ExcludePatterns = patterns

			cacheFile := state.configuration.Cache.File
			if changed(cacheOutFlagName) {
				cacheFile = scan.cacheOut
			}
			cacheFile, cacheErr := resolveCacheOutput(state, cacheFile, rootPath)
			if cacheErr != nil {
				return cacheErr
			}
			settings.metricsTextfile, _ = state.resolvePath(settings.metricsTextfile)

			return state.runStream(command.Context(), settings, func(ctx context.Context, scanMetrics dirtree.ScanMetrics, events chan<- stream.Event) error {
				return stream.StreamScan(ctx, stream.ScanOptions{
					Root:        rootPath,
					Config:      scanConfig,
					Depth:       settings.depth,
					EmitEntries: settings.events,
					CacheFile:   cacheFile,
					Logger:      state.logger,
					Metrics:     scanMetrics,
				}, events)
			})
		},
	}

	addOutputFlags(scanCommand, &output)
	registerBooleanFlag(scanCommand.Flags(), &scan.crossFileSystems, crossFileSystemsFlagName, false, crossFileSystemsFlagDescription)
	registerBooleanFlag(scanCommand.Flags(), &scan.noOverflow, noOverflowFlagName, false, noOverflowFlagDescription)
	scanCommand.Flags().IntVar(&scan.overflowThreshold, overflowThresholdFlagName, dirtree.DefaultOverflowThreshold, overflowThresholdFlagDescription)
	scanCommand.Flags().StringArrayVarP(&scan.exclusionPatterns, exclusionFlagName, exclusionFlagName, nil, exclusionFlagDescription)
	registerBooleanFlag(scanCommand.Flags(), &scan.noIgnore, noIgnoreFlagName, false, noIgnoreFlagDescription)
	scanCommand.Flags().StringVar(&scan.cacheOut, cacheOutFlagName, "", cacheOutFlagDescription)
	return scanCommand
}

// newLoadCommand returns the load subcommand.
func newLoadCommand(state *applicationState) *cobra.Command {
	var output outputFlags

	loadCommand := &cobra.Command{
		Use:     loadUse,
		Aliases: []string{loadAlias},
		Short:   loadShortDescription,
		Long:    loadLongDescription,
		Example: loadUsageExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			if prepareErr := state.prepare(); prepareErr != nil {
				return prepareErr
			}
			settings, settingsErr := resolveOutputSettings(state.configuration.Output, output, command.Flags().Changed)
			if settingsErr != nil {
				return settingsErr
			}
			cacheFile, cacheErr := resolveCacheInput(state, arguments[0])
			if cacheErr != nil {
				return cacheErr
			}
			settings.metricsTextfile, _ = state.resolvePath(settings.metricsTextfile)

			return state.runStream(command.Context(), settings, func(ctx context.Context, scanMetrics dirtree.ScanMetrics, events chan<- stream.Event) error {
				return stream.StreamCache(ctx, stream.LoadOptions{
					CacheFile:   cacheFile,
					Depth:       settings.depth,
					EmitEntries: settings.events,
					Logger:      state.logger,
					Metrics:     scanMetrics,
				}, events)
			})
		},
	}

	addOutputFlags(loadCommand, &output)
	return loadCommand
}
