package commands

// UnlimitedDepth disables depth truncation in TreeBuilder.
const UnlimitedDepth = -1

// TreeBuilder converts a scanned tree into output nodes using configured options.
type TreeBuilder struct {
	// Depth limits how many levels below the top-level entry are expanded.
	// Deeper directories are reported with their aggregates and Truncated set.
	Depth int
}
