// Package types defines the data structures rendered by the codetransformer CLI.
package types

const (
	CommandTransform = "transform"
	CommandFiles     = "files"

	FormatRaw  = "raw"
	FormatJSON = "json"
	FormatTree = "tree"
)

// ValidatedPath is an absolute input path that already passed existence checks.
type ValidatedPath struct {
	AbsolutePath string
	IsDir        bool
}

// FileListing is the result of the files command.
type FileListing struct {
	Entry          string              `json:"entry"`
	BaseDirectory  string              `json:"baseDirectory,omitempty"`
	Fallback       bool                `json:"fallback"`
	FallbackReason string              `json:"fallbackReason,omitempty"`
	Files          []string            `json:"files"`
	Graph          map[string][]string `json:"graph,omitempty"`
	// Reach counts, for every file nothing imports, the files it reaches
	// transitively, itself included.
	Reach map[string]int `json:"reach,omitempty"`
	// GraphOrder lists the graph keys in discovery order.
	GraphOrder []string `json:"-"`
}

// RunReport is the result of the transform command.
type RunReport struct {
	Entry      string   `json:"entry"`
	ConfigPath string   `json:"configPath,omitempty"`
	DryRun     bool     `json:"dryRun,omitempty"`
	Files      []string `json:"files"`
	Rewritten  []string `json:"rewritten"`
	Artifacts  []string `json:"artifacts"`
	Cancelled  bool     `json:"cancelled,omitempty"`
}

// OutputSummary captures aggregate information about a run.
type OutputSummary struct {
	TotalFiles     int `json:"totalFiles"`
	RewrittenFiles int `json:"rewrittenFiles"`
	Artifacts      int `json:"artifacts"`
}
