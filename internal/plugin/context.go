package plugin

import (
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/assetpack/internal/config"
	"git.home.luguber.info/inful/assetpack/internal/loader"
)

// ChunkKind is the kind of a named output file.
type ChunkKind string

const (
	ChunkJS  ChunkKind = "js"
	ChunkCSS ChunkKind = "css"
	ChunkMap ChunkKind = "map"
)

// Chunk is a named output file that pages reference, such as main.js.
type Chunk struct {
	Name string
	Kind ChunkKind
	// File is relative to the output directory.
	File string
}

// BuildContext is the mutable state shared by every hook of one build.
// Hooks run on a single goroutine, so plugins need no locking.
type BuildContext struct {
	BuildID    string
	Config     *config.Config
	Snapshot   string
	Logger     *slog.Logger
	SourceRoot string
	OutputDir  string

	// Modules are the processed modules ordered by RelPath.
	Modules []*loader.Module
	// Current is the module an asset hook is looking at.
	Current *loader.Module

	// Assets maps a source-relative path to the URL importers see: the
	// public URL of an emitted file or a data URI.
	Assets map[string]string

	// Linked holds the absolute paths of the files the entry bundle
	// reached. It is nil until the entry has been linked.
	Linked map[string]bool
	// LinkedCSS is stylesheet output esbuild produced for CSS it loaded
	// itself, such as package stylesheets under node_modules.
	LinkedCSS []byte

	Outputs  *Outputs
	Chunks   []Chunk
	Warnings []string

	// Data lets plugins share state without depending on each other.
	Data map[string]any
}

// NewBuildContext creates a context for one build of cfg with a fresh build ID.
func NewBuildContext(cfg *config.Config, logger *slog.Logger) *BuildContext {
	if logger == nil {
		logger = slog.Default()
	}
	bc := &BuildContext{
		BuildID: uuid.NewString(),
		Config:  cfg,
		Logger:  logger,
		Assets:  make(map[string]string),
		Outputs: NewOutputs(),
		Data:    make(map[string]any),
	}
	if cfg != nil {
		bc.Snapshot = cfg.Snapshot()
		bc.SourceRoot = cfg.SourceRoot()
		bc.OutputDir = cfg.Output.Path
	}
	return bc
}

// AddChunk registers a named output file.
func (bc *BuildContext) AddChunk(c Chunk) {
	bc.Chunks = append(bc.Chunks, c)
}

// ChunksOf returns the chunks of one kind in registration order.
func (bc *BuildContext) ChunksOf(kind ChunkKind) []Chunk {
	var out []Chunk
	for _, c := range bc.Chunks {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// Module returns the processed module at a source-relative path.
func (bc *BuildContext) Module(relPath string) (*loader.Module, bool) {
	i := sort.Search(len(bc.Modules), func(i int) bool { return bc.Modules[i].RelPath >= relPath })
	if i < len(bc.Modules) && bc.Modules[i].RelPath == relPath {
		return bc.Modules[i], true
	}
	return nil, false
}

// Reached reports whether the linked entry bundle includes m. Before linking
// every module counts as reached.
func (bc *BuildContext) Reached(m *loader.Module) bool {
	if bc.Linked == nil {
		return true
	}
	return bc.Linked[filepath.Clean(m.Path)]
}

// AssetURL resolves a reference written inside from to the URL of the asset
// it names, if that asset was resolved in this build.
func (bc *BuildContext) AssetURL(from *loader.Module, ref string) (string, bool) {
	rel, ok := from.ResolveDependency(ref)
	if !ok {
		return "", false
	}
	u, ok := bc.Assets[rel]
	return u, ok
}

// Warn records a non-fatal problem for the build report.
func (bc *BuildContext) Warn(msg string) {
	bc.Warnings = append(bc.Warnings, msg)
	bc.Logger.Warn(msg)
}

// SetValue stores a value in the shared data map.
func (bc *BuildContext) SetValue(key string, value any) {
	bc.Data[key] = value
}

// GetValue retrieves a value from the shared data map.
// Returns nil if the key doesn't exist.
func (bc *BuildContext) GetValue(key string) any {
	return bc.Data[key]
}

// GetString retrieves a string value from the shared data map.
// Returns empty string if the key doesn't exist or isn't a string.
func (bc *BuildContext) GetString(key string) string {
	s, _ := bc.Data[key].(string)
	return s
}

// GetBool retrieves a bool value from the shared data map.
func (bc *BuildContext) GetBool(key string) bool {
	b, _ := bc.Data[key].(bool)
	return b
}
