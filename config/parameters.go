// Package config holds the simulator-wide microarchitectural
// parameters that the rest of the module reads at construction time:
// cache sizes, FIFO depths, tile dimensions, network topology, credit
// maximums, and bandwidth caps (spec.md §1, §6 "-Pname=value"/
// "--name=value"). A Parameters value is write-once at init time
// (spec.md §5, "Shared-resource policy"). ScratchpadSize, CreditMax,
// IPKCacheAssociative, IPKCacheTags and MemoryGroupSize are parsed and
// validated but not read when the chip is built: cores use
// state.DefaultScratchpadSize, a fixed credit maximum of 8 and a
// direct-mapped IPK cache, and memory views span all of a tile's banks.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Parameters is the full set of values the CLI's `-P`/`--` flags and
// `parameter` loader-script directive can override (spec.md §6).
// Grounded on `timing/latency.TimingConfig`'s flat-struct-plus-JSON
// shape, generalized from per-instruction latencies to the whole
// chip's microarchitectural parameter set.
type Parameters struct {
	// Core
	NumArchRegisters   int `json:"num_arch_registers"`
	NumChannelFIFOs    int `json:"num_channel_fifos"`
	ScratchpadSize     int `json:"scratchpad_size"`
	CMTSize            int `json:"cmt_size"`
	FetchBufferDepth   int `json:"fetch_buffer_depth"`

	// Instruction stores
	IPKCacheWords       int  `json:"ipk_cache_words"`
	IPKCacheAssociative bool `json:"ipk_cache_associative"`
	IPKCacheTags        int  `json:"ipk_cache_tags"`
	IPKCacheLineWords   int  `json:"ipk_cache_line_words"`
	IPKFIFOWords        int  `json:"ipk_fifo_words"`

	// Tile / chip topology
	TileGridWidth  int `json:"tile_grid_width"`
	TileGridHeight int `json:"tile_grid_height"`
	CoresPerTile   int `json:"cores_per_tile"`
	BanksPerTile   int `json:"banks_per_tile"`

	// Network
	CreditMax            int `json:"credit_max"`
	BandwidthPerLink     int `json:"bandwidth_per_link"` // flits/cycle; 0 = unlimited
	MemoryGroupSize      int `json:"memory_group_size"`
	MemoryLineSize       int `json:"memory_line_size"`
	DefaultMemoryChannel int `json:"default_memory_channel"` // CMT index pre-wired to local memory at tile construction
	DefaultReturnChannel int `json:"default_return_channel"` // channel-FIFO index memory responses target

	// Deadlock detection
	IdleCycleTimeout int `json:"idle_cycle_timeout"`
}

// Default returns the parameter set the simulator uses when no
// `-settings` file or `-P`/`--` override is given.
func Default() *Parameters {
	return &Parameters{
		NumArchRegisters:    32,
		NumChannelFIFOs:     4,
		ScratchpadSize:      256,
		CMTSize:             16,
		FetchBufferDepth:    4,
		IPKCacheWords:       64,
		IPKCacheAssociative: false,
		IPKCacheTags:        8,
		IPKCacheLineWords:   8,
		IPKFIFOWords:        16,
		TileGridWidth:       4,
		TileGridHeight:      4,
		CoresPerTile:        8,
		BanksPerTile:        4,
		CreditMax:           8,
		BandwidthPerLink:    1,
		MemoryGroupSize:      1,
		MemoryLineSize:       32,
		DefaultMemoryChannel: 0,
		DefaultReturnChannel: 0,
		IdleCycleTimeout:     100000,
	}
}

// Load reads a JSON settings file (the `-settings` flag, spec.md §6)
// on top of Default.
func Load(path string) (*Parameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}
	p := Default()
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse settings file: %w", err)
	}
	return p, nil
}

// Save writes the parameter set to a JSON file, e.g. for
// `--list-parameters` consumers that want a template to edit.
func (p *Parameters) Save(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize parameters: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Set applies one `-Pname=value` / `--name=value` override (spec.md
// §6). name is the JSON tag of the field being overridden.
func (p *Parameters) Set(name, value string) error {
	field, ok := fieldByJSONTag(p, name)
	if !ok {
		return fmt.Errorf("unknown parameter %q", name)
	}
	switch field.kind {
	case fieldInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("parameter %q expects an integer: %w", name, err)
		}
		*field.intPtr = n
	case fieldBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("parameter %q expects a boolean: %w", name, err)
		}
		*field.boolPtr = b
	}
	return nil
}

// Names returns every overridable parameter name, for
// `--list-parameters` (spec.md §6).
func (p *Parameters) Names() []string {
	return []string{
		"num_arch_registers", "num_channel_fifos", "scratchpad_size", "cmt_size",
		"fetch_buffer_depth", "ipk_cache_words", "ipk_cache_associative",
		"ipk_cache_tags", "ipk_cache_line_words", "ipk_fifo_words",
		"tile_grid_width", "tile_grid_height", "cores_per_tile", "banks_per_tile",
		"credit_max", "bandwidth_per_link", "memory_group_size", "memory_line_size",
		"default_memory_channel", "default_return_channel", "idle_cycle_timeout",
	}
}

// Clone returns a deep copy (Parameters has no reference fields, so a
// shallow struct copy suffices; kept as a method for symmetry with
// the teacher's TimingConfig.Clone idiom).
func (p *Parameters) Clone() *Parameters {
	cp := *p
	return &cp
}

// Validate checks basic structural sanity the rest of the module
// relies on without re-checking at every call site.
func (p *Parameters) Validate() error {
	if p.IPKCacheAssociative && p.IPKCacheTags <= 0 {
		return fmt.Errorf("ipk_cache_tags must be > 0 when ipk_cache_associative is set")
	}
	if p.IPKCacheAssociative && p.IPKCacheWords%p.IPKCacheTags != 0 {
		return fmt.Errorf("ipk_cache_words must be a multiple of ipk_cache_tags")
	}
	if p.CMTSize <= 0 || p.CMTSize > 16 {
		return fmt.Errorf("cmt_size must be in 1..16 (a 4-bit channel field addresses it)")
	}
	if p.NumArchRegisters <= 0 {
		return fmt.Errorf("num_arch_registers must be > 0")
	}
	return nil
}

type fieldKind int

const (
	fieldInt fieldKind = iota
	fieldBool
)

type fieldRef struct {
	kind    fieldKind
	intPtr  *int
	boolPtr *bool
}

// fieldByJSONTag maps a `-Pname=value` name to the backing struct
// field via its json tag, avoiding a hand-maintained switch that would
// drift from the struct (and from reflect, which the teacher avoids
// in this file in favor of an explicit struct literal approach — here
// a small lookup table plays the same role without reflection).
func fieldByJSONTag(p *Parameters, name string) (fieldRef, bool) {
	table := map[string]fieldRef{
		"num_arch_registers":    {kind: fieldInt, intPtr: &p.NumArchRegisters},
		"num_channel_fifos":     {kind: fieldInt, intPtr: &p.NumChannelFIFOs},
		"scratchpad_size":       {kind: fieldInt, intPtr: &p.ScratchpadSize},
		"cmt_size":              {kind: fieldInt, intPtr: &p.CMTSize},
		"fetch_buffer_depth":    {kind: fieldInt, intPtr: &p.FetchBufferDepth},
		"ipk_cache_words":       {kind: fieldInt, intPtr: &p.IPKCacheWords},
		"ipk_cache_associative": {kind: fieldBool, boolPtr: &p.IPKCacheAssociative},
		"ipk_cache_tags":        {kind: fieldInt, intPtr: &p.IPKCacheTags},
		"ipk_cache_line_words":  {kind: fieldInt, intPtr: &p.IPKCacheLineWords},
		"ipk_fifo_words":        {kind: fieldInt, intPtr: &p.IPKFIFOWords},
		"tile_grid_width":       {kind: fieldInt, intPtr: &p.TileGridWidth},
		"tile_grid_height":      {kind: fieldInt, intPtr: &p.TileGridHeight},
		"cores_per_tile":        {kind: fieldInt, intPtr: &p.CoresPerTile},
		"banks_per_tile":        {kind: fieldInt, intPtr: &p.BanksPerTile},
		"credit_max":            {kind: fieldInt, intPtr: &p.CreditMax},
		"bandwidth_per_link":    {kind: fieldInt, intPtr: &p.BandwidthPerLink},
		"memory_group_size":      {kind: fieldInt, intPtr: &p.MemoryGroupSize},
		"memory_line_size":       {kind: fieldInt, intPtr: &p.MemoryLineSize},
		"default_memory_channel": {kind: fieldInt, intPtr: &p.DefaultMemoryChannel},
		"default_return_channel": {kind: fieldInt, intPtr: &p.DefaultReturnChannel},
		"idle_cycle_timeout":     {kind: fieldInt, intPtr: &p.IdleCycleTimeout},
	}
	f, ok := table[name]
	return f, ok
}
