package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ExampleConfigPath is the annotated example job shipped with the repo.
const ExampleConfigPath = "config/job.example.yaml"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Defaults for fields omitted from a job file.
const (
	DefaultTopology  = "phase1"
	DefaultTimeType  = "runnumber"
	DefaultPXBLayers = 4
	DefaultTIBLayers = 4
	DefaultRun       = 1
)

// DefaultRecords maps the two alignment records to their default tags.
var DefaultRecords = map[string]string{
	"TrackerAlignmentRcd":              "TrackerAlignment_Ideal",
	"TrackerAlignmentErrorExtendedRcd": "TrackerAlignmentErrorsExtended_Zero",
}

var jobValidate = validator.New()

// JobConfig describes one snapshot or level-building job.
type JobConfig struct {
	Geometry GeometryConfig `json:"geometry" yaml:"geometry"`
	// Topology names the identifier bit layout: phase0 (alias run1, run2)
	// or phase1.
	Topology         *string      `json:"topology,omitempty" yaml:"topology,omitempty" validate:"omitempty,oneof=phase0 phase1 run1 run2"`
	Output           OutputConfig `json:"output" yaml:"output"`
	Input            *InputConfig `json:"input,omitempty" yaml:"input,omitempty"`
	AlignToGlobalTag *bool        `json:"align_to_global_tag,omitempty" yaml:"align_to_global_tag,omitempty"`
	Levels           LevelsConfig `json:"levels" yaml:"levels"`
	Report           ReportConfig `json:"report" yaml:"report"`
}

// GeometryConfig selects the geometry source. With no CSV path the built-in
// synthetic phase-1 geometry is used.
type GeometryConfig struct {
	CSV string `json:"csv,omitempty" yaml:"csv,omitempty" validate:"omitempty,endswith=.csv"`
}

type OutputConfig struct {
	Connect  string            `json:"connect" yaml:"connect" validate:"required"`
	TimeType *string           `json:"time_type,omitempty" yaml:"time_type,omitempty" validate:"omitempty,oneof=runnumber timestamp lumiid"`
	Since    *uint64           `json:"since,omitempty" yaml:"since,omitempty" validate:"omitempty,gte=1"`
	Records  map[string]string `json:"records,omitempty" yaml:"records,omitempty" validate:"omitempty,dive,keys,required,endkeys,required"`
}

// InputConfig locates previously stored corrections.
type InputConfig struct {
	Connect string            `json:"connect" yaml:"connect" validate:"required"`
	Run     *uint64           `json:"run,omitempty" yaml:"run,omitempty" validate:"omitempty,gte=1"`
	Records map[string]string `json:"records,omitempty" yaml:"records,omitempty" validate:"omitempty,dive,keys,required,endkeys,required"`
}

type LevelsConfig struct {
	PXBLayers          *int  `json:"pxb_layers,omitempty" yaml:"pxb_layers,omitempty" validate:"omitempty,gte=1,lte=15"`
	TIBLayers          *int  `json:"tib_layers,omitempty" yaml:"tib_layers,omitempty" validate:"omitempty,gte=1,lte=7"`
	RequireAllFamilies *bool `json:"require_all_families,omitempty" yaml:"require_all_families,omitempty"`
	Parallel           *bool `json:"parallel,omitempty" yaml:"parallel,omitempty"`
}

type ReportConfig struct {
	PlotPath  string `json:"plot_path,omitempty" yaml:"plot_path,omitempty" validate:"omitempty,endswith=.png"`
	ChartPath string `json:"chart_path,omitempty" yaml:"chart_path,omitempty" validate:"omitempty,endswith=.html"`
}

// LoadJobConfig reads a job from a .yaml, .yml or .json file and validates
// it. Omitted fields fall back to the Get* defaults.
func LoadJobConfig(path string) (*JobConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".yaml" && ext != ".yml" && ext != ".json" {
		return nil, fmt.Errorf("config file must have .yaml, .yml or .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &JobConfig{}
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks struct tags and the rules that span sections.
func (c *JobConfig) Validate() error {
	if err := jobValidate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}
	if c.GetAlignToGlobalTag() && c.Input == nil {
		return fmt.Errorf("align_to_global_tag requires an input section")
	}
	return nil
}

// GetTopology returns the layout name or the default.
func (c *JobConfig) GetTopology() string {
	if c.Topology == nil || *c.Topology == "" {
		return DefaultTopology
	}
	return *c.Topology
}

// GetAlignToGlobalTag returns whether stored corrections are merged.
func (c *JobConfig) GetAlignToGlobalTag() bool {
	if c.AlignToGlobalTag == nil {
		return false // default
	}
	return *c.AlignToGlobalTag
}

func (o *OutputConfig) GetTimeType() string {
	if o.TimeType == nil || *o.TimeType == "" {
		return DefaultTimeType
	}
	return *o.TimeType
}

// GetSince returns the explicit since value, or 0 when the first value of
// the time type should be used.
func (o *OutputConfig) GetSince() uint64 {
	if o.Since == nil {
		return 0
	}
	return *o.Since
}

// GetRecords returns the record to tag mapping, filling in missing records
// from DefaultRecords.
func (o *OutputConfig) GetRecords() map[string]string {
	return withDefaultRecords(o.Records)
}

func (in *InputConfig) GetRun() uint64 {
	if in.Run == nil {
		return DefaultRun
	}
	return *in.Run
}

func (in *InputConfig) GetRecords() map[string]string {
	return withDefaultRecords(in.Records)
}

func withDefaultRecords(m map[string]string) map[string]string {
	out := make(map[string]string, len(DefaultRecords))
	for k, v := range DefaultRecords {
		out[k] = v
	}
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (l *LevelsConfig) GetPXBLayers() int {
	if l.PXBLayers == nil {
		return DefaultPXBLayers
	}
	return *l.PXBLayers
}

func (l *LevelsConfig) GetTIBLayers() int {
	if l.TIBLayers == nil {
		return DefaultTIBLayers
	}
	return *l.TIBLayers
}

func (l *LevelsConfig) GetRequireAllFamilies() bool {
	if l.RequireAllFamilies == nil {
		return false // default
	}
	return *l.RequireAllFamilies
}

func (l *LevelsConfig) GetParallel() bool {
	if l.Parallel == nil {
		return false // default
	}
	return *l.Parallel
}
