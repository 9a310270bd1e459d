// Package job loads the supported job-type catalog: a YAML document mapping
// ClusterFuzz job types to the builder and reproducer implementations that
// know how to build and run them.
package job

// RawDefinition is the as-parsed shape of one catalog entry, before preset
// inheritance has been resolved.
type RawDefinition struct {
	Preset     string `yaml:"preset,omitempty"`
	Builder    string `yaml:"builder,omitempty" validate:"omitempty,oneof=Pdfium V8 Chromium LibfuzzerMsan MsanChromium CfiChromium UbsanVptrChromium"`
	Source     string `yaml:"source,omitempty"`
	Reproducer string `yaml:"reproducer,omitempty" validate:"omitempty,oneof=Base LibfuzzerJob LinuxChromeJob"`
	Binary     string `yaml:"binary,omitempty"`
	Sanitizer  string `yaml:"sanitizer,omitempty" validate:"omitempty,oneof=asan msan ubsan cfi"`
	Target     string `yaml:"target,omitempty"`
}

// catalogFile is the top-level shape of supported_job_types.yml.
type catalogFile struct {
	Presets    map[string]RawDefinition `yaml:"presets"`
	Standalone map[string]RawDefinition `yaml:"standalone"`
	Chromium   map[string]RawDefinition `yaml:"chromium"`
}

// Definition is a fully-resolved job type: preset inheritance applied and
// every field validated against its enumerated set.
type Definition struct {
	JobType    string
	BuildGroup string
	Builder    string
	Source     string
	Reproducer string
	BinaryName string
	Sanitizer  string
	Target     string
}

// Catalog is the resolved set of job definitions, grouped by build type the
// way reproduce.py's get_supported_jobs groups "standalone" from "chromium".
type Catalog struct {
	Standalone map[string]Definition
	Chromium   map[string]Definition
}

// Lookup finds the definition for jobType, preferring buildGroup when it is
// not "download" and the job type exists there, then falling back to
// chromium and standalone in that order — mirroring get_binary_definition.
func (c *Catalog) Lookup(jobType, buildGroup string) (Definition, bool) {
	if buildGroup != "download" && buildGroup != "" {
		if group := c.group(buildGroup); group != nil {
			if def, ok := group[jobType]; ok {
				return def, true
			}
		}
	}
	for _, group := range []map[string]Definition{c.Chromium, c.Standalone} {
		if def, ok := group[jobType]; ok {
			return def, true
		}
	}
	return Definition{}, false
}

func (c *Catalog) group(name string) map[string]Definition {
	switch name {
	case "chromium":
		return c.Chromium
	case "standalone":
		return c.Standalone
	default:
		return nil
	}
}
