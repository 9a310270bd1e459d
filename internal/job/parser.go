package job

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	cferrors "github.com/alexisbeaulieu97/clusterfuzz-reproduce/pkg/errors"
)

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// ParseCatalog loads the supported job-type catalog from disk, resolves
// preset inheritance, and validates every resolved definition.
func ParseCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cferrors.NewParseError(path, 0, err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, cferrors.NewParseError(path, extractLine(err), err)
	}

	catalog := &Catalog{
		Standalone: make(map[string]Definition, len(file.Standalone)),
		Chromium:   make(map[string]Definition, len(file.Chromium)),
	}

	for jobType, raw := range file.Standalone {
		def, err := resolveDefinition(jobType, "standalone", raw, file.Presets)
		if err != nil {
			return nil, err
		}
		catalog.Standalone[jobType] = def
	}
	for jobType, raw := range file.Chromium {
		def, err := resolveDefinition(jobType, "chromium", raw, file.Presets)
		if err != nil {
			return nil, err
		}
		catalog.Chromium[jobType] = def
	}

	return catalog, nil
}

// resolveDefinition applies preset inheritance (a raw definition naming a
// preset is merged over that preset's fields, recursively) and validates the
// result, mirroring parse_job_definition + build_binary_definition.
func resolveDefinition(jobType, buildGroup string, raw RawDefinition, presets map[string]RawDefinition) (Definition, error) {
	merged, err := mergePreset(raw, presets, make(map[string]bool))
	if err != nil {
		return Definition{}, err
	}

	if err := validateRawDefinition(jobType, merged); err != nil {
		return Definition{}, err
	}

	return Definition{
		JobType:    jobType,
		BuildGroup: buildGroup,
		Builder:    merged.Builder,
		Source:     merged.Source,
		Reproducer: merged.Reproducer,
		BinaryName: merged.Binary,
		Sanitizer:  merged.Sanitizer,
		Target:     merged.Target,
	}, nil
}

func mergePreset(raw RawDefinition, presets map[string]RawDefinition, seen map[string]bool) (RawDefinition, error) {
	if raw.Preset == "" {
		return raw, nil
	}
	if seen[raw.Preset] {
		return RawDefinition{}, cferrors.NewValidationError("preset", fmt.Sprintf("cyclic preset reference %q", raw.Preset), nil)
	}
	seen[raw.Preset] = true

	base, ok := presets[raw.Preset]
	if !ok {
		return RawDefinition{}, cferrors.NewValidationError("preset", fmt.Sprintf("unknown preset %q", raw.Preset), nil)
	}

	resolved, err := mergePreset(base, presets, seen)
	if err != nil {
		return RawDefinition{}, err
	}

	if raw.Builder != "" {
		resolved.Builder = raw.Builder
	}
	if raw.Source != "" {
		resolved.Source = raw.Source
	}
	if raw.Reproducer != "" {
		resolved.Reproducer = raw.Reproducer
	}
	if raw.Binary != "" {
		resolved.Binary = raw.Binary
	}
	if raw.Sanitizer != "" {
		resolved.Sanitizer = raw.Sanitizer
	}
	if raw.Target != "" {
		resolved.Target = raw.Target
	}
	return resolved, nil
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}
	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}
	var line int
	if _, scanErr := fmt.Sscanf(matches[1], "%d", &line); scanErr != nil {
		return 0
	}
	return line
}
