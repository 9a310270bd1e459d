package job

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const catalogYAML = `
presets:
  chromium_base:
    reproducer: LinuxChromeJob
    source: chromium

standalone:
  libfuzzer_asan_pdfium:
    builder: Pdfium
    source: pdfium
    reproducer: LibfuzzerJob

chromium:
  asan_chrome:
    preset: chromium_base
    builder: Chromium
    sanitizer: asan
  cfi_chrome:
    preset: chromium_base
    builder: CfiChromium
    sanitizer: cfi
    binary: chrome
`

func writeCatalog(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "supported_job_types.yml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o640))
	return path
}

func TestParseCatalogResolvesPresets(t *testing.T) {
	t.Parallel()

	path := writeCatalog(t, catalogYAML)
	catalog, err := ParseCatalog(path)
	require.NoError(t, err)

	asan, ok := catalog.Chromium["asan_chrome"]
	require.True(t, ok)
	require.Equal(t, "Chromium", asan.Builder)
	require.Equal(t, "LinuxChromeJob", asan.Reproducer)
	require.Equal(t, "chromium", asan.Source)
	require.Equal(t, "asan", asan.Sanitizer)

	cfi, ok := catalog.Chromium["cfi_chrome"]
	require.True(t, ok)
	require.Equal(t, "CfiChromium", cfi.Builder)
	require.Equal(t, "chrome", cfi.BinaryName)

	standalone, ok := catalog.Standalone["libfuzzer_asan_pdfium"]
	require.True(t, ok)
	require.Equal(t, "Pdfium", standalone.Builder)
}

func TestParseCatalogRejectsUnknownPreset(t *testing.T) {
	t.Parallel()

	path := writeCatalog(t, `
chromium:
  broken:
    preset: does_not_exist
    builder: Chromium
`)
	_, err := ParseCatalog(path)
	require.Error(t, err)
}

func TestParseCatalogRejectsUnknownBuilder(t *testing.T) {
	t.Parallel()

	path := writeCatalog(t, `
standalone:
  bad:
    builder: NotARealBuilder
    reproducer: Base
`)
	_, err := ParseCatalog(path)
	require.Error(t, err)
}

func TestParseCatalogRejectsMissingFile(t *testing.T) {
	t.Parallel()

	_, err := ParseCatalog(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
}

func TestCatalogLookupPrefersBuildGroupThenFallsBack(t *testing.T) {
	t.Parallel()

	catalog := &Catalog{
		Standalone: map[string]Definition{
			"shared_job": {JobType: "shared_job", BuildGroup: "standalone", Builder: "Pdfium"},
		},
		Chromium: map[string]Definition{
			"shared_job": {JobType: "shared_job", BuildGroup: "chromium", Builder: "Chromium"},
			"chrome_only": {JobType: "chrome_only", BuildGroup: "chromium", Builder: "Chromium"},
		},
	}

	def, ok := catalog.Lookup("shared_job", "standalone")
	require.True(t, ok)
	require.Equal(t, "Pdfium", def.Builder)

	def, ok = catalog.Lookup("shared_job", "download")
	require.True(t, ok)
	require.Equal(t, "Chromium", def.Builder)

	_, ok = catalog.Lookup("nonexistent", "download")
	require.False(t, ok)
}
