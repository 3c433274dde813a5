// Package testutil holds fixtures shared by tests and benchmarks.
package testutil

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
)

// TestdataFS holds the embedded fixture files.
//
//go:embed testdata
var TestdataFS embed.FS

// ReadTestData returns the content of the named fixture.
func ReadTestData(name string) ([]byte, error) {
	data, err := fs.ReadFile(TestdataFS, path.Join("testdata", name))
	if err != nil {
		return nil, fmt.Errorf("testutil: reading fixture %q: %w", name, err)
	}
	return data, nil
}
