package artifacts

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// WriteJSON writes v to path as indented JSON, creating parent
// directories as needed.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "artifacts: create artifact dir")
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "artifacts: marshal json")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "artifacts: write %s", path)
	}
	return nil
}

// WriteLines writes one string per line to path.
func WriteLines(path string, lines []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "artifacts: create artifact dir")
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "artifacts: create %s", path)
	}
	defer f.Close()

	for _, line := range lines {
		if _, err := f.WriteString(line + "\n"); err != nil {
			return eris.Wrapf(err, "artifacts: write %s", path)
		}
	}
	return f.Close()
}
