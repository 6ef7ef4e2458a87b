package scaffold

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/folio/internal/config"
)

// CheckExisting returns an error if dir already holds folio.yml or a .folio/ directory
func CheckExisting(dir string) error {
	var existingFiles []string

	if _, err := os.Stat(filepath.Join(dir, config.DefaultFile)); err == nil {
		existingFiles = append(existingFiles, config.DefaultFile)
	}

	if info, err := os.Stat(filepath.Join(dir, StateDir)); err == nil && info.IsDir() {
		existingFiles = append(existingFiles, StateDir+"/")
	}

	if len(existingFiles) == 0 {
		return nil
	}

	errMsg := "project already initialized\n\nFound existing"
	if len(existingFiles) == 1 {
		errMsg += fmt.Sprintf(": %s\n", existingFiles[0])
	} else {
		errMsg += " files:\n"
		for _, file := range existingFiles {
			errMsg += fmt.Sprintf("  - %s\n", file)
		}
	}
	errMsg += "\nUse 'folio init --force' to reinitialize (this will discard local state)"

	return fmt.Errorf("%s", errMsg)
}
