// Package scaffold creates a starter folio project in a directory.
package scaffold

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/folio/internal/config"
)

//go:embed templates/*
var templatesFS embed.FS

// StateDir holds local state (the sqlite database) and is ignored by git.
const StateDir = ".folio"

// FileInfo represents a file to be created during initialization
type FileInfo struct {
	Path        string
	Content     []byte
	Permissions os.FileMode
}

// Initialize writes folio.yml and the .folio/ state directory into dir.
// If force is true, an existing folio.yml and .folio/ are removed first.
func Initialize(dir string, force bool) error {
	if force {
		if err := handleForce(dir); err != nil {
			return err
		}
	} else if err := CheckExisting(dir); err != nil {
		return err
	}

	files, err := getTemplateFiles(dir)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Join(dir, StateDir), 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", StateDir, err)
	}

	for _, file := range files {
		if err := os.WriteFile(file.Path, file.Content, file.Permissions); err != nil {
			return fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
	}

	// The generated config must load cleanly.
	if _, err := config.Load(filepath.Join(dir, config.DefaultFile)); err != nil {
		return fmt.Errorf("generated %s is invalid: %w", config.DefaultFile, err)
	}

	return nil
}

// handleForce removes files a previous init created
func handleForce(dir string) error {
	cfgPath := filepath.Join(dir, config.DefaultFile)
	if _, err := os.Stat(cfgPath); err == nil {
		fmt.Printf("⚠️  Removing existing %s...\n", config.DefaultFile)
		if err := os.Remove(cfgPath); err != nil {
			return fmt.Errorf("failed to remove %s: %w", config.DefaultFile, err)
		}
	}

	stateDir := filepath.Join(dir, StateDir)
	if info, err := os.Stat(stateDir); err == nil && info.IsDir() {
		fmt.Printf("⚠️  Removing existing %s/ directory...\n", StateDir)
		if err := os.RemoveAll(stateDir); err != nil {
			return fmt.Errorf("failed to remove %s/ directory: %w", StateDir, err)
		}
	}

	return nil
}

func getTemplateFiles(dir string) ([]FileInfo, error) {
	folioYml, err := templatesFS.ReadFile("templates/folio.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read folio.yml template: %w", err)
	}

	return []FileInfo{
		{Path: filepath.Join(dir, config.DefaultFile), Content: folioYml, Permissions: 0644},
		{Path: filepath.Join(dir, StateDir, ".gitignore"), Content: []byte("*\n"), Permissions: 0644},
	}, nil
}

// PrintSuccess prints the success message with created files
func PrintSuccess() {
	fmt.Println("\n✅ Successfully initialized folio project!")
	fmt.Println("\nCreated:")
	fmt.Printf("  ✓ %s\n", config.DefaultFile)
	fmt.Printf("  ✓ %s/\n", StateDir)
	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Edit %s to declare your journals and templates\n", config.DefaultFile)
	fmt.Println("  2. Run 'folio templates' to see the registered templates")
	fmt.Println("  3. Run 'folio resolve toc journal/embo' to see what a page renders")
}
