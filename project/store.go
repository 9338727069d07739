package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const timestampLayout = "2006-01-02_15-04-05"

// ErrNoSaves is returned when loading the latest save of an empty project.
var ErrNoSaves = errors.New("project: no saves")

// SaveInfo represents a saved project file (for listing)
type SaveInfo struct {
	Filename  string
	Name      string // parsed from filename (empty if unnamed)
	Timestamp time.Time
}

// Store keeps projects as folders of timestamped JSON saves.
type Store struct {
	Dir string
	now func() time.Time
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{Dir: dir, now: time.Now}
}

// DefaultDir returns the projects directory path
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-pattern", "projects"), nil
}

// projectDir returns the path to a specific project
func (s *Store) projectDir(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("project: invalid project name %q", name)
	}
	return filepath.Join(s.Dir, name), nil
}

// ListProjects returns all project folder names
func (s *Store) ListProjects() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	var projects []string
	for _, entry := range entries {
		if entry.IsDir() {
			projects = append(projects, entry.Name())
		}
	}

	sort.Strings(projects)
	return projects, nil
}

// ListSaves returns timestamped saves for a project, newest first
func (s *Store) ListSaves(project string) ([]SaveInfo, error) {
	dir, err := s.projectDir(project)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SaveInfo{}, nil
		}
		return nil, err
	}

	var saves []SaveInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if info, ok := parseSaveName(entry.Name()); ok {
			saves = append(saves, info)
		}
	}

	// Sort by timestamp, newest first
	sort.SliceStable(saves, func(i, j int) bool {
		return saves[i].Timestamp.After(saves[j].Timestamp)
	})

	return saves, nil
}

// parseSaveName parses 2024-01-15_14-30-00.json or 2024-01-15_14-30-00_name.json
func parseSaveName(filename string) (SaveInfo, bool) {
	if !strings.HasSuffix(filename, ".json") {
		return SaveInfo{}, false
	}
	base := strings.TrimSuffix(filename, ".json")
	if len(base) < len(timestampLayout) {
		return SaveInfo{}, false
	}
	ts, err := time.Parse(timestampLayout, base[:len(timestampLayout)])
	if err != nil {
		// Not a timestamped file, skip
		return SaveInfo{}, false
	}
	name := ""
	if rest := base[len(timestampLayout):]; len(rest) > 1 && rest[0] == '_' {
		name = rest[1:]
	}
	return SaveInfo{Filename: filename, Name: name, Timestamp: ts}, true
}

// Save writes doc as a new timestamped save of project, creating the
// project if needed. An empty project name saves to "untitled".
func (s *Store) Save(project string, doc Document) (SaveInfo, error) {
	if project == "" {
		project = "untitled"
	}
	dir, err := s.projectDir(project)
	if err != nil {
		return SaveInfo{}, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return SaveInfo{}, err
	}

	doc.Format = FormatVersion
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return SaveInfo{}, fmt.Errorf("project: encode: %w", err)
	}

	ts := s.now().Truncate(time.Second)
	filename := ts.Format(timestampLayout) + ".json"
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		return SaveInfo{}, err
	}
	return SaveInfo{Filename: filename, Timestamp: ts}, nil
}

// Load reads a specific save (or most recent if filename empty)
func (s *Store) Load(project, filename string) (Document, error) {
	dir, err := s.projectDir(project)
	if err != nil {
		return Document{}, err
	}

	if filename == "" {
		saves, err := s.ListSaves(project)
		if err != nil {
			return Document{}, err
		}
		if len(saves) == 0 {
			return Document{}, fmt.Errorf("%w in project %s", ErrNoSaves, project)
		}
		filename = saves[0].Filename // saves are sorted newest first
	}

	data, err := os.ReadFile(filepath.Join(dir, filepath.Base(filename)))
	if err != nil {
		return Document{}, err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("project: decode %s: %w", filename, err)
	}
	if doc.Format > FormatVersion {
		return Document{}, fmt.Errorf("project: %s has format %d, newest supported is %d", filename, doc.Format, FormatVersion)
	}
	return doc, nil
}

// CreateProject creates a new empty project folder
func (s *Store) CreateProject(name string) error {
	dir, err := s.projectDir(name)
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// DeleteSave deletes a specific save file
func (s *Store) DeleteSave(project, filename string) error {
	dir, err := s.projectDir(project)
	if err != nil {
		return err
	}
	return os.Remove(filepath.Join(dir, filepath.Base(filename)))
}

// RenameSave renames a save file (changes the name part, keeps timestamp)
func (s *Store) RenameSave(project, oldFilename, newName string) (string, error) {
	dir, err := s.projectDir(project)
	if err != nil {
		return "", err
	}

	info, ok := parseSaveName(filepath.Base(oldFilename))
	if !ok {
		return "", fmt.Errorf("project: invalid save filename %q", oldFilename)
	}

	newFilename := info.Timestamp.Format(timestampLayout) + ".json"
	if safe := sanitizeFilename(newName); safe != "" {
		newFilename = info.Timestamp.Format(timestampLayout) + "_" + safe + ".json"
	}

	if err := os.Rename(filepath.Join(dir, info.Filename), filepath.Join(dir, newFilename)); err != nil {
		return "", err
	}
	return newFilename, nil
}

// sanitizeFilename removes/replaces characters that are problematic in filenames
func sanitizeFilename(name string) string {
	r := strings.NewReplacer(
		" ", "-", "/", "-", "\\", "-", ":", "-",
		"*", "", "?", "", "\"", "", "<", "", ">", "", "|", "",
	)
	return r.Replace(strings.TrimSpace(name))
}

// DeleteProject deletes entire project folder
func (s *Store) DeleteProject(name string) error {
	dir, err := s.projectDir(name)
	if err != nil {
		return err
	}
	return os.RemoveAll(dir)
}

// RenameProject renames a project folder
func (s *Store) RenameProject(oldName, newName string) error {
	oldDir, err := s.projectDir(oldName)
	if err != nil {
		return err
	}
	newDir, err := s.projectDir(newName)
	if err != nil {
		return err
	}
	if _, err := os.Stat(newDir); err == nil {
		return fmt.Errorf("project: %q already exists", newName)
	}
	return os.Rename(oldDir, newDir)
}
