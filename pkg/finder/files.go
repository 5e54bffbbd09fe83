package finder

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// manifestExts are the file extensions recognised as model manifests
var manifestExts = map[string]bool{
	".yaml": true,
	".yml":  true,
	".json": true,
}

// FindManifestFiles returns the model manifest files under root, sorted.
// If root is a file it is returned as is, whatever its extension.
// Hidden directories (".git", ".venv", ...) and testdata are skipped.
func FindManifestFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var manifests []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || name == "testdata") {
				return filepath.SkipDir
			}
			return nil
		}

		if manifestExts[strings.ToLower(filepath.Ext(path))] {
			manifests = append(manifests, path)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(manifests)
	return manifests, nil
}

// ParseFileOrList turns an option value into a set of entries.
// A value without commas naming an existing file is read as one entry per
// line; anything else is split on commas. Blank entries are dropped.
func ParseFileOrList(arg string) (map[string]bool, error) {
	result := make(map[string]bool)
	if strings.TrimSpace(arg) == "" {
		return result, nil
	}

	if !strings.Contains(arg, ",") {
		if info, err := os.Stat(arg); err == nil && !info.IsDir() {
			f, err := os.Open(arg)
			if err != nil {
				return nil, fmt.Errorf("opening list file: %w", err)
			}
			defer f.Close()

			scanner := bufio.NewScanner(f)
			for scanner.Scan() {
				if line := strings.TrimSpace(scanner.Text()); line != "" {
					result[line] = true
				}
			}
			if err := scanner.Err(); err != nil {
				return nil, fmt.Errorf("reading list file %s: %w", arg, err)
			}
			return result, nil
		}
	}

	for _, entry := range strings.Split(arg, ",") {
		if entry = strings.TrimSpace(entry); entry != "" {
			result[entry] = true
		}
	}
	return result, nil
}
