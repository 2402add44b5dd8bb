// Package filestore implements the file-backed storage collaborator used by the
// file tools. All operations are keyed by bare filename under a single root
// directory; there is no cross-session locking, so concurrent writers to the
// same name race (accepted limitation).
package filestore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// NotFoundError indicates a named file does not exist in the store.
type NotFoundError struct {
	Filename string
}

// Error implements the error interface.
func (e *NotFoundError) Error() (result string) {
	result = fmt.Sprintf("%s not found", e.Filename)
	return result
}

// Store is a flat file store rooted at BaseDir.
type Store struct {
	baseDir string
}

// New creates a store rooted at baseDir, creating the directory if needed.
func New(baseDir string) (result *Store, err error) {
	err = os.MkdirAll(baseDir, 0o755)
	if err != nil {
		err = fmt.Errorf("creating store directory: %w", err)
		return result, err
	}

	result = &Store{baseDir: baseDir}
	return result, err
}

// BaseDir returns the store's root directory.
func (s *Store) BaseDir() (result string) {
	result = s.baseDir
	return result
}

// path resolves a filename inside the store. Only the base component is used,
// so names cannot traverse out of the root.
func (s *Store) path(filename string) (result string) {
	result = filepath.Join(s.baseDir, filepath.Base(filename))
	return result
}

// List returns the names of all files in the store, sorted.
func (s *Store) List() (result []string, err error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		err = fmt.Errorf("listing store: %w", err)
		return result, err
	}

	result = make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		result = append(result, entry.Name())
	}

	sort.Strings(result)
	return result, err
}

// Read returns the contents of a file.
func (s *Store) Read(filename string) (result string, err error) {
	data, readErr := os.ReadFile(s.path(filename))
	if readErr != nil {
		if os.IsNotExist(readErr) {
			err = &NotFoundError{Filename: filename}
			return result, err
		}

		err = fmt.Errorf("reading %s: %w", filename, readErr)
		return result, err
	}

	result = string(data)
	return result, err
}

// Write creates or overwrites a file with the given text.
func (s *Store) Write(filename string, text string) (err error) {
	err = os.WriteFile(s.path(filename), []byte(text), 0o644)
	if err != nil {
		err = fmt.Errorf("writing %s: %w", filename, err)
		return err
	}

	return err
}

// Delete removes a file. It reports whether the file existed; deleting a
// missing file is not an error.
func (s *Store) Delete(filename string) (deleted bool, err error) {
	removeErr := os.Remove(s.path(filename))
	if removeErr != nil {
		if os.IsNotExist(removeErr) {
			return deleted, err
		}

		err = fmt.Errorf("deleting %s: %w", filename, removeErr)
		return deleted, err
	}

	deleted = true
	return deleted, err
}

// SearchCount counts the lines of a file containing the keyword.
func (s *Store) SearchCount(filename string, keyword string) (count int, err error) {
	f, openErr := os.Open(s.path(filename))
	if openErr != nil {
		if os.IsNotExist(openErr) {
			err = &NotFoundError{Filename: filename}
			return count, err
		}

		err = fmt.Errorf("opening %s: %w", filename, openErr)
		return count, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if strings.Contains(scanner.Text(), keyword) {
			count++
		}
	}

	err = scanner.Err()
	if err != nil {
		err = fmt.Errorf("scanning %s: %w", filename, err)
		return count, err
	}

	return count, err
}
