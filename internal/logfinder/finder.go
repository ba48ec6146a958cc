// Package logfinder provides EverQuest log directory and file detection.
package logfinder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// EnvLogDir is the environment variable name for specifying log directory.
const EnvLogDir = "EQLOG_LOGDIR"

// LogPattern matches EverQuest character logs: eqlog_<Character>_<server>.txt.
const LogPattern = "eqlog_*_*.txt"

// Sentinel errors.
var (
	ErrLogDirNotFound = errors.New("log directory not found")
	ErrNoLogFiles     = errors.New("no log files found")
)

// DefaultLogDirs returns candidate EverQuest log directories in priority order.
func DefaultLogDirs() []string {
	var dirs []string
	if public := os.Getenv("PUBLIC"); public != "" {
		dirs = append(dirs, filepath.Join(public, "Daybreak Game Company", "Installed Games", "EverQuest", "Logs"))
	}
	for _, env := range []string{"ProgramFiles(x86)", "ProgramFiles"} {
		if pf := os.Getenv(env); pf != "" {
			dirs = append(dirs, filepath.Join(pf, "Sony", "EverQuest", "Logs"))
		}
	}
	if drive := os.Getenv("SystemDrive"); drive != "" {
		dirs = append(dirs, filepath.Join(drive+string(filepath.Separator), "EverQuest", "Logs"))
	}
	return dirs
}

// FindLogDir returns the EverQuest log directory.
//
// Priority:
//  1. explicit (if non-empty)
//  2. EQLOG_LOGDIR environment variable
//  3. Auto-detect from DefaultLogDirs()
//
// Returns ErrLogDirNotFound if no valid directory is found.
// The returned path has symlinks resolved for consistency.
func FindLogDir(explicit string) (string, error) {
	if explicit != "" {
		if resolved := resolveAndValidateLogDir(explicit); resolved != "" {
			return resolved, nil
		}
		return "", fmt.Errorf("%w: specified directory is invalid or contains no log files", ErrLogDirNotFound)
	}

	if envDir := os.Getenv(EnvLogDir); envDir != "" {
		if resolved := resolveAndValidateLogDir(envDir); resolved != "" {
			return resolved, nil
		}
		return "", fmt.Errorf("%w: %s environment variable points to invalid directory", ErrLogDirNotFound, EnvLogDir)
	}

	for _, dir := range DefaultLogDirs() {
		if resolved := resolveAndValidateLogDir(dir); resolved != "" {
			return resolved, nil
		}
	}

	return "", ErrLogDirNotFound
}

// ListLogFiles returns the character logs in dir sorted by modification
// time, oldest first.
func ListLogFiles(dir string) ([]string, error) {
	matches, err := glob(dir)
	if err != nil {
		return nil, err
	}

	type fileInfo struct {
		path    string
		modTime int64
	}
	files := make([]fileInfo, 0, len(matches))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		files = append(files, fileInfo{path: path, modTime: info.ModTime().UnixNano()})
	}
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].modTime < files[j].modTime
	})

	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.path
	}
	return out, nil
}

// FindLatestLogFile returns the most recently modified character log in dir.
// If character is non-empty, only that character's logs are considered.
//
// Returns ErrNoLogFiles if no log files are found.
func FindLatestLogFile(dir, character string) (string, error) {
	files, err := ListLogFiles(dir)
	if err != nil {
		return "", err
	}
	for i := len(files) - 1; i >= 0; i-- {
		if character == "" {
			return files[i], nil
		}
		if name, _, ok := ParseFileName(files[i]); ok && strings.EqualFold(name, character) {
			return files[i], nil
		}
	}
	return "", ErrNoLogFiles
}

// ParseFileName extracts the character and server from a log file path.
func ParseFileName(path string) (character, server string, ok bool) {
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "eqlog_") || !strings.HasSuffix(base, ".txt") {
		return "", "", false
	}
	rest := strings.TrimSuffix(strings.TrimPrefix(base, "eqlog_"), ".txt")
	character, server, ok = strings.Cut(rest, "_")
	if !ok || character == "" || server == "" {
		return "", "", false
	}
	return character, server, true
}

func glob(dir string) ([]string, error) {
	rel, err := doublestar.Glob(os.DirFS(dir), LogPattern, doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
	if err != nil {
		return nil, fmt.Errorf("globbing log files: %w", err)
	}
	out := make([]string, len(rel))
	for i, r := range rel {
		out[i] = filepath.Join(dir, filepath.FromSlash(r))
	}
	return out, nil
}

// resolveAndValidateLogDir resolves symlinks and validates the directory.
// Returns the resolved path if valid, empty string otherwise.
func resolveAndValidateLogDir(dir string) string {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return ""
	}

	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		resolved = dir
	}

	matches, err := glob(resolved)
	if err != nil || len(matches) == 0 {
		return ""
	}
	return resolved
}
