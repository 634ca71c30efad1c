// Package tools implements the filesystem tool surface exposed to the
// model over MCP. All operations are rooted at a single data directory;
// paths that resolve outside it are rejected.
package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

const (
	// MaxReadSize caps full-file reads; larger files must be read in
	// chunks via ReadChunk.
	MaxReadSize = 256 * 1024

	DefaultSearchResults = 20
	DefaultContextSize   = 2
	DefaultChunkLines    = 100
	DefaultContextLines  = 3
)

// Library provides sandboxed read access to a data directory.
type Library struct {
	root string
}

func NewLibrary(root string) (*Library, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %q: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open data directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data root %q is not a directory", abs)
	}
	return &Library{root: abs}, nil
}

// Root returns the absolute data directory the library serves.
func (l *Library) Root() string {
	return l.root
}

// resolve maps a relative path onto the root and rejects anything that
// escapes it.
func (l *Library) resolve(rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("absolute paths are not allowed: %q", rel)
	}
	joined := filepath.Join(l.root, filepath.FromSlash(rel))
	cleaned := filepath.Clean(joined)
	if cleaned != l.root && !strings.HasPrefix(cleaned, l.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the data directory", rel)
	}
	return cleaned, nil
}

// Listing is the result of List: file and subdirectory names, sorted.
type Listing struct {
	Dir   string   `json:"dir"`
	Files []string `json:"files"`
	Dirs  []string `json:"dirs"`
}

func (l *Library) List(dir string) (*Listing, error) {
	path, err := l.resolve(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to list %q: %w", dir, err)
	}
	listing := &Listing{Dir: dir, Files: []string{}, Dirs: []string{}}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if entry.IsDir() {
			listing.Dirs = append(listing.Dirs, entry.Name())
		} else {
			listing.Files = append(listing.Files, entry.Name())
		}
	}
	sort.Strings(listing.Files)
	sort.Strings(listing.Dirs)
	return listing, nil
}

// FileInfo describes a single file.
type FileInfo struct {
	File     string `json:"file"`
	Size     int64  `json:"size"`
	Lines    int    `json:"lines"`
	Modified string `json:"modified"`
}

func (l *Library) Info(file string) (*FileInfo, error) {
	path, err := l.resolve(file)
	if err != nil {
		return nil, err
	}
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %q: %w", file, err)
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("%q is a directory, not a file", file)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", file, err)
	}
	lines := 0
	if len(data) > 0 {
		lines = strings.Count(string(data), "\n")
		if !strings.HasSuffix(string(data), "\n") {
			lines++
		}
	}
	return &FileInfo{
		File:     file,
		Size:     stat.Size(),
		Lines:    lines,
		Modified: stat.ModTime().UTC().Format("2006-01-02T15:04:05Z"),
	}, nil
}

// Read returns the full content of a file, refusing files larger than
// MaxReadSize.
func (l *Library) Read(file string) (string, error) {
	path, err := l.resolve(file)
	if err != nil {
		return "", err
	}
	stat, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat %q: %w", file, err)
	}
	if stat.IsDir() {
		return "", fmt.Errorf("%q is a directory, not a file", file)
	}
	if stat.Size() > MaxReadSize {
		return "", fmt.Errorf("%q is %d bytes, larger than the %d byte read limit; use read_file_chunk instead", file, stat.Size(), MaxReadSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %q: %w", file, err)
	}
	return string(data), nil
}

// Chunk is a windowed read of a file. Lines are 1-based.
type Chunk struct {
	File       string `json:"file"`
	StartLine  int    `json:"start_line"`
	EndLine    int    `json:"end_line"`
	TotalLines int    `json:"total_lines"`
	Content    string `json:"content"`
}

func (l *Library) ReadChunk(file string, startLine, numLines int) (*Chunk, error) {
	if startLine < 1 {
		return nil, fmt.Errorf("start_line must be >= 1, got %d", startLine)
	}
	if numLines <= 0 {
		numLines = DefaultChunkLines
	}
	path, err := l.resolve(file)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", file, err)
	}
	lines := splitLines(string(data))
	if startLine > len(lines) {
		return nil, fmt.Errorf("start_line %d is past the end of %q (%d lines)", startLine, file, len(lines))
	}
	end := startLine + numLines - 1
	if end > len(lines) {
		end = len(lines)
	}
	return &Chunk{
		File:       file,
		StartLine:  startLine,
		EndLine:    end,
		TotalLines: len(lines),
		Content:    strings.Join(lines[startLine-1:end], "\n"),
	}, nil
}

// Occurrence is one hit of a text search within a file, with context.
type Occurrence struct {
	Line    int    `json:"line"`
	Text    string `json:"text"`
	Context string `json:"context"`
}

// FindInFile locates every occurrence of searchText in one file and
// returns each with contextLines of surrounding context.
func (l *Library) FindInFile(file, searchText string, contextLines int) ([]Occurrence, error) {
	if searchText == "" {
		return nil, fmt.Errorf("search_text must not be empty")
	}
	if contextLines < 0 {
		contextLines = DefaultContextLines
	}
	path, err := l.resolve(file)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", file, err)
	}
	lines := splitLines(string(data))
	needle := strings.ToLower(searchText)
	var found []Occurrence
	for i, line := range lines {
		if !strings.Contains(strings.ToLower(line), needle) {
			continue
		}
		lo := i - contextLines
		if lo < 0 {
			lo = 0
		}
		hi := i + contextLines + 1
		if hi > len(lines) {
			hi = len(lines)
		}
		found = append(found, Occurrence{
			Line:    i + 1,
			Text:    line,
			Context: strings.Join(lines[lo:hi], "\n"),
		})
	}
	return found, nil
}

// FileMatch groups the hits of a corpus search within one file.
type FileMatch struct {
	File        string       `json:"file"`
	Occurrences []Occurrence `json:"occurrences"`
}

// Search scans every file under the root whose name matches glob for the
// query. Space-separated terms must all appear in a line (AND); terms
// joined with "|" are alternatives (OR). Files are ranked by fuzzy match
// of the query against their paths, then by hit count.
func (l *Library) Search(query, glob string, maxResults, contextSize int) ([]FileMatch, error) {
	terms := parseQuery(query)
	if len(terms) == 0 {
		return nil, fmt.Errorf("query must not be empty")
	}
	if glob == "" {
		glob = "*"
	}
	if maxResults <= 0 {
		maxResults = DefaultSearchResults
	}
	if contextSize < 0 {
		contextSize = DefaultContextSize
	}

	byFile := make(map[string][]Occurrence)
	var files []string
	err := filepath.WalkDir(l.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != l.root {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if ok, _ := filepath.Match(glob, d.Name()); !ok {
			return nil
		}
		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		occs, err := scanFile(path, terms, contextSize)
		if err != nil {
			return nil
		}
		if len(occs) > 0 {
			byFile[rel] = occs
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if len(files) == 0 {
		return []FileMatch{}, nil
	}

	ranked := rankFiles(query, files, byFile)
	results := make([]FileMatch, 0, len(ranked))
	for _, file := range ranked {
		occs := byFile[file]
		if len(occs) > maxResults {
			occs = occs[:maxResults]
		}
		results = append(results, FileMatch{File: file, Occurrences: occs})
		if len(results) >= maxResults {
			break
		}
	}
	return results, nil
}

// rankFiles orders matched files by fuzzy score of the query against the
// path, falling back to hit count for files the fuzzy matcher skips.
func rankFiles(query string, files []string, byFile map[string][]Occurrence) []string {
	matches := fuzzy.Find(query, files)
	ranked := make([]string, 0, len(files))
	seen := make(map[string]bool, len(files))
	for _, match := range matches {
		ranked = append(ranked, files[match.Index])
		seen[files[match.Index]] = true
	}
	var rest []string
	for _, file := range files {
		if !seen[file] {
			rest = append(rest, file)
		}
	}
	sort.Slice(rest, func(i, j int) bool {
		if len(byFile[rest[i]]) != len(byFile[rest[j]]) {
			return len(byFile[rest[i]]) > len(byFile[rest[j]])
		}
		return rest[i] < rest[j]
	})
	return append(ranked, rest...)
}

// query grammar: space separates required terms, "|" inside a term
// separates alternatives. "brake pad|disc" means brake AND (pad OR disc).
type queryTerm struct {
	alternatives []string
}

func parseQuery(query string) []queryTerm {
	var terms []queryTerm
	for _, field := range strings.Fields(query) {
		var alts []string
		for _, alt := range strings.Split(field, "|") {
			if alt != "" {
				alts = append(alts, strings.ToLower(alt))
			}
		}
		if len(alts) > 0 {
			terms = append(terms, queryTerm{alternatives: alts})
		}
	}
	return terms
}

func matchesLine(line string, terms []queryTerm) bool {
	lower := strings.ToLower(line)
	for _, term := range terms {
		ok := false
		for _, alt := range term.alternatives {
			if strings.Contains(lower, alt) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func scanFile(path string, terms []queryTerm, contextSize int) ([]Occurrence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lines := splitLines(string(data))
	var occs []Occurrence
	for i, line := range lines {
		if !matchesLine(line, terms) {
			continue
		}
		lo := i - contextSize
		if lo < 0 {
			lo = 0
		}
		hi := i + contextSize + 1
		if hi > len(lines) {
			hi = len(lines)
		}
		occs = append(occs, Occurrence{
			Line:    i + 1,
			Text:    line,
			Context: strings.Join(lines[lo:hi], "\n"),
		})
	}
	return occs, nil
}

func splitLines(content string) []string {
	content = strings.TrimSuffix(content, "\n")
	if content == "" {
		return nil
	}
	return strings.Split(content, "\n")
}
