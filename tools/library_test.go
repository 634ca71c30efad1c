package tools

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestLibrary(t *testing.T) *Library {
	t.Helper()
	root := t.TempDir()

	files := map[string]string{
		"records.csv":        "date,vehicle,work\n2024-01-10,VW Golf,brake pad replacement\n2024-02-03,Audi A4,oil change\n2024-03-15,VW Golf,brake disc replacement\n",
		"notes.txt":          "brake jobs often need new discs too\n",
		"cases/bgh_2023.txt": "BGH ruling on warranty claims\nbrake defects covered under warranty\n",
		".hidden.txt":        "should never be listed\n",
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create fixture dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write fixture %s: %v", name, err)
		}
	}

	lib, err := NewLibrary(root)
	if err != nil {
		t.Fatalf("NewLibrary failed: %v", err)
	}
	return lib
}

func TestListFiles(t *testing.T) {
	lib := newTestLibrary(t)

	listing, err := lib.List("")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	wantFiles := []string{"notes.txt", "records.csv"}
	if len(listing.Files) != len(wantFiles) {
		t.Fatalf("expected %d files, got %v", len(wantFiles), listing.Files)
	}
	for i, want := range wantFiles {
		if listing.Files[i] != want {
			t.Errorf("file %d: expected %q, got %q", i, want, listing.Files[i])
		}
	}
	if len(listing.Dirs) != 1 || listing.Dirs[0] != "cases" {
		t.Errorf("expected dirs [cases], got %v", listing.Dirs)
	}
}

func TestListSubdirectory(t *testing.T) {
	lib := newTestLibrary(t)

	listing, err := lib.List("cases")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(listing.Files) != 1 || listing.Files[0] != "bgh_2023.txt" {
		t.Errorf("expected [bgh_2023.txt], got %v", listing.Files)
	}
}

func TestPathTraversalRejected(t *testing.T) {
	lib := newTestLibrary(t)

	tests := []struct {
		name string
		path string
	}{
		{"parent escape", "../outside.txt"},
		{"nested escape", "cases/../../outside.txt"},
		{"absolute path", "/etc/passwd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := lib.Read(tt.path); err == nil {
				t.Errorf("expected error for path %q, got nil", tt.path)
			}
			if _, err := lib.List(tt.path); err == nil {
				t.Errorf("expected List error for path %q, got nil", tt.path)
			}
		})
	}
}

func TestReadFile(t *testing.T) {
	lib := newTestLibrary(t)

	content, err := lib.Read("notes.txt")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !strings.Contains(content, "brake jobs") {
		t.Errorf("unexpected content: %q", content)
	}

	if _, err := lib.Read("missing.txt"); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := lib.Read("cases"); err == nil {
		t.Error("expected error when reading a directory")
	}
}

func TestReadFileSizeCap(t *testing.T) {
	root := t.TempDir()
	big := strings.Repeat("x", MaxReadSize+1)
	if err := os.WriteFile(filepath.Join(root, "big.txt"), []byte(big), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	lib, err := NewLibrary(root)
	if err != nil {
		t.Fatalf("NewLibrary failed: %v", err)
	}

	_, err = lib.Read("big.txt")
	if err == nil {
		t.Fatal("expected size cap error")
	}
	if !strings.Contains(err.Error(), "read_file_chunk") {
		t.Errorf("error should point at read_file_chunk, got: %v", err)
	}
}

func TestGetFileInfo(t *testing.T) {
	lib := newTestLibrary(t)

	info, err := lib.Info("records.csv")
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if info.Lines != 4 {
		t.Errorf("expected 4 lines, got %d", info.Lines)
	}
	if info.Size == 0 {
		t.Error("expected non-zero size")
	}
	if info.Modified == "" {
		t.Error("expected modification time")
	}
}

func TestReadChunk(t *testing.T) {
	lib := newTestLibrary(t)

	tests := []struct {
		name      string
		startLine int
		numLines  int
		wantStart int
		wantEnd   int
		wantText  string
		wantErr   bool
	}{
		{"middle window", 2, 2, 2, 3, "2024-01-10", false},
		{"window past end clamped", 3, 10, 3, 4, "2024-03-15", false},
		{"default length", 1, 0, 1, 4, "date,vehicle", false},
		{"start past end", 99, 1, 0, 0, "", true},
		{"zero start line", 0, 1, 0, 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunk, err := lib.ReadChunk("records.csv", tt.startLine, tt.numLines)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadChunk failed: %v", err)
			}
			if chunk.StartLine != tt.wantStart || chunk.EndLine != tt.wantEnd {
				t.Errorf("expected lines %d-%d, got %d-%d", tt.wantStart, tt.wantEnd, chunk.StartLine, chunk.EndLine)
			}
			if !strings.Contains(chunk.Content, tt.wantText) {
				t.Errorf("expected content containing %q, got %q", tt.wantText, chunk.Content)
			}
			if chunk.TotalLines != 4 {
				t.Errorf("expected 4 total lines, got %d", chunk.TotalLines)
			}
		})
	}
}

func TestFindInFile(t *testing.T) {
	lib := newTestLibrary(t)

	occs, err := lib.FindInFile("records.csv", "BRAKE", 1)
	if err != nil {
		t.Fatalf("FindInFile failed: %v", err)
	}
	if len(occs) != 2 {
		t.Fatalf("expected 2 occurrences, got %d", len(occs))
	}
	if occs[0].Line != 2 || occs[1].Line != 4 {
		t.Errorf("expected hits on lines 2 and 4, got %d and %d", occs[0].Line, occs[1].Line)
	}
	if !strings.Contains(occs[0].Context, "date,vehicle") {
		t.Errorf("expected context to include the preceding line, got %q", occs[0].Context)
	}

	if _, err := lib.FindInFile("records.csv", "", 1); err == nil {
		t.Error("expected error for empty search text")
	}
}

func TestSearchANDSemantics(t *testing.T) {
	lib := newTestLibrary(t)

	matches, err := lib.Search("brake pad", "", 0, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 matching file, got %d", len(matches))
	}
	if matches[0].File != "records.csv" {
		t.Errorf("expected records.csv, got %s", matches[0].File)
	}
	if len(matches[0].Occurrences) != 1 {
		t.Fatalf("expected 1 occurrence, got %d", len(matches[0].Occurrences))
	}
	if matches[0].Occurrences[0].Line != 2 {
		t.Errorf("expected hit on line 2, got %d", matches[0].Occurrences[0].Line)
	}
}

func TestSearchORSemantics(t *testing.T) {
	lib := newTestLibrary(t)

	matches, err := lib.Search("brake pad|disc", "", 0, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	// records.csv has pad and disc lines; notes.txt mentions discs.
	if len(matches) != 2 {
		t.Fatalf("expected 2 matching files, got %d", len(matches))
	}
	var records *FileMatch
	for i := range matches {
		if matches[i].File == "records.csv" {
			records = &matches[i]
		}
	}
	if records == nil {
		t.Fatal("expected records.csv among matches")
	}
	if len(records.Occurrences) != 2 {
		t.Errorf("expected 2 occurrences (pad and disc lines), got %d", len(records.Occurrences))
	}
}

func TestSearchGlobFilter(t *testing.T) {
	lib := newTestLibrary(t)

	matches, err := lib.Search("brake", "*.txt", 0, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	for _, m := range matches {
		if !strings.HasSuffix(m.File, ".txt") {
			t.Errorf("glob *.txt should exclude %s", m.File)
		}
	}
	if len(matches) != 2 {
		t.Errorf("expected notes.txt and cases/bgh_2023.txt, got %v", matches)
	}
}

func TestSearchMaxResults(t *testing.T) {
	lib := newTestLibrary(t)

	matches, err := lib.Search("brake", "", 1, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 1 {
		t.Errorf("expected results capped at 1, got %d", len(matches))
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	lib := newTestLibrary(t)

	if _, err := lib.Search("", "", 0, 0); err == nil {
		t.Error("expected error for empty query")
	}
	if _, err := lib.Search("   ", "", 0, 0); err == nil {
		t.Error("expected error for blank query")
	}
}

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  [][]string
	}{
		{"single term", "brake", [][]string{{"brake"}}},
		{"and terms", "brake pad", [][]string{{"brake"}, {"pad"}}},
		{"or alternatives", "pad|disc", [][]string{{"pad", "disc"}}},
		{"mixed", "brake pad|disc", [][]string{{"brake"}, {"pad", "disc"}}},
		{"case folded", "BRAKE", [][]string{{"brake"}}},
		{"empty alternative dropped", "pad|", [][]string{{"pad"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			terms := parseQuery(tt.query)
			if len(terms) != len(tt.want) {
				t.Fatalf("expected %d terms, got %d", len(tt.want), len(terms))
			}
			for i, alts := range tt.want {
				if len(terms[i].alternatives) != len(alts) {
					t.Fatalf("term %d: expected %v, got %v", i, alts, terms[i].alternatives)
				}
				for j, alt := range alts {
					if terms[i].alternatives[j] != alt {
						t.Errorf("term %d alt %d: expected %q, got %q", i, j, alt, terms[i].alternatives[j])
					}
				}
			}
		})
	}
}
