package loader

import (
	"os"
	"path/filepath"
	"testing"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write script %s: %v", path, err)
	}
	return path
}

func TestParseFileHandlesEveryDirectiveShape(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "image.elf", "not a real elf, just a target path")
	writeScript(t, dir, "weights.bin", "raw words")

	script := writeScript(t, dir, "main.script", `
; comment line
directory .
parameter cmt_size 8
0 1 image.elf
2 weights.bin
`)

	directives, err := ParseFile(script)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}

	if len(directives) != 4 {
		t.Fatalf("len(directives) = %d, want 4", len(directives))
	}
	if directives[0].Kind != DirDirectory {
		t.Fatalf("directives[0].Kind = %v, want DirDirectory", directives[0].Kind)
	}
	if directives[1].Kind != DirParameter || directives[1].ParamName != "cmt_size" || directives[1].ParamValue != "8" {
		t.Fatalf("directives[1] = %+v, want parameter cmt_size=8", directives[1])
	}
	if directives[2].Kind != DirMemoryLoad || directives[2].MemoryID != 0 || directives[2].CoreID != 1 {
		t.Fatalf("directives[2] = %+v, want memory-load 0 1", directives[2])
	}
	if directives[3].Kind != DirComponentLoad || directives[3].ComponentID != 2 {
		t.Fatalf("directives[3] = %+v, want component-load 2", directives[3])
	}
}

func TestParseFileFollowsLoaderIncludes(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "included.script", "parameter memory_line_size 64\n")
	main := writeScript(t, dir, "main.script", "loader included.script\n")

	directives, err := ParseFile(main)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(directives) != 1 || directives[0].ParamName != "memory_line_size" {
		t.Fatalf("directives = %+v, want the included file's single directive", directives)
	}
}

func TestParseFileRejectsIncludeCycles(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "a.script", "loader b.script\n")
	writeScript(t, dir, "b.script", "loader a.script\n")

	_, err := ParseFile(filepath.Join(dir, "a.script"))
	if err == nil {
		t.Fatal("expected an error for an include cycle")
	}
}

func TestParseFileRejectsMalformedDirective(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "bad.script", "not a number\n")

	_, err := ParseFile(script)
	if err == nil {
		t.Fatal("expected an error for an unrecognized directive")
	}
}
