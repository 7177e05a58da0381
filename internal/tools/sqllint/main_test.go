package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLintSource(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		want  int
		match string
	}{
		{
			name: "marked query",
			src:  "package q\n\nconst QOne = `--sql 0b6c8f2e-8d4e-4d7c-9a55-5d1f1c2b3a40\nselect 1;`\n",
		},
		{
			name:  "missing marker",
			src:   "package q\n\nconst QOne = `select id from generation_requests`\n",
			want:  1,
			match: "missing or invalid",
		},
		{
			name:  "uppercase uuid rejected",
			src:   "package q\n\nconst QOne = \"--sql 0B6C8F2E-8D4E-4D7C-9A55-5D1F1C2B3A40\\nselect 1\"\n",
			want:  1,
			match: "missing or invalid",
		},
		{
			name: "non sql string ignored",
			src:  "package q\n\nconst Bucket = \"edited-images\"\n",
		},
		{
			name: "duplicate marker",
			src: "package q\n\nconst (\n\tQOne = `--sql 0b6c8f2e-8d4e-4d7c-9a55-5d1f1c2b3a40\nselect 1;`\n" +
				"\tQTwo = `--sql 0b6c8f2e-8d4e-4d7c-9a55-5d1f1c2b3a40\nselect 2;`\n)\n",
			want:  1,
			match: "already used by QOne",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l := newLinter()
			if err := l.lintSource("q.go", []byte(tc.src)); err != nil {
				t.Fatalf("lintSource() error = %v", err)
			}
			if len(l.violations) != tc.want {
				t.Fatalf("violations = %v, want %d", l.violations, tc.want)
			}
			if tc.match != "" && !strings.Contains(l.violations[0].message, tc.match) {
				t.Fatalf("message = %q, want it to contain %q", l.violations[0].message, tc.match)
			}
		})
	}
}

func TestLintPathSkipsTests(t *testing.T) {
	dir := t.TempDir()
	write := func(name, src string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("q.go", "package q\n\nconst QOne = `--sql 0b6c8f2e-8d4e-4d7c-9a55-5d1f1c2b3a40\nselect 1;`\n")
	write("q_test.go", "package q\n\nconst fixture = `select 2`\n")

	l := newLinter()
	if err := l.lintPath(dir); err != nil {
		t.Fatalf("lintPath() error = %v", err)
	}
	if len(l.violations) != 0 {
		t.Fatalf("violations = %v, want none", l.violations)
	}
}

func TestSQLInlineQueriesAreMarked(t *testing.T) {
	l := newLinter()
	if err := l.lintPath(filepath.Join("..", "..", "sqlinline")); err != nil {
		t.Fatalf("lintPath() error = %v", err)
	}
	for _, v := range l.violations {
		t.Errorf("%s", v)
	}
}
