package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChangeKind_String(t *testing.T) {
	tests := []struct {
		name     string
		kind     ChangeKind
		expected string
		code     string
	}{
		{name: "Added", kind: ChangeKindAdded, expected: "added", code: "A"},
		{name: "Modified", kind: ChangeKindModified, expected: "modified", code: "M"},
		{name: "Deleted", kind: ChangeKindDeleted, expected: "deleted", code: "D"},
		{name: "Unknown", kind: ChangeKind(99), expected: "unknown", code: "?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.kind.String())
			assert.Equal(t, tt.code, tt.kind.Code())
		})
	}
}

func TestParseRenameBackend(t *testing.T) {
	tests := []struct {
		input string
		want  RenameBackend
		ok    bool
	}{
		{input: "", want: RenameBackendGoGit, ok: true},
		{input: "go-git", want: RenameBackendGoGit, ok: true},
		{input: "Git", want: RenameBackendCLI, ok: true},
		{input: "off", want: RenameBackendOff, ok: true},
		{input: "similarity", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseRenameBackend(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJoinPath(t *testing.T) {
	tests := []struct {
		root, rel, expected string
	}{
		{root: ".github", rel: "workflows/ci.yml", expected: ".github/workflows/ci.yml"},
		{root: ".github/", rel: "dependabot.yml", expected: ".github/dependabot.yml"},
		{root: "", rel: "README.md", expected: "README.md"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, JoinPath(tt.root, tt.rel), "JoinPath(%q, %q)", tt.root, tt.rel)
	}
}

func TestPathSnapshot_SameTree(t *testing.T) {
	a := PathSnapshot{TreeID: "abc", Entries: map[string]string{"x": "1"}}
	b := PathSnapshot{TreeID: "abc", Entries: map[string]string{"x": "1"}}
	c := PathSnapshot{TreeID: "def", Entries: map[string]string{"x": "2"}}

	assert.True(t, a.SameTree(b), "equal tree ids")
	assert.False(t, a.SameTree(c), "different tree ids")
	assert.True(t, EmptySnapshot(".github").SameTree(EmptySnapshot(".github")), "two empty snapshots")
	assert.False(t, EmptySnapshot(".github").SameTree(a), "empty against populated")
}

func TestPathSnapshot_PathsSorted(t *testing.T) {
	s := PathSnapshot{Entries: map[string]string{"b": "1", "a": "2", "c/d": "3"}}
	assert.Equal(t, []string{"a", "b", "c/d"}, s.Paths())
}
