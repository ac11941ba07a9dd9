package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildTreePrefix(t *testing.T) {
	tests := []struct {
		name         string
		depth        int
		isLast       bool
		parentIsLast []bool
		want         string
	}{
		{"root has no prefix", 0, false, nil, ""},
		{"first level branch", 1, false, nil, TreeBranch},
		{"first level last", 1, true, nil, TreeLastBranch},
		{"nested under open parent", 2, false, []bool{false}, TreeContinue + TreeBranch},
		{"nested under last parent", 2, true, []bool{true}, TreeIndent + TreeLastBranch},
		{"unknown ancestry continues the line", 2, false, nil, TreeContinue + TreeBranch},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, BuildTreePrefix(tc.depth, tc.isLast, tc.parentIsLast))
		})
	}
}

func TestBuildBox(t *testing.T) {
	header := BuildBoxHeader("results", 20)
	lines := strings.Split(strings.TrimSuffix(header, "\n"), "\n")
	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], BoxTopLeft))
	assert.Contains(t, lines[1], "results")
	assert.True(t, strings.HasPrefix(lines[2], BoxTeeRight))

	footer := BuildBoxFooter(20)
	assert.True(t, strings.HasPrefix(footer, BoxBottomLeft))
	assert.True(t, strings.HasSuffix(strings.TrimSuffix(footer, "\n"), BoxBottomRight))

	t.Run("narrow width grows to fit the title", func(t *testing.T) {
		tight := BuildBoxHeader("a very long title indeed", 4)
		assert.Contains(t, tight, "a very long title indeed")
	})
}
