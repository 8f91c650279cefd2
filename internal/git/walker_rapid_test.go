package git

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestWalker_Property_BoundaryCountsCommits(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 40).Draw(t, "n")
		m, hashes := linearHistory(n)

		b := rapid.IntRange(-1, n-1).Draw(t, "boundary")
		boundary := ""
		want := n
		if b >= 0 {
			boundary = hashes[b]
			want = n - 1 - b
		}

		w, err := NewWalker(context.Background(), m, "HEAD", boundary)
		require.NoError(t, err)
		got := 0
		prev := ""
		for c, err := range w.Commits(context.Background()) {
			require.NoError(t, err)
			require.NotEqual(t, boundary, c.Hash, "boundary must not be produced")
			if prev != "" {
				require.Equal(t, c.Hash, m.commits[prev].ParentHash, "%s does not follow %s on the first-parent chain", c.Hash, prev)
			}
			prev = c.Hash
			got++
		}
		assert.Equal(t, want, got)
	})
}
