package store

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBetween(t *testing.T) {
	k, ok := Between(1, 2)
	assert.True(t, ok)
	assert.Equal(t, 1.5, k)

	k, ok = Between(2, 1)
	assert.True(t, ok, "bounds are swapped")
	assert.Equal(t, 1.5, k)

	_, ok = Between(1, 1)
	assert.False(t, ok)

	_, ok = Between(1, math.Nextafter(1, 2))
	assert.False(t, ok, "adjacent floats leave no room")
}

func TestBetween_Halving(t *testing.T) {
	lo, hi := 0.0, 1.0
	for i := 0; i < 50; i++ {
		k, ok := Between(lo, hi)
		if !ok {
			t.Fatalf("ran out of keys after %d halvings", i)
		}
		assert.Greater(t, k, lo)
		assert.Less(t, k, hi)
		hi = k
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		lines int
		want  string
	}{
		{"headings and paragraphs", "<h1>Title</h1><p>Line one</p><p>Line two</p>", 5, "Title\nLine one\nLine two"},
		{"list items", "<ul><li>milk</li><li>eggs</li></ul>", 5, "• milk\n• eggs"},
		{"line limit", "<p>a</p><p>b</p><p>c</p>", 2, "a\nb"},
		{"entities", "<p>fish &amp; chips&nbsp;today</p>", 5, "fish & chips today"},
		{"scripts dropped", `<p>hi</p><script>alert(1)</script>`, 5, "hi"},
		{"escaped tags stay text-free", "<p>&lt;b&gt;bold&lt;/b&gt; move</p>", 5, "bold move"},
		{"double escaped tags", "<p>&amp;lt;i&amp;gt;x</p>", 5, "x"},
		{"bare less-than kept", "<p>a < b</p>", 5, "a < b"},
		{"blank lines skipped", "one\n\n\n two ", 5, "one\ntwo"},
		{"default limit", "1\n2\n3\n4\n5\n6\n7", 0, "1\n2\n3\n4\n5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Preview(tt.in, tt.lines))
		})
	}
}
