package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindow(t *testing.T) {
	cases := []struct {
		n, offset, limit int
		start, end       int
	}{
		{10, 0, 0, 0, 4},
		{10, 2, 3, 2, 5},
		{10, -5, 3, 0, 3},
		{10, 8, 5, 8, 10},
		{10, 12, 5, 10, 10},
		{0, 0, 0, 0, 0},
	}
	for _, tc := range cases {
		start, end := window(tc.n, tc.offset, tc.limit, 4)
		assert.Equal(t, [2]int{tc.start, tc.end}, [2]int{start, end}, "%+v", tc)
	}
}

func TestClip(t *testing.T) {
	s, cut := clip("héllo", 3)
	assert.Equal(t, "hél", s)
	assert.True(t, cut)

	s, cut = clip("héllo", 5)
	assert.Equal(t, "héllo", s)
	assert.False(t, cut, "6 bytes but only 5 runes")
}
