package tools_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/go-agent/tools"
)

func listPage(t *testing.T, in tools.ListFilesInput) []string {
	t.Helper()
	out, err := call(t, tools.ListFilesDefinition, in)
	require.NoError(t, err)
	var names []string
	require.NoError(t, json.Unmarshal([]byte(out), &names), "raw=%q", out)
	return names
}

func TestListFiles_NonRecursive(t *testing.T) {
	mkfile(t, rel(t, "a.txt"), "")
	mkfile(t, rel(t, "sub", "nested.txt"), "")

	names := listPage(t, tools.ListFilesInput{Path: rel(t)})
	assert.Equal(t, []string{"a.txt", "sub/"}, names)
}

func TestListFiles_MissingDir(t *testing.T) {
	_, err := call(t, tools.ListFilesDefinition, tools.ListFilesInput{Path: rel(t, "does", "not", "exist")})
	assert.Error(t, err)
}

func TestListFiles_Paging(t *testing.T) {
	for _, n := range []string{"c.txt", "a.txt", "b.txt", "z.txt", "m.txt"} {
		mkfile(t, rel(t, n), "")
	}

	cases := []struct {
		page int
		want []string
	}{
		{1, []string{"a.txt", "b.txt"}},
		{2, []string{"c.txt", "m.txt"}},
		{3, []string{"z.txt"}},
		{4, []string{}},
	}
	for _, tc := range cases {
		got := listPage(t, tools.ListFilesInput{Path: rel(t), Page: tc.page, PageSize: 2})
		assert.Equal(t, tc.want, got, "page %d", tc.page)
	}
}
