package llm_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/go-agent/internal/llm"
)

// chunkBody returns one chunk per Read call, then io.EOF.
type chunkBody struct {
	chunks [][]byte
	reads  int
	closed bool
}

func newChunkBody(chunks ...string) *chunkBody {
	b := &chunkBody{}
	for _, c := range chunks {
		b.chunks = append(b.chunks, []byte(c))
	}
	return b
}

func (b *chunkBody) Read(p []byte) (int, error) {
	if len(b.chunks) == 0 {
		return 0, io.EOF
	}
	b.reads++
	n := copy(p, b.chunks[0])
	b.chunks[0] = b.chunks[0][n:]
	if len(b.chunks[0]) == 0 {
		b.chunks = b.chunks[1:]
	}
	return n, nil
}

func (b *chunkBody) Close() error {
	b.closed = true
	return nil
}

func deltaLine(content string) string {
	return `data: {"choices":[{"delta":{"content":"` + content + `"}}]}` + "\n"
}

func drain(t *testing.T, s *llm.DeltaStream) ([]string, error) {
	t.Helper()
	var out []string
	for {
		d, err := s.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, err
		}
		out = append(out, d.Content)
	}
}

func TestDeltaStream_YieldsDeltasUntilDone(t *testing.T) {
	body := newChunkBody(deltaLine("He"), deltaLine("llo"), "data: [DONE]\n")
	s := llm.NewDeltaStream(body)
	defer s.Close()

	got, err := drain(t, s)
	require.NoError(t, err)
	assert.Equal(t, []string{"He", "llo"}, got)

	_, err = s.Next()
	assert.ErrorIs(t, err, io.EOF, "stream must stay terminated")
}

func TestDeltaStream_DoneStopsBeforeRemainingBytes(t *testing.T) {
	body := newChunkBody(deltaLine("a")+"data: [DONE]\n", deltaLine("never"))
	s := llm.NewDeltaStream(body)

	got, err := drain(t, s)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got)
	assert.Equal(t, 1, body.reads, "no read after [DONE]")
}

func TestDeltaStream_LineSplitAcrossReads(t *testing.T) {
	line := deltaLine("split")
	body := newChunkBody(line[:10], line[10:25], line[25:], "data: [DONE]\n")
	got, err := drain(t, llm.NewDeltaStream(body))
	require.NoError(t, err)
	assert.Equal(t, []string{"split"}, got)
}

func TestDeltaStream_MultiByteSplitAcrossReads(t *testing.T) {
	line := deltaLine("你好")
	idx := strings.Index(line, "你") + 1 // cut inside the first rune
	body := newChunkBody(line[:idx], line[idx:])
	got, err := drain(t, llm.NewDeltaStream(body))
	require.NoError(t, err)
	assert.Equal(t, []string{"你好"}, got)
}

func TestDeltaStream_IgnoresNonDataAndEmptyDeltas(t *testing.T) {
	body := newChunkBody(
		": keep-alive\n",
		"event: message\r\n",
		`data: {"choices":[{"delta":{"role":"assistant"}}]}`+"\r\n",
		`data: {"choices":[{"delta":{"content":""}}]}`+"\n",
		"\n",
		deltaLine("x"),
	)
	got, err := drain(t, llm.NewDeltaStream(body))
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, got)
}

func TestDeltaStream_EOFWithoutDoneAndTrailingLine(t *testing.T) {
	// last line has no terminator
	body := newChunkBody(deltaLine("a"), strings.TrimSuffix(deltaLine("b"), "\n"))
	got, err := drain(t, llm.NewDeltaStream(body))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestDeltaStream_MalformedJSONIsHardFailure(t *testing.T) {
	body := newChunkBody(deltaLine("ok"), "data: {not json\n", deltaLine("after"))
	s := llm.NewDeltaStream(body)

	got, err := drain(t, s)
	require.Error(t, err)
	var de *llm.DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "{not json", de.Payload)
	assert.Equal(t, []string{"ok"}, got)

	_, again := s.Next()
	assert.Equal(t, err, again, "decode error is sticky")
}

func TestDeltaStream_RawCarriesChunk(t *testing.T) {
	body := newChunkBody(`data: {"id":"c-1","choices":[{"delta":{"content":"hi"}}]}` + "\n")
	s := llm.NewDeltaStream(body)
	d, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "c-1", d.Raw.Get("id").String())
}

func TestDeltaStream_CloseIsIdempotent(t *testing.T) {
	body := newChunkBody(deltaLine("a"))
	s := llm.NewDeltaStream(body)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.True(t, body.closed)
	_, err := s.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestCollect_Concatenates(t *testing.T) {
	body := newChunkBody(deltaLine("He"), deltaLine("llo"), "data: [DONE]\n")
	var n int
	text, err := llm.Collect(llm.NewDeltaStream(body), func(llm.Delta) { n++ })
	require.NoError(t, err)
	assert.Equal(t, "Hello", text)
	assert.Equal(t, 2, n)
}
