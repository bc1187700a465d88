package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLinesRecorder(t *testing.T) {
	var buf bytes.Buffer
	l := NewJSONLinesRecorder(&buf)

	require.NoError(t, l.RecordDispatch("echo hi | wc", 2, 0))
	require.NoError(t, l.RecordJobStart(1, "sleep 10", []int{42}))
	require.NoError(t, l.RecordJobComplete(1, 42, 0, false))
	require.NoError(t, l.RecordBuiltin("cd", 1))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	for _, line := range lines {
		var e Entry
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		assert.NotZero(t, e.TimestampMicros)
	}

	var first Entry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NotNil(t, first.Dispatch)
	assert.Equal(t, "echo hi | wc", first.Dispatch.Command)
	assert.Equal(t, 2, first.Dispatch.Stages)
	assert.Nil(t, first.JobStart)

	var second Entry
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	require.NotNil(t, second.JobStart)
	assert.Equal(t, []int{42}, second.JobStart.Pids)
}

func TestNopRecorder(t *testing.T) {
	l := NewNopRecorder()
	assert.NoError(t, l.RecordBuiltin("cd", 0))
}
