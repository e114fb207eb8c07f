package framework

import (
	"testing"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-sdk-common/v3/ldlogtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapturingLoggerRecordsMessages(t *testing.T) {
	var l CapturingLogger
	l.Printf("a=%d", 1)
	l.Println("b", 2)

	out := l.Output()
	require.Len(t, out, 2)
	assert.Equal(t, "a=1", out[0].Message)
	assert.Equal(t, "b 2", out[1].Message)
}

func TestCapturingLoggerChildReceivesParentOutput(t *testing.T) {
	var parent, child CapturingLogger
	parent.Printf("before")
	parent.AddChildLogger(&child)
	parent.Printf("during")
	parent.RemoveChildLogger(&child)
	parent.Printf("after")

	var childMessages []string
	for _, m := range child.Output() {
		childMessages = append(childMessages, m.Message)
	}
	assert.Equal(t, []string{"before", "during"}, childMessages)
	assert.Len(t, parent.Output(), 2)
}

func TestLoggerWithPrefix(t *testing.T) {
	var l CapturingLogger
	LoggerWithPrefix(&l, "[sandbox] ").Printf("started on %d", 3030)
	require.Len(t, l.Output(), 1)
	assert.Equal(t, "[sandbox] started on 3030", l.Output()[0].Message)
}

func TestLevelLoggerWritesAtLevel(t *testing.T) {
	mockLog := ldlogtest.NewMockLog()
	mockLog.Loggers.SetMinLevel(ldlog.Debug)
	LevelLogger(mockLog.Loggers, ldlog.Warn).Printf("timeout %d", 1)
	out := mockLog.GetOutput(ldlog.Warn)
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "timeout 1")
}
