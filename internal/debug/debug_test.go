package debug

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintfRespectsEnableDebug(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	prev := EnableDebug
	defer func() { EnableDebug = prev }()

	EnableDebug = "false"
	t.Setenv("DEBUG", "")
	Printf("hello %d", 1)
	assert.Empty(t, buf.String())

	EnableDebug = "true"
	Printf("hello %d", 1)
	assert.True(t, strings.Contains(buf.String(), "hello 1"))
}

func TestLogTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	prev := EnableDebug
	EnableDebug = "true"
	defer func() { EnableDebug = prev }()

	Log("clone/phase1", "dropped %d", 3)
	assert.Contains(t, buf.String(), "[DEBUG:clone/phase1]")
	assert.Contains(t, buf.String(), "dropped 3")
}
