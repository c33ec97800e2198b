package progress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	p := newWriter(&buf, true, "Importing", 10)
	for range 10 {
		p.Step()
	}
	assert.Contains(t, buf.String(), "Importing... 10/10 (100%)")
	p.Done()
	assert.True(t, bytes.HasSuffix(buf.Bytes(), []byte("\r")))
}

func TestProgress_Quiet(t *testing.T) {
	var buf bytes.Buffer
	small := newWriter(&buf, true, "Importing", 2)
	small.Step()
	small.Done()

	pipe := newWriter(&buf, false, "Importing", 50)
	pipe.Step()
	pipe.Done()

	assert.Empty(t, buf.String())
}
