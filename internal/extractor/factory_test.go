package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFactoryDispatchByExtension(t *testing.T) {
	f := NewFactory()

	assert.True(t, f.HasExtractor("main.go"))
	assert.True(t, f.HasExtractor("app.tsx"))
	assert.True(t, f.HasExtractor("script.py"))
	assert.False(t, f.HasExtractor("README.md"))

	assert.Equal(t, "go", f.ExtractorFor("main.go").Language())
	assert.Nil(t, f.ExtractorFor("README.md"))
}
