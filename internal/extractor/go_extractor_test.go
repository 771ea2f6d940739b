package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kotadb/internal/store"
)

const goSample = `package widget

import (
	"fmt"
	. "strings"
)

type Widget struct {
	Name string
}

type Renderer interface {
	Render() string
}

const MaxWidgets = 10

var defaultName = "widget"

func NewWidget(name string) *Widget {
	return &Widget{Name: name}
}

func (w *Widget) Render() string {
	return fmt.Sprintf("widget:%s", w.Name)
}
`

func TestGoExtractorSymbols(t *testing.T) {
	e := NewGoExtractor()
	symbols, refs, err := e.Extract("widget.go", []byte(goSample))
	require.NoError(t, err)

	byName := map[string]store.Symbol{}
	for _, s := range symbols {
		byName[s.Name] = s
	}

	require.Contains(t, byName, "Widget")
	assert.Equal(t, store.SymbolClass, byName["Widget"].Kind)

	require.Contains(t, byName, "Renderer")
	assert.Equal(t, store.SymbolInterface, byName["Renderer"].Kind)

	require.Contains(t, byName, "MaxWidgets")
	assert.Equal(t, store.SymbolConstant, byName["MaxWidgets"].Kind)

	require.Contains(t, byName, "defaultName")
	assert.Equal(t, store.SymbolVariable, byName["defaultName"].Kind)

	require.Contains(t, byName, "NewWidget")
	assert.Equal(t, store.SymbolFunction, byName["NewWidget"].Kind)

	require.Contains(t, byName, "Widget.Render")
	assert.Equal(t, store.SymbolMethod, byName["Widget.Render"].Kind)

	var importTypes []string
	for _, r := range refs {
		importTypes = append(importTypes, r.ReferenceType)
	}
	assert.Contains(t, importTypes, store.ReferenceImport)
	assert.Contains(t, importTypes, store.ReferenceReExport)
}

func TestGoExtractorParseError(t *testing.T) {
	e := NewGoExtractor()
	_, _, err := e.Extract("broken.go", []byte("this is not valid go {{{"))
	assert.Error(t, err)
}
