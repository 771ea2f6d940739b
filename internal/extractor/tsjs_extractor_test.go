package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kotadb/internal/store"
)

const tsSample = `import { useState } from "react"
import utils from "./utils"
export * from "./shared"
export { helper } from "./helper"

export function render(name: string) {
	return name
}

export class Widget {
	render() {}
}

async function lazyLoad() {
	const mod = await import("./lazy")
	return mod
}
`

func TestTSJSExtractor(t *testing.T) {
	e := NewTSJSExtractor()
	symbols, refs, err := e.Extract("widget.ts", []byte(tsSample))
	require.NoError(t, err)

	names := map[string]string{}
	for _, s := range symbols {
		names[s.Name] = s.Kind
	}
	assert.Equal(t, store.SymbolFunction, names["render"])
	assert.Equal(t, store.SymbolClass, names["Widget"])

	var types []string
	for _, r := range refs {
		types = append(types, r.ReferenceType)
	}
	assert.Contains(t, types, store.ReferenceImport)
	assert.Contains(t, types, store.ReferenceExportAll)
	assert.Contains(t, types, store.ReferenceReExport)
	assert.Contains(t, types, store.ReferenceDynamicImport)
}
