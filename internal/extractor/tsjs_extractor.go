package extractor

import (
	"regexp"
	"strings"

	"kotadb/internal/logging"
	"kotadb/internal/store"
)

var (
	tsExportDeclRe = regexp.MustCompile(`^export\s+(?:default\s+)?(?:async\s+)?(function|class|interface|type|const|let|var)\s+([A-Za-z_$][\w$]*)`)
	tsImportFromRe = regexp.MustCompile(`^import\s+.*\sfrom\s+['"]([^'"]+)['"]`)
	tsExportAllRe  = regexp.MustCompile(`^export\s+\*\s+from\s+['"]([^'"]+)['"]`)
	tsReExportRe   = regexp.MustCompile(`^export\s+\{[^}]*\}\s+from\s+['"]([^'"]+)['"]`)
	tsDynamicImportRe = regexp.MustCompile(`import\s*\(\s*['"]([^'"]+)['"]\s*\)`)
)

var tsKindByKeyword = map[string]string{
	"function":  store.SymbolFunction,
	"class":     store.SymbolClass,
	"interface": store.SymbolInterface,
	"type":      store.SymbolType,
	"const":     store.SymbolVariable,
	"let":       store.SymbolVariable,
	"var":       store.SymbolVariable,
}

// TSJSExtractor extracts symbols and references from TypeScript and
// JavaScript source via line-oriented regex matching. This is deliberately
// lexical, not a full parse, matching the sufficiency bar for this
// extraction layer.
type TSJSExtractor struct{}

// NewTSJSExtractor builds a TSJSExtractor.
func NewTSJSExtractor() *TSJSExtractor { return &TSJSExtractor{} }

func (e *TSJSExtractor) Language() string { return "typescript" }

func (e *TSJSExtractor) SupportedExtensions() []string {
	return []string{".ts", ".tsx", ".js", ".jsx"}
}

func (e *TSJSExtractor) Extract(path string, content []byte) ([]store.Symbol, []store.Reference, error) {
	var symbols []store.Symbol
	var refs []store.Reference

	lines := strings.Split(string(content), "\n")
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		lineNum := i + 1

		if m := tsExportDeclRe.FindStringSubmatch(line); m != nil {
			symbols = append(symbols, store.Symbol{
				Name:      m[2],
				Kind:      tsKindByKeyword[m[1]],
				LineStart: lineNum,
				LineEnd:   lineNum,
				Signature: line,
				Metadata:  map[string]interface{}{"is_exported": true},
			})
		}

		switch {
		case tsExportAllRe.MatchString(line):
			m := tsExportAllRe.FindStringSubmatch(line)
			refs = append(refs, store.Reference{ReferenceType: store.ReferenceExportAll, ImportSource: m[1]})
		case tsReExportRe.MatchString(line):
			m := tsReExportRe.FindStringSubmatch(line)
			refs = append(refs, store.Reference{ReferenceType: store.ReferenceReExport, ImportSource: m[1]})
		case tsImportFromRe.MatchString(line):
			m := tsImportFromRe.FindStringSubmatch(line)
			refs = append(refs, store.Reference{ReferenceType: store.ReferenceImport, ImportSource: m[1]})
		}

		for _, m := range tsDynamicImportRe.FindAllStringSubmatch(line, -1) {
			refs = append(refs, store.Reference{ReferenceType: store.ReferenceDynamicImport, ImportSource: m[1]})
		}
	}

	logging.ExtractorDebug("ts/js extractor: %s -> %d symbols, %d references", path, len(symbols), len(refs))
	return symbols, refs, nil
}
