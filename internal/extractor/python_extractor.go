package extractor

import (
	"regexp"
	"strings"

	"kotadb/internal/logging"
	"kotadb/internal/store"
)

var (
	pyDefRe    = regexp.MustCompile(`^def\s+([A-Za-z_]\w*)\s*\(`)
	pyClassRe  = regexp.MustCompile(`^class\s+([A-Za-z_]\w*)\s*[:(]`)
	pyImportRe = regexp.MustCompile(`^import\s+([\w.]+)`)
	pyFromRe   = regexp.MustCompile(`^from\s+([\w.]+)\s+import\s+`)
)

// PythonExtractor extracts symbols and references from Python source via
// line-oriented regex matching over def/class/import statements.
type PythonExtractor struct{}

// NewPythonExtractor builds a PythonExtractor.
func NewPythonExtractor() *PythonExtractor { return &PythonExtractor{} }

func (e *PythonExtractor) Language() string            { return "python" }
func (e *PythonExtractor) SupportedExtensions() []string { return []string{".py"} }

func (e *PythonExtractor) Extract(path string, content []byte) ([]store.Symbol, []store.Reference, error) {
	var symbols []store.Symbol
	var refs []store.Reference

	lines := strings.Split(string(content), "\n")
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		lineNum := i + 1

		if m := pyDefRe.FindStringSubmatch(line); m != nil {
			symbols = append(symbols, store.Symbol{
				Name:      m[1],
				Kind:      store.SymbolFunction,
				LineStart: lineNum,
				LineEnd:   lineNum,
				Signature: line,
				Metadata:  map[string]interface{}{"is_exported": !strings.HasPrefix(m[1], "_")},
			})
			continue
		}
		if m := pyClassRe.FindStringSubmatch(line); m != nil {
			symbols = append(symbols, store.Symbol{
				Name:      m[1],
				Kind:      store.SymbolClass,
				LineStart: lineNum,
				LineEnd:   lineNum,
				Signature: line,
				Metadata:  map[string]interface{}{"is_exported": !strings.HasPrefix(m[1], "_")},
			})
			continue
		}
		if m := pyFromRe.FindStringSubmatch(line); m != nil {
			refs = append(refs, store.Reference{ReferenceType: store.ReferenceImport, ImportSource: m[1]})
			continue
		}
		if m := pyImportRe.FindStringSubmatch(line); m != nil {
			refs = append(refs, store.Reference{ReferenceType: store.ReferenceImport, ImportSource: m[1]})
		}
	}

	logging.ExtractorDebug("python extractor: %s -> %d symbols, %d references", path, len(symbols), len(refs))
	return symbols, refs, nil
}
