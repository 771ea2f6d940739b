package indexer

import (
	"bufio"
	"bytes"
	"path"
	"sort"
	"strings"
)

// pathIndex is the set of a repository's known relative file paths, used to
// resolve a Reference's import specifier to a concrete File.Path per
// §4.4.1's module resolution rules.
type pathIndex map[string]bool

func newPathIndex(paths []string) pathIndex {
	idx := make(pathIndex, len(paths))
	for _, p := range paths {
		idx[p] = true
	}
	return idx
}

// sortedKeys returns idx's paths sorted, used when more than one file could
// satisfy a package-path match so resolution is deterministic.
func (idx pathIndex) sortedKeys() []string {
	keys := make([]string, 0, len(idx))
	for k := range idx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// readGoModulePath extracts the `module` directive from a go.mod's raw
// bytes, returning "" if absent or unparseable.
func readGoModulePath(goModContent []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(goModContent))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "module ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "module "))
		}
	}
	return ""
}

// resolveGoImport matches an import path against the repository's declared
// module path, resolving to the File whose directory corresponds to the
// import's package-path suffix. Standard-library and third-party imports
// (no prefix match) stay unresolved.
func resolveGoImport(modulePath, importPath string, paths pathIndex) string {
	if modulePath == "" || importPath != modulePath && !strings.HasPrefix(importPath, modulePath+"/") {
		return ""
	}
	suffix := strings.TrimPrefix(importPath, modulePath)
	suffix = strings.Trim(suffix, "/")

	for _, p := range paths.sortedKeys() {
		if path.Dir(p) == suffix || (suffix == "" && path.Dir(p) == ".") {
			return p
		}
	}
	return ""
}

var tsjsCandidateExts = []string{"", ".ts", ".tsx", ".js", ".jsx"}

// resolveTSJSImport resolves a relative specifier (./ or ../) against the
// importing file's directory, trying the literal path, each extension, and
// an index file under the directory. Bare specifiers (package imports)
// stay unresolved.
func resolveTSJSImport(fromPath, spec string, paths pathIndex) string {
	if !strings.HasPrefix(spec, "./") && !strings.HasPrefix(spec, "../") {
		return ""
	}
	base := path.Join(path.Dir(fromPath), spec)

	for _, ext := range tsjsCandidateExts {
		if candidate := base + ext; paths[candidate] {
			return candidate
		}
	}
	for _, ext := range []string{".ts", ".tsx", ".js", ".jsx"} {
		if candidate := path.Join(base, "index"+ext); paths[candidate] {
			return candidate
		}
	}
	return ""
}

// resolvePythonImport resolves a dotted module path against the repository
// root by translating dots to path separators.
func resolvePythonImport(importSource string, paths pathIndex) string {
	modPath := strings.ReplaceAll(importSource, ".", "/")
	if candidate := modPath + ".py"; paths[candidate] {
		return candidate
	}
	if candidate := path.Join(modPath, "__init__.py"); paths[candidate] {
		return candidate
	}
	return ""
}

// resolveReference dispatches to the language-specific resolution rule for
// a single Reference, identified by the extracting file's language.
func resolveReference(language, fromPath, importSource string, modulePath string, paths pathIndex) string {
	switch language {
	case "go":
		return resolveGoImport(modulePath, importSource, paths)
	case "typescript":
		return resolveTSJSImport(fromPath, importSource, paths)
	case "python":
		return resolvePythonImport(importSource, paths)
	default:
		return ""
	}
}
