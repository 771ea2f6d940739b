package extractor

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"kotadb/internal/logging"
	"kotadb/internal/store"
)

// GoExtractor extracts symbols and references from Go source files using
// the standard go/ast package.
type GoExtractor struct{}

// NewGoExtractor builds a GoExtractor.
func NewGoExtractor() *GoExtractor { return &GoExtractor{} }

func (e *GoExtractor) Language() string               { return "go" }
func (e *GoExtractor) SupportedExtensions() []string { return []string{".go"} }

// Extract parses a Go file in two passes: the first collects struct and
// interface type names so methods can be linked to their receiver type,
// the second walks every top-level declaration emitting a Symbol per
// func/type/const/var and a Reference per import.
func (e *GoExtractor) Extract(path string, content []byte) ([]store.Symbol, []store.Reference, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, content, parser.ParseComments)
	if err != nil {
		return nil, nil, fmt.Errorf("go parse failed: %w", err)
	}

	// First pass: struct/interface receiver names, for method->type linking.
	typeKinds := make(map[string]string)
	for _, decl := range file.Decls {
		genDecl, ok := decl.(*ast.GenDecl)
		if !ok || genDecl.Tok != token.TYPE {
			continue
		}
		for _, spec := range genDecl.Specs {
			typeSpec, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			switch typeSpec.Type.(type) {
			case *ast.StructType:
				typeKinds[typeSpec.Name.Name] = store.SymbolClass
			case *ast.InterfaceType:
				typeKinds[typeSpec.Name.Name] = store.SymbolInterface
			default:
				typeKinds[typeSpec.Name.Name] = store.SymbolType
			}
		}
	}

	var symbols []store.Symbol
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			symbols = append(symbols, e.funcSymbol(fset, d, typeKinds))
		case *ast.GenDecl:
			symbols = append(symbols, e.genDeclSymbols(fset, d)...)
		}
	}

	refs := e.importReferences(file)

	logging.ExtractorDebug("go extractor: %s -> %d symbols, %d references", path, len(symbols), len(refs))
	return symbols, refs, nil
}

func (e *GoExtractor) funcSymbol(fset *token.FileSet, d *ast.FuncDecl, typeKinds map[string]string) store.Symbol {
	kind := store.SymbolFunction
	name := d.Name.Name
	if d.Recv != nil && len(d.Recv.List) > 0 {
		kind = store.SymbolMethod
		if recvType := receiverTypeName(d.Recv.List[0].Type); recvType != "" {
			name = recvType + "." + d.Name.Name
		}
	}
	start := fset.Position(d.Pos()).Line
	end := fset.Position(d.End()).Line
	return store.Symbol{
		Name:      name,
		Kind:      kind,
		Signature: funcSignature(d),
		LineStart: start,
		LineEnd:   end,
		Metadata:  map[string]interface{}{"is_exported": ast.IsExported(d.Name.Name)},
	}
}

func (e *GoExtractor) genDeclSymbols(fset *token.FileSet, d *ast.GenDecl) []store.Symbol {
	var symbols []store.Symbol
	switch d.Tok {
	case token.TYPE:
		for _, spec := range d.Specs {
			typeSpec, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			kind := store.SymbolType
			switch typeSpec.Type.(type) {
			case *ast.StructType:
				kind = store.SymbolClass
			case *ast.InterfaceType:
				kind = store.SymbolInterface
			}
			symbols = append(symbols, store.Symbol{
				Name:      typeSpec.Name.Name,
				Kind:      kind,
				LineStart: fset.Position(typeSpec.Pos()).Line,
				LineEnd:   fset.Position(typeSpec.End()).Line,
				Metadata:  map[string]interface{}{"is_exported": ast.IsExported(typeSpec.Name.Name)},
			})
		}
	case token.CONST, token.VAR:
		kind := store.SymbolVariable
		if d.Tok == token.CONST {
			kind = store.SymbolConstant
		}
		for _, spec := range d.Specs {
			valueSpec, ok := spec.(*ast.ValueSpec)
			if !ok {
				continue
			}
			for _, name := range valueSpec.Names {
				if name.Name == "_" {
					continue
				}
				symbols = append(symbols, store.Symbol{
					Name:      name.Name,
					Kind:      kind,
					LineStart: fset.Position(valueSpec.Pos()).Line,
					LineEnd:   fset.Position(valueSpec.End()).Line,
					Metadata:  map[string]interface{}{"is_exported": ast.IsExported(name.Name)},
				})
			}
		}
	}
	return symbols
}

// importReferences returns one Reference per import spec. A dot-import
// (`import . "pkg"`) is recorded as a re_export since it re-publishes the
// imported package's identifiers into the importing file's scope;
// export_all has no Go equivalent and is never emitted here.
func (e *GoExtractor) importReferences(file *ast.File) []store.Reference {
	var refs []store.Reference
	for _, imp := range file.Imports {
		path := strings.Trim(imp.Path.Value, `"`)
		refType := store.ReferenceImport
		if imp.Name != nil && imp.Name.Name == "." {
			refType = store.ReferenceReExport
		}
		refs = append(refs, store.Reference{
			ReferenceType: refType,
			ImportSource:  path,
		})
	}
	return refs
}

func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	}
	return ""
}

func funcSignature(d *ast.FuncDecl) string {
	var b strings.Builder
	b.WriteString("func ")
	if d.Recv != nil && len(d.Recv.List) > 0 && len(d.Recv.List[0].Names) > 0 {
		b.WriteString("(")
		b.WriteString(d.Recv.List[0].Names[0].Name)
		b.WriteString(") ")
	}
	b.WriteString(d.Name.Name)
	b.WriteString("(...)")
	if d.Type.Results != nil && len(d.Type.Results.List) > 0 {
		b.WriteString(" (...)")
	}
	return b.String()
}
