package parser

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/reviewforge/kgindex/internal/extractor"
	"github.com/reviewforge/kgindex/internal/kgerr"
)

func getPythonLanguage() *sitter.Language {
	return python.GetLanguage()
}

func extractPythonSymbols(root *sitter.Node, source []byte) ([]extractor.ExtractedSymbol, error) {
	var symbols []extractor.ExtractedSymbol
	w := &pyWalker{source: source, symbols: &symbols}
	if err := w.walk(root, "", 0); err != nil {
		return nil, err
	}
	return symbols, nil
}

type pyWalker struct {
	source  []byte
	symbols *[]extractor.ExtractedSymbol
}

func (w *pyWalker) walk(node *sitter.Node, parentQName string, depth int) error {
	if depth > extractor.DefaultMaxDepth {
		return kgerr.New(kgerr.SymbolExtraction, "extractPythonSymbols",
			errDepthExceeded(extractor.DefaultMaxDepth))
	}

	switch node.Type() {
	case "function_definition":
		sym := w.buildFunction(node, parentQName, extractor.KindFunction)
		if parentQName != "" {
			sym.Kind = extractor.KindMethod
		}
		*w.symbols = append(*w.symbols, sym)

		if body := findChild(node, "block"); body != nil {
			return w.walkChildren(body, sym.QualifiedName, depth+1)
		}
		return nil

	case "class_definition":
		sym := w.buildClass(node)
		*w.symbols = append(*w.symbols, sym)

		if body := findChild(node, "block"); body != nil {
			return w.walkChildren(body, sym.QualifiedName, depth+1)
		}
		return nil
	}

	return w.walkChildren(node, parentQName, depth+1)
}

func (w *pyWalker) walkChildren(node *sitter.Node, parentQName string, depth int) error {
	for i := 0; i < int(node.ChildCount()); i++ {
		if err := w.walk(node.Child(i), parentQName, depth); err != nil {
			return err
		}
	}
	return nil
}

func (w *pyWalker) buildFunction(node *sitter.Node, parentQName string, kind extractor.SymbolKind) extractor.ExtractedSymbol {
	name := ""
	if nameNode := findChild(node, "identifier"); nameNode != nil {
		name = nodeContent(nameNode, w.source)
	}
	qname := name
	if parentQName != "" {
		qname = parentQName + "." + name
	}

	docstring := ""
	if body := findChild(node, "block"); body != nil && body.ChildCount() > 0 {
		if first := body.Child(0); first.Type() == "expression_statement" {
			if str := findChild(first, "string"); str != nil {
				docstring = cleanDocstring(nodeContent(str, w.source))
			}
		}
	}

	signature := "def " + name
	if params := findChild(node, "parameters"); params != nil {
		signature += nodeContent(params, w.source)
	}
	if retType := findChild(node, "type"); retType != nil {
		signature += " -> " + nodeContent(retType, w.source)
	}

	return extractor.ExtractedSymbol{
		Kind:          kind,
		Name:          name,
		QualifiedName: qname,
		StartLine:     int(node.StartPoint().Row) + 1,
		EndLine:       int(node.EndPoint().Row) + 1,
		StartByte:     node.StartByte(),
		EndByte:       node.EndByte(),
		Signature:     signature,
		Docstring:     docstring,
		NodeTypes:     collectNodeTypes(node),
	}
}

func (w *pyWalker) buildClass(node *sitter.Node) extractor.ExtractedSymbol {
	name := ""
	if nameNode := findChild(node, "identifier"); nameNode != nil {
		name = nodeContent(nameNode, w.source)
	}

	docstring := ""
	if body := findChild(node, "block"); body != nil && body.ChildCount() > 0 {
		if first := body.Child(0); first.Type() == "expression_statement" {
			if str := findChild(first, "string"); str != nil {
				docstring = cleanDocstring(nodeContent(str, w.source))
			}
		}
	}

	return extractor.ExtractedSymbol{
		Kind:          extractor.KindClass,
		Name:          name,
		QualifiedName: name,
		StartLine:     int(node.StartPoint().Row) + 1,
		EndLine:       int(node.EndPoint().Row) + 1,
		StartByte:     node.StartByte(),
		EndByte:       node.EndByte(),
		Signature:     "class " + name,
		Docstring:     docstring,
		NodeTypes:     collectNodeTypes(node),
	}
}

// extractPythonReferences walks the tree for import and call references,
// tracking the enclosing dotted function/method name the same way the
// symbol walker does. CallSite records only the line number, not that name;
// callers find the enclosing symbol by line span.
func extractPythonReferences(root *sitter.Node, source []byte) extractor.References {
	var refs extractor.References
	cursor := sitter.NewTreeCursor(root)
	defer cursor.Close()
	walkPythonRefs(cursor, source, "", &refs)
	return refs
}

func walkPythonRefs(cursor *sitter.TreeCursor, source []byte, currentFunc string, refs *extractor.References) {
	node := cursor.CurrentNode()

	switch node.Type() {
	case "import_statement":
		for i := 0; i < int(node.ChildCount()); i++ {
			switch child := node.Child(i); child.Type() {
			case "dotted_name":
				refs.Imports = append(refs.Imports, extractor.ImportReference{
					ModulePath: nodeContent(child, source),
				})
			case "aliased_import":
				if nameNode := findChild(child, "dotted_name"); nameNode != nil {
					imp := extractor.ImportReference{ModulePath: nodeContent(nameNode, source)}
					if aliasNode := findChild(child, "identifier"); aliasNode != nil {
						imp.Alias = nodeContent(aliasNode, source)
					}
					refs.Imports = append(refs.Imports, imp)
				}
			}
		}

	case "import_from_statement":
		isRelative := false
		modulePath := ""
		if rel := findChild(node, "relative_import"); rel != nil {
			isRelative = true
			modulePath = nodeContent(rel, source)
		} else if mod := findChild(node, "dotted_name"); mod != nil {
			modulePath = nodeContent(mod, source)
		}

		var names []string
		var alias string
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			switch child.Type() {
			case "dotted_name":
				if nodeContent(child, source) != modulePath {
					names = append(names, nodeContent(child, source))
				}
			case "aliased_import":
				if nameNode := findChild(child, "dotted_name"); nameNode != nil {
					names = append(names, nodeContent(nameNode, source))
				}
				if aliasNode := findChild(child, "identifier"); aliasNode != nil {
					alias = nodeContent(aliasNode, source)
				}
			case "wildcard_import":
				refs.Imports = append(refs.Imports, extractor.ImportReference{
					ModulePath: modulePath,
					IsRelative: isRelative,
					IsWildcard: true,
				})
			}
		}
		refs.Imports = append(refs.Imports, extractor.ImportReference{
			ModulePath:    modulePath,
			IsRelative:    isRelative,
			ImportedNames: names,
			Alias:         alias,
		})

	case "class_definition":
		className := ""
		if nameNode := findChild(node, "identifier"); nameNode != nil {
			className = nodeContent(nameNode, source)
		}
		if body := findChild(node, "block"); body != nil {
			bc := sitter.NewTreeCursor(body)
			defer bc.Close()
			walkPythonRefs(bc, source, className, refs)
		}
		return

	case "function_definition":
		funcName := ""
		if nameNode := findChild(node, "identifier"); nameNode != nil {
			funcName = nodeContent(nameNode, source)
		}
		if currentFunc != "" {
			funcName = currentFunc + "." + funcName
		}
		if body := findChild(node, "block"); body != nil {
			bc := sitter.NewTreeCursor(body)
			defer bc.Close()
			walkPythonRefs(bc, source, funcName, refs)
		}
		return

	case "call":
		if node.ChildCount() > 0 {
			callee, receiver := splitPythonCallTarget(node.Child(0), source)
			if callee != "" {
				refs.CallSites = append(refs.CallSites, extractor.CallSite{
					CalleeName: callee,
					Receiver:   receiver,
					LineNumber: int(node.StartPoint().Row) + 1,
				})
			}
		}
	}

	if cursor.GoToFirstChild() {
		walkPythonRefs(cursor, source, currentFunc, refs)
		for cursor.GoToNextSibling() {
			walkPythonRefs(cursor, source, currentFunc, refs)
		}
		cursor.GoToParent()
	}
}

// splitPythonCallTarget turns a call's function expression into
// (calleeName, receiver). `foo()` -> ("foo", ""). `obj.method()` ->
// ("method", "obj"). Chained attributes (`a.b.method()`) keep the whole
// prefix as the receiver (`a.b`). Uses the grammar's "object"/"attribute"
// field names rather than child order: both the object and the attribute
// name are "identifier" nodes when the object is a bare name, so picking
// the first identifier child would return the object instead of the
// method name.
func splitPythonCallTarget(funcNode *sitter.Node, source []byte) (callee, receiver string) {
	switch funcNode.Type() {
	case "identifier":
		return nodeContent(funcNode, source), ""
	case "attribute":
		attr := funcNode.ChildByFieldName("attribute")
		obj := funcNode.ChildByFieldName("object")
		if attr == nil {
			return "", ""
		}
		if obj == nil {
			return nodeContent(attr, source), ""
		}
		return nodeContent(attr, source), nodeContent(obj, source)
	}
	return "", ""
}

type depthErr struct{ max int }

func (e *depthErr) Error() string { return "recursion depth exceeded" }

func errDepthExceeded(max int) error { return &depthErr{max: max} }
