package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/reviewforge/kgindex/internal/extractor"
	"github.com/reviewforge/kgindex/internal/kgerr"
)

func getJavaScriptLanguage() *sitter.Language {
	return javascript.GetLanguage()
}

func extractJavaScriptSymbols(root *sitter.Node, source []byte) ([]extractor.ExtractedSymbol, error) {
	var symbols []extractor.ExtractedSymbol
	w := &jsWalker{source: source, symbols: &symbols}
	if err := w.walk(root, "", 0); err != nil {
		return nil, err
	}
	return symbols, nil
}

type jsWalker struct {
	source  []byte
	symbols *[]extractor.ExtractedSymbol
}

func (w *jsWalker) walk(node *sitter.Node, parentQName string, depth int) error {
	if depth > extractor.DefaultMaxDepth {
		return kgerr.New(kgerr.SymbolExtraction, "extractJavaScriptSymbols", errDepthExceeded(extractor.DefaultMaxDepth))
	}

	switch node.Type() {
	case "function_declaration":
		sym := w.buildFunction(node, parentQName, extractor.KindFunction)
		*w.symbols = append(*w.symbols, sym)
		return nil

	case "class_declaration":
		sym := w.buildClass(node)
		*w.symbols = append(*w.symbols, sym)

		if body := findChildByType(node, "class_body"); body != nil {
			for i := 0; i < int(body.ChildCount()); i++ {
				if child := body.Child(i); child.Type() == "method_definition" {
					methodSym := w.buildMethod(child, sym.QualifiedName)
					*w.symbols = append(*w.symbols, methodSym)
				}
			}
		}
		return nil
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		if err := w.walk(node.Child(i), parentQName, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (w *jsWalker) buildFunction(node *sitter.Node, parentQName string, kind extractor.SymbolKind) extractor.ExtractedSymbol {
	name := ""
	if nameNode := findChildByType(node, "identifier"); nameNode != nil {
		name = nodeContent(nameNode, w.source)
	}
	qname := name
	if parentQName != "" {
		qname = parentQName + "." + name
	}
	return extractor.ExtractedSymbol{
		Kind:          kind,
		Name:          name,
		QualifiedName: qname,
		StartLine:     int(node.StartPoint().Row) + 1,
		EndLine:       int(node.EndPoint().Row) + 1,
		StartByte:     node.StartByte(),
		EndByte:       node.EndByte(),
		Signature:     firstLine(nodeContent(node, w.source)),
		NodeTypes:     collectNodeTypes(node),
	}
}

func (w *jsWalker) buildClass(node *sitter.Node) extractor.ExtractedSymbol {
	name := ""
	if nameNode := findChildByType(node, "identifier"); nameNode != nil {
		name = nodeContent(nameNode, w.source)
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
		NodeTypes:     collectNodeTypes(node),
	}
}

func (w *jsWalker) buildMethod(node *sitter.Node, parentQName string) extractor.ExtractedSymbol {
	name := ""
	if nameNode := findChildByType(node, "property_identifier"); nameNode != nil {
		name = nodeContent(nameNode, w.source)
	}
	qname := name
	if parentQName != "" {
		qname = parentQName + "." + name
	}
	kind := extractor.KindMethod
	if name == "constructor" {
		kind = extractor.KindConstructor
	}
	return extractor.ExtractedSymbol{
		Kind:          kind,
		Name:          name,
		QualifiedName: qname,
		StartLine:     int(node.StartPoint().Row) + 1,
		EndLine:       int(node.EndPoint().Row) + 1,
		StartByte:     node.StartByte(),
		EndByte:       node.EndByte(),
		Signature:     firstLine(nodeContent(node, w.source)),
		NodeTypes:     collectNodeTypes(node),
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// extractJSReferences walks for import/require statements and call
// expressions, tracking the enclosing dotted function/method name.
func extractJSReferences(root *sitter.Node, source []byte) extractor.References {
	var refs extractor.References
	cursor := sitter.NewTreeCursor(root)
	defer cursor.Close()
	walkJSRefs(cursor, source, "", &refs)
	return refs
}

func walkJSRefs(cursor *sitter.TreeCursor, source []byte, currentFunc string, refs *extractor.References) {
	node := cursor.CurrentNode()

	switch node.Type() {
	case "import_statement":
		if strNode := findChildByType(node, "string"); strNode != nil {
			modulePath := strings.Trim(nodeContent(strNode, source), `"'`)
			refs.Imports = append(refs.Imports, extractor.ImportReference{
				ModulePath: modulePath,
				IsRelative: strings.HasPrefix(modulePath, "."),
			})
		}

	case "call_expression":
		if funcNode := node.Child(0); funcNode != nil {
			if funcNode.Type() == "identifier" && nodeContent(funcNode, source) == "require" {
				if args := findChildByType(node, "arguments"); args != nil {
					if strArg := findChildByType(args, "string"); strArg != nil {
						modulePath := strings.Trim(nodeContent(strArg, source), `"'`)
						refs.Imports = append(refs.Imports, extractor.ImportReference{
							ModulePath: modulePath,
							IsRelative: strings.HasPrefix(modulePath, "."),
						})
					}
				}
			} else {
				callee, receiver := splitJSCallTarget(funcNode, source)
				if callee != "" {
					refs.CallSites = append(refs.CallSites, extractor.CallSite{
						CalleeName: callee,
						Receiver:   receiver,
						LineNumber: int(node.StartPoint().Row) + 1,
					})
				}
			}
		}

	case "class_declaration":
		className := ""
		if nameNode := findChildByType(node, "identifier"); nameNode != nil {
			className = nodeContent(nameNode, source)
		}
		if body := findChildByType(node, "class_body"); body != nil {
			bc := sitter.NewTreeCursor(body)
			defer bc.Close()
			walkJSRefs(bc, source, className, refs)
		}
		return

	case "function_declaration":
		funcName := ""
		if nameNode := findChildByType(node, "identifier"); nameNode != nil {
			funcName = nodeContent(nameNode, source)
		}
		if currentFunc != "" && funcName != "" {
			funcName = currentFunc + "." + funcName
		}
		if body := findChildByType(node, "statement_block"); body != nil {
			bc := sitter.NewTreeCursor(body)
			defer bc.Close()
			walkJSRefs(bc, source, funcName, refs)
		}
		return

	case "method_definition":
		methodName := ""
		if nameNode := findChildByType(node, "property_identifier"); nameNode != nil {
			methodName = nodeContent(nameNode, source)
		}
		fullName := methodName
		if currentFunc != "" && methodName != "" {
			fullName = currentFunc + "." + methodName
		}
		if body := findChildByType(node, "statement_block"); body != nil {
			bc := sitter.NewTreeCursor(body)
			defer bc.Close()
			walkJSRefs(bc, source, fullName, refs)
		}
		return

	case "arrow_function", "function":
		if body := findChildByType(node, "statement_block"); body != nil {
			bc := sitter.NewTreeCursor(body)
			defer bc.Close()
			walkJSRefs(bc, source, currentFunc, refs)
		}
		return
	}

	if cursor.GoToFirstChild() {
		walkJSRefs(cursor, source, currentFunc, refs)
		for cursor.GoToNextSibling() {
			walkJSRefs(cursor, source, currentFunc, refs)
		}
		cursor.GoToParent()
	}
}

func splitJSCallTarget(node *sitter.Node, source []byte) (callee, receiver string) {
	switch node.Type() {
	case "identifier":
		return nodeContent(node, source), ""
	case "member_expression":
		prop := findChildByType(node, "property_identifier")
		obj := node.Child(0)
		if prop == nil || obj == nil {
			return "", ""
		}
		return nodeContent(prop, source), nodeContent(obj, source)
	}
	return "", ""
}

func findChildByType(node *sitter.Node, nodeType string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child.Type() == nodeType {
			return child
		}
	}
	return nil
}
