package extractor

import "sort"

// BuildSymbolHierarchy computes CONTAINS_SYMBOL relations over symbols using
// a single shared algorithm (spec.md §4.2, §9: the same tightest-span rule
// must govern both hierarchy construction and enclosing-symbol lookup for
// call anchoring — see FindEnclosingSymbol).
//
// Algorithm (ported from base_extractor.py::build_symbol_hierarchy): sort a
// copy of the symbols by (start_line asc, end_line desc) while remembering
// each symbol's original index, then walk with a stack of "open" ancestors.
// For each symbol in sorted order, pop ancestors that do not strictly
// contain it; if the stack is non-empty afterward, its top is the parent.
// Push the current symbol and continue. Sorting by end_line descending
// within equal start_line ensures a symbol that spans more lines is tried as
// a parent before a sibling that starts on the same line but ends sooner.
func BuildSymbolHierarchy(symbols []ExtractedSymbol) []HierarchyEdge {
	type indexed struct {
		idx int
		sym ExtractedSymbol
	}
	ordered := make([]indexed, len(symbols))
	for i, s := range symbols {
		ordered[i] = indexed{idx: i, sym: s}
	}
	sort.SliceStable(ordered, func(a, b int) bool {
		if ordered[a].sym.StartLine != ordered[b].sym.StartLine {
			return ordered[a].sym.StartLine < ordered[b].sym.StartLine
		}
		return ordered[a].sym.EndLine > ordered[b].sym.EndLine
	})

	var edges []HierarchyEdge
	stack := make([]indexed, 0, len(ordered))

	contains := func(parent, child ExtractedSymbol) bool {
		return parent.StartLine <= child.StartLine && parent.EndLine >= child.EndLine
	}

	for _, cur := range ordered {
		for len(stack) > 0 && !contains(stack[len(stack)-1].sym, cur.sym) {
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 {
			edges = append(edges, HierarchyEdge{
				ParentIndex: stack[len(stack)-1].idx,
				ChildIndex:  cur.idx,
			})
		}
		stack = append(stack, cur)
	}

	return edges
}

// FindEnclosingSymbol returns the index (into symbols) of the tightest-span
// symbol containing line, or -1 if none contains it. "Tightest" means
// smallest (end_line - start_line); ties broken by the earliest index so the
// result is deterministic. This is the same containment rule
// BuildSymbolHierarchy uses, per spec.md §9's consistency note.
func FindEnclosingSymbol(symbols []ExtractedSymbol, line int) int {
	best := -1
	bestSpan := -1
	for i, s := range symbols {
		if s.StartLine <= line && line <= s.EndLine {
			span := s.EndLine - s.StartLine
			if best == -1 || span < bestSpan {
				best = i
				bestSpan = span
			}
		}
	}
	return best
}
