package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseAndExtractRefs(t *testing.T, lang Language, code string) (tree *Tree, p *Parser) {
	t.Helper()
	p, err := NewParser(lang)
	require.NoError(t, err)
	tree, err = p.Parse([]byte(code))
	require.NoError(t, err)
	return tree, p
}

func TestPythonReferences_Imports(t *testing.T) {
	code := `
import os
from pathlib import Path
from . import sibling
`
	tree, p := parseAndExtractRefs(t, LanguagePython, code)
	defer tree.Close()

	refs, err := p.ExtractReferences(tree, "test.py")
	require.NoError(t, err)

	var modules []string
	for _, imp := range refs.Imports {
		modules = append(modules, imp.ModulePath)
	}
	assert.Contains(t, modules, "os")
	assert.Contains(t, modules, "pathlib")
}

func TestPythonReferences_DirectAndMethodCalls(t *testing.T) {
	code := `
def outer():
    inner()
    helper.process()

def inner():
    pass
`
	tree, p := parseAndExtractRefs(t, LanguagePython, code)
	defer tree.Close()

	refs, err := p.ExtractReferences(tree, "test.py")
	require.NoError(t, err)

	var direct, method bool
	for _, c := range refs.CallSites {
		if c.CalleeName == "inner" && c.Receiver == "" {
			direct = true
		}
		if c.CalleeName == "process" && c.Receiver == "helper" {
			method = true
		}
	}
	assert.True(t, direct, "expected a no-receiver call to inner")
	assert.True(t, method, "expected helper.process() with receiver helper")
}

func TestPythonReferences_RelativeImportFlag(t *testing.T) {
	code := `
from . import sibling
from pkg import other
`
	tree, p := parseAndExtractRefs(t, LanguagePython, code)
	defer tree.Close()

	refs, err := p.ExtractReferences(tree, "pkg/main.py")
	require.NoError(t, err)

	var sawRelative, sawAbsolute bool
	for _, imp := range refs.Imports {
		if imp.IsRelative {
			sawRelative = true
		} else if imp.ModulePath == "pkg" {
			sawAbsolute = true
		}
	}
	assert.True(t, sawRelative)
	assert.True(t, sawAbsolute)
}

func TestJavaScriptReferences_RelativeImportAndRequire(t *testing.T) {
	code := `
import { helper } from "./utils";
const fs = require("fs");
`
	tree, p := parseAndExtractRefs(t, LanguageJavaScript, code)
	defer tree.Close()

	refs, err := p.ExtractReferences(tree, "main.js")
	require.NoError(t, err)

	var sawRelative, sawBare bool
	for _, imp := range refs.Imports {
		switch imp.ModulePath {
		case "./utils":
			sawRelative = true
			assert.True(t, imp.IsRelative)
		case "fs":
			sawBare = true
			assert.False(t, imp.IsRelative)
		}
	}
	assert.True(t, sawRelative)
	assert.True(t, sawBare)
}

func TestJavaScriptReferences_MethodCallReceiver(t *testing.T) {
	code := `
function run() {
    obj.doThing();
    standalone();
}
`
	tree, p := parseAndExtractRefs(t, LanguageJavaScript, code)
	defer tree.Close()

	refs, err := p.ExtractReferences(tree, "main.js")
	require.NoError(t, err)

	var method, direct bool
	for _, c := range refs.CallSites {
		if c.CalleeName == "doThing" && c.Receiver == "obj" {
			method = true
		}
		if c.CalleeName == "standalone" && c.Receiver == "" {
			direct = true
		}
	}
	assert.True(t, method)
	assert.True(t, direct)
}
