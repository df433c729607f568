package repograph

// Default exclusion sets, ported from original_source's
// src/graph/constants.py (DEFAULT_EXCLUDED_DIRS / DEFAULT_EXCLUDED_FILES)
// and cross-checked against the teacher's internal/indexer/walker.go default
// glob list.
var (
	DefaultExcludedDirs = map[string]bool{
		".git":         true,
		"__pycache__":  true,
		"node_modules": true,
		"venv":         true,
		".venv":        true,
		"dist":         true,
		"build":        true,
		".idea":        true,
		".vscode":      true,
		".pytest_cache": true,
		".mypy_cache":  true,
		".ruff_cache":  true,
		"target":       true,
		".tox":         true,
	}

	// DefaultExcludedDirGlobs matches directory names by wildcard (fnmatch
	// style) rather than exact string, e.g. Python's *.egg-info directories.
	DefaultExcludedDirGlobs = []string{
		"*.egg-info",
	}

	DefaultExcludedFiles = map[string]bool{
		"package-lock.json": true,
		"yarn.lock":         true,
		"poetry.lock":       true,
		"Cargo.lock":        true,
		"Gemfile.lock":      true,
	}

	DefaultExcludedFileGlobs = []string{
		"*.pyc",
		"*.min.js",
		"*.bundle.js",
		"*.map",
	}

	// DefaultHiddenAllowlist is the small set of dotfiles kept despite the
	// hidden-entry exclusion rule (spec.md §4.5).
	DefaultHiddenAllowlist = map[string]bool{
		".env":   true,
		".envrc": true,
	}
)
