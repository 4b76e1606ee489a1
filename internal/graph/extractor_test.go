package graph

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeProjectFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for relativePath, content := range files {
		absolutePath := filepath.Join(root, filepath.FromSlash(relativePath))
		require.NoError(t, os.MkdirAll(filepath.Dir(absolutePath), 0o755))
		require.NoError(t, os.WriteFile(absolutePath, []byte(content), 0o644))
	}
}

func defaultOptions(baseDirectory string) ResolutionOptions {
	return ResolutionOptions{
		FileExtensions:  []string{"js", "jsx", "ts", "tsx"},
		ExcludePatterns: DefaultExcludePatterns(),
		BaseDirectory:   baseDirectory,
	}
}

func TestExtractFollowsRelativeImports(t *testing.T) {
	root := t.TempDir()
	writeProjectFiles(t, root, map[string]string{
		"src/a.ts":         "import { b } from './b';\nexport const a = b;\n",
		"src/b.ts":         "import { c } from './lib';\nexport const b = c;\n",
		"src/lib/index.ts": "export const c = 1;\n",
		"src/unused.ts":    "export const unused = 0;\n",
	})

	dependencyGraph, err := NewImportExtractor().Extract(context.Background(), filepath.Join(root, "src", "a.ts"), defaultOptions(root))
	require.NoError(t, err)
	require.Equal(t, map[string][]string{
		"src/a.ts":         {"src/b.ts"},
		"src/b.ts":         {"src/lib/index.ts"},
		"src/lib/index.ts": {},
	}, dependencyGraph.Obj())
	require.Equal(t, []string{"src/a.ts", "src/b.ts", "src/lib/index.ts"}, dependencyGraph.Files())
}

func TestExtractSkipsTypeOnlyImportsAndExternalPackages(t *testing.T) {
	root := t.TempDir()
	writeProjectFiles(t, root, map[string]string{
		"a.ts":     "import type { Shape } from './types';\nimport React from 'react';\nexport type { Other } from './other';\nexport const a = 1;\n",
		"types.ts": "export interface Shape { x: number }\n",
		"other.ts": "export interface Other { y: number }\n",
	})

	dependencyGraph, err := NewImportExtractor().Extract(context.Background(), filepath.Join(root, "a.ts"), defaultOptions(root))
	require.NoError(t, err)
	require.Equal(t, map[string][]string{"a.ts": {}}, dependencyGraph.Obj())
}

func TestExtractRecognisesRequireDynamicImportAndReexports(t *testing.T) {
	root := t.TempDir()
	writeProjectFiles(t, root, map[string]string{
		"main.js":    "const legacy = require('./legacy');\nexport * from './shared';\nasync function load() { return import('./lazy'); }\n",
		"legacy.js":  "module.exports = 1;\n",
		"shared.jsx": "export const Shared = () => <div />;\n",
		"lazy.js":    "export default 2;\n",
	})

	dependencyGraph, err := NewImportExtractor().Extract(context.Background(), filepath.Join(root, "main.js"), defaultOptions(root))
	require.NoError(t, err)
	require.Equal(t, []string{"legacy.js", "shared.jsx", "lazy.js"}, dependencyGraph.Dependencies("main.js"))
}

func TestExtractResolvesTypeConfigAliases(t *testing.T) {
	root := t.TempDir()
	writeProjectFiles(t, root, map[string]string{
		"tsconfig.json": `{
  // editor comments are allowed
  "compilerOptions": {
    "baseUrl": ".",
    "paths": { "@app/*": ["src/*"], },
  },
}`,
		"src/main.ts":        "import { helper } from '@app/util/helper';\nimport { flag } from 'config/flags';\n",
		"src/util/helper.ts": "export const helper = 1;\n",
		"config/flags.ts":    "export const flag = true;\n",
	})
	options := defaultOptions(root)
	options.AuxiliaryConfigPaths.TypeConfig = filepath.Join(root, "tsconfig.json")

	dependencyGraph, err := NewImportExtractor().Extract(context.Background(), filepath.Join(root, "src", "main.ts"), options)
	require.NoError(t, err)
	require.Equal(t, []string{"src/util/helper.ts", "config/flags.ts"}, dependencyGraph.Dependencies("src/main.ts"))
}

func TestExtractRedirectsEmittedExtensionToTypeScriptSource(t *testing.T) {
	root := t.TempDir()
	writeProjectFiles(t, root, map[string]string{
		"a.ts": "import { b } from './b.js';\n",
		"b.ts": "export const b = 1;\n",
	})

	dependencyGraph, err := NewImportExtractor().Extract(context.Background(), filepath.Join(root, "a.ts"), defaultOptions(root))
	require.NoError(t, err)
	require.Equal(t, []string{"b.ts"}, dependencyGraph.Dependencies("a.ts"))
}

func TestExtractHonoursExcludePatterns(t *testing.T) {
	root := t.TempDir()
	writeProjectFiles(t, root, map[string]string{
		"src/index.ts":              "import './dist/bundle';\nimport './types';\nimport './real';\n",
		"src/dist/bundle.js":        "export {};\n",
		"src/types.d.ts":            "declare const x: number;\n",
		"src/real.ts":               "export {};\n",
		"src/node_modules/pkg/a.js": "export {};\n",
	})

	dependencyGraph, err := NewImportExtractor().Extract(context.Background(), filepath.Join(root, "src"), defaultOptions(root))
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"src/index.ts", "src/real.ts"}, dependencyGraph.Files())
}

func TestExtractHandlesCycles(t *testing.T) {
	root := t.TempDir()
	writeProjectFiles(t, root, map[string]string{
		"a.js": "import './b';\n",
		"b.js": "import './a';\nimport './b';\n",
	})

	dependencyGraph, err := NewImportExtractor(WithConcurrency(1)).Extract(context.Background(), filepath.Join(root, "a.js"), defaultOptions(root))
	require.NoError(t, err)
	require.Equal(t, map[string][]string{"a.js": {"b.js"}, "b.js": {"a.js"}}, dependencyGraph.Obj())

	reachable, reachErr := dependencyGraph.Reachable("b.js")
	require.NoError(t, reachErr)
	require.Equal(t, []string{"b.js", "a.js"}, reachable)

	files, edges := dependencyGraph.Size()
	require.Equal(t, 2, files)
	require.Equal(t, 2, edges)
}

func TestExtractIgnoresTargetsOutsideBaseDirectory(t *testing.T) {
	root := t.TempDir()
	writeProjectFiles(t, root, map[string]string{
		"app/a.ts":    "import '../shared/s';\n",
		"shared/s.ts": "export {};\n",
	})

	dependencyGraph, err := NewImportExtractor().Extract(context.Background(), filepath.Join(root, "app", "a.ts"), defaultOptions(filepath.Join(root, "app")))
	require.NoError(t, err)
	require.Equal(t, map[string][]string{"a.ts": {}}, dependencyGraph.Obj())
}

func TestExtractFailsWithExtractionError(t *testing.T) {
	root := t.TempDir()
	writeProjectFiles(t, root, map[string]string{
		"inside/a.ts":   "export {};\n",
		"outside/b.ts":  "export {};\n",
		"inside/bad.ts": "const = ;\n",
		"tsconfig.json": "{ not json",
	})
	testCases := map[string]struct {
		entry   string
		mutate  func(*ResolutionOptions)
		wrapped error
	}{
		"entry outside base": {
			entry:   filepath.Join(root, "outside", "b.ts"),
			mutate:  func(options *ResolutionOptions) { options.BaseDirectory = filepath.Join(root, "inside") },
			wrapped: errEntryOutsideBase,
		},
		"unparsable entry": {
			entry:  filepath.Join(root, "inside", "bad.ts"),
			mutate: func(*ResolutionOptions) {},
		},
		"missing entry": {
			entry:   filepath.Join(root, "inside", "missing.ts"),
			mutate:  func(*ResolutionOptions) {},
			wrapped: os.ErrNotExist,
		},
		"malformed type config": {
			entry: filepath.Join(root, "inside", "a.ts"),
			mutate: func(options *ResolutionOptions) {
				options.AuxiliaryConfigPaths.TypeConfig = filepath.Join(root, "tsconfig.json")
			},
		},
	}
	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			options := defaultOptions(root)
			testCase.mutate(&options)
			_, err := NewImportExtractor().Extract(context.Background(), testCase.entry, options)
			var extractionErr *ExtractionError
			require.True(t, errors.As(err, &extractionErr), "expected ExtractionError, got %v", err)
			require.Equal(t, testCase.entry, extractionErr.EntryPath)
			if testCase.wrapped != nil {
				require.ErrorIs(t, err, testCase.wrapped)
			}
		})
	}
}

func TestExtractSkipsUnparsableDependency(t *testing.T) {
	root := t.TempDir()
	writeProjectFiles(t, root, map[string]string{
		"a.js":      "import './broken';\n",
		"broken.js": "export const = ;\n",
	})

	dependencyGraph, err := NewImportExtractor().Extract(context.Background(), filepath.Join(root, "a.js"), defaultOptions(root))
	require.NoError(t, err)
	require.Equal(t, map[string][]string{"a.js": {"broken.js"}, "broken.js": {}}, dependencyGraph.Obj())
}

func TestLoadTypeConfigAcceptsCommentsAndTrailingCommas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tsconfig.json")
	content := `{
  // aliases
  "compilerOptions": {
    "baseUrl": "http://example.com/*x*/", /* note */
    "paths": { "@app/*": ["src/*",], },
  },
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	configuration, err := loadTypeConfig(path)
	require.NoError(t, err)
	require.Equal(t, "http://example.com/*x*/", configuration.CompilerOptions.BaseURL)
	require.Equal(t, map[string][]string{"@app/*": {"src/*"}}, configuration.CompilerOptions.Paths)
}

func TestMatchAlias(t *testing.T) {
	testCases := []struct {
		pattern   string
		specifier string
		captured  string
		matched   bool
	}{
		{pattern: "@app/*", specifier: "@app/util/x", captured: "util/x", matched: true},
		{pattern: "@app/*", specifier: "@other/x", matched: false},
		{pattern: "exact", specifier: "exact", matched: true},
		{pattern: "*.css", specifier: "a.css", captured: "a", matched: true},
	}
	for _, testCase := range testCases {
		captured, matched := matchAlias(testCase.pattern, testCase.specifier)
		require.Equal(t, testCase.matched, matched, testCase.pattern)
		require.Equal(t, testCase.captured, captured, testCase.pattern)
	}
}
