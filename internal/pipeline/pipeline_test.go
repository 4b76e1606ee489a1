package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/NorthSeacoder/codetransformer/internal/engine"
	"github.com/NorthSeacoder/codetransformer/internal/plugins"
	"github.com/NorthSeacoder/codetransformer/internal/workspace"
)

var errStubMissing = errors.New("stub: not available")

type stubModuleLoader struct {
	available   map[string]bool
	calls       []string
	resolutions []ResolutionContext
}

func (loader *stubModuleLoader) factory(identifier string) (engine.PluginFactory, error) {
	loader.calls = append(loader.calls, identifier)
	if !loader.available[identifier] {
		return nil, errStubMissing
	}
	return func() (engine.Plugin, error) { return plugins.RemoveConsole{}, nil }, nil
}

func (loader *stubModuleLoader) LoadLocal(_ context.Context, ref LocalModuleRef, resolution ResolutionContext) (engine.PluginFactory, error) {
	loader.resolutions = append(loader.resolutions, resolution)
	return loader.factory(ref.Path)
}

func (loader *stubModuleLoader) LoadPackage(_ context.Context, ref PackageRef, resolution ResolutionContext) (engine.PluginFactory, error) {
	loader.resolutions = append(loader.resolutions, resolution)
	return loader.factory(ref.Name)
}

func writeProjectFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for relativePath, content := range files {
		absolutePath := filepath.Join(root, filepath.FromSlash(relativePath))
		require.NoError(t, os.MkdirAll(filepath.Dir(absolutePath), 0o755))
		require.NoError(t, os.WriteFile(absolutePath, []byte(content), 0o644))
	}
}

func TestLoadWithoutConfigurationReturnsEmptyPipeline(t *testing.T) {
	outer := t.TempDir()
	root := filepath.Join(outer, "project")
	writeProjectFiles(t, outer, map[string]string{
		".transformer.json":    `{"rules": {"plugins": ["find-chinese"]}}`,
		"project/src/a.ts":     "export {};\n",
		"project/package.json": "{}",
	})
	moduleLoader := &stubModuleLoader{}

	config, err := NewLoader(workspace.New([]string{root}), moduleLoader, nil).Load(context.Background(), filepath.Join(root, "src"))
	require.NoError(t, err)
	require.True(t, config.Empty())
	require.Empty(t, config.ConfigPath)
	require.Empty(t, moduleLoader.calls)
}

func TestLoadResolvesPluginsInDeclaredOrder(t *testing.T) {
	root := t.TempDir()
	writeProjectFiles(t, root, map[string]string{
		".transformer.json": `{"rules": {"plugins": ["./plugins/find-chinese.js", "remove-console", "../outside.yaml"], "presets": ["cleanup"]}}`,
		"src/nested/a.ts":   "export {};\n",
	})
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0o755))
	localPlugin := filepath.Join(root, "plugins", "find-chinese.js")
	outsidePlugin := filepath.Join(filepath.Dir(root), "outside.yaml")
	moduleLoader := &stubModuleLoader{available: map[string]bool{localPlugin: true, "remove-console": true, outsidePlugin: true}}

	config, err := NewLoader(workspace.New([]string{root}), moduleLoader, nil).Load(context.Background(), filepath.Join(root, "src", "nested"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, ".transformer.json"), config.ConfigPath)
	require.Equal(t, []string{"cleanup"}, config.Presets)
	require.Len(t, config.Plugins, 3)
	require.Equal(t, LocalModuleRef{Path: localPlugin}, config.Plugins[0].Ref)
	require.Equal(t, PackageRef{Name: "remove-console"}, config.Plugins[1].Ref)
	require.Equal(t, LocalModuleRef{Path: outsidePlugin}, config.Plugins[2].Ref)
	require.Equal(t, ResolutionContext{
		ConfigDirectory:  root,
		DependencyStores: []string{filepath.Join(root, "node_modules")},
	}, moduleLoader.resolutions[0])

	instances, instantiateErr := config.Instantiate()
	require.NoError(t, instantiateErr)
	require.Len(t, instances, 3)
}

func TestLoadReportsConfigurationErrors(t *testing.T) {
	testCases := map[string]struct {
		content string
		check   func(t *testing.T, configPath string, err error)
	}{
		"malformed json": {
			content: `{"rules": {"plugins": [}`,
			check: func(t *testing.T, configPath string, err error) {
				var parseErr *ConfigParseError
				require.ErrorAs(t, err, &parseErr)
				require.Equal(t, configPath, parseErr.Path)
			},
		},
		"rules is not an object": {
			content: `{"rules": "find-chinese"}`,
			check: func(t *testing.T, configPath string, err error) {
				var parseErr *ConfigParseError
				require.ErrorAs(t, err, &parseErr)
			},
		},
		"plugin entry is not a string": {
			content: `{"rules": {"plugins": [42]}}`,
			check: func(t *testing.T, configPath string, err error) {
				var parseErr *ConfigParseError
				require.ErrorAs(t, err, &parseErr)
			},
		},
		"unknown rules key": {
			content: `{"rules": {"plugins": ["find-chinese"], "plugin": ["remove-console"]}}`,
			check: func(t *testing.T, configPath string, err error) {
				var parseErr *ConfigParseError
				require.ErrorAs(t, err, &parseErr)
				require.Contains(t, err.Error(), "plugin")
			},
		},
		"unknown top-level key": {
			content: `{"rules": {"plugins": []}, "presets": ["cleanup"]}`,
			check: func(t *testing.T, configPath string, err error) {
				var parseErr *ConfigParseError
				require.ErrorAs(t, err, &parseErr)
			},
		},
		"local plugin fails to load": {
			content: `{"rules": {"plugins": ["./missing.js"]}}`,
			check: func(t *testing.T, configPath string, err error) {
				var loadErr *PluginLoadError
				require.ErrorAs(t, err, &loadErr)
				require.Equal(t, filepath.Join(filepath.Dir(configPath), "missing.js"), loadErr.Path)
				require.Contains(t, err.Error(), "missing.js")
			},
		},
		"package not installed": {
			content: `{"rules": {"plugins": ["babel-plugin-unknown"]}}`,
			check: func(t *testing.T, configPath string, err error) {
				var notInstalled *PluginNotInstalledError
				require.ErrorAs(t, err, &notInstalled)
				require.Equal(t, "babel-plugin-unknown", notInstalled.Name)
				require.Equal(t, "npm install babel-plugin-unknown --save-dev", notInstalled.InstallHint())
				require.Contains(t, err.Error(), "npm install babel-plugin-unknown --save-dev")
				require.Contains(t, err.Error(), "find-chinese, find-text, remove-console")
			},
		},
	}
	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			root := t.TempDir()
			writeProjectFiles(t, root, map[string]string{".transformer.json": testCase.content})
			_, err := NewLoader(workspace.New([]string{root}), &stubModuleLoader{}, nil).Load(context.Background(), root)
			require.Error(t, err)
			testCase.check(t, filepath.Join(root, ".transformer.json"), err)
		})
	}
}

func TestLoadStopsAtFirstFailingPlugin(t *testing.T) {
	root := t.TempDir()
	writeProjectFiles(t, root, map[string]string{".transformer.json": `{"rules": {"plugins": ["first", "second", "third"]}}`})
	moduleLoader := &stubModuleLoader{available: map[string]bool{"first": true, "third": true}}

	_, err := NewLoader(workspace.New([]string{root}), moduleLoader, nil).Load(context.Background(), root)
	require.Error(t, err)
	require.Equal(t, []string{"first", "second"}, moduleLoader.calls)
}

func TestParseReference(t *testing.T) {
	configDirectory := filepath.FromSlash("/project/config")
	testCases := map[string]Reference{
		"./local.js":       LocalModuleRef{Path: filepath.Join(configDirectory, "local.js")},
		"../shared/p.yaml": LocalModuleRef{Path: filepath.Join(configDirectory, "..", "shared", "p.yaml")},
		"find-chinese":     PackageRef{Name: "find-chinese"},
		"@scope/plugin":    PackageRef{Name: "@scope/plugin"},
		".hidden-package":  PackageRef{Name: ".hidden-package"},
	}
	for identifier, expected := range testCases {
		require.Equal(t, expected, ParseReference(identifier, configDirectory), identifier)
	}
}

func TestDefaultModuleLoaderResolvesPackages(t *testing.T) {
	root := t.TempDir()
	store := filepath.Join(root, "node_modules")
	writeProjectFiles(t, store, map[string]string{
		"plain/package.json":       `{"name": "plain"}`,
		"@scope/tool/package.json": `{"name": "@scope/tool", "bin": {"tool": "bin/run"}}`,
		"single/package.json":      `{"name": "single", "bin": "cli.js"}`,
		"single/cli.js":            "process.stdin.pipe(process.stdout);\n",
	})
	writeProjectFiles(t, store, map[string]string{"@scope/tool/bin/run": "#!/bin/sh\ncat\n", ".bin/linked": "#!/bin/sh\ncat\n"})
	require.NoError(t, os.Chmod(filepath.Join(store, "@scope", "tool", "bin", "run"), 0o755))
	require.NoError(t, os.Chmod(filepath.Join(store, ".bin", "linked"), 0o755))

	loader := NewModuleLoader(nil)
	loader.lookupPath = func(string) (string, error) { return "/usr/bin/node", nil }
	resolution := ResolutionContext{ConfigDirectory: root, DependencyStores: []string{store}}

	for _, name := range []string{"find-chinese", "linked", "@scope/tool", "single"} {
		factory, err := loader.LoadPackage(context.Background(), PackageRef{Name: name}, resolution)
		require.NoError(t, err, name)
		require.NotNil(t, factory, name)
	}

	_, err := loader.LoadPackage(context.Background(), PackageRef{Name: "plain"}, resolution)
	require.ErrorIs(t, err, errPackageNotFound)

	loader.lookupPath = func(string) (string, error) { return "", errors.New("not found") }
	_, err = loader.LoadPackage(context.Background(), PackageRef{Name: "single"}, resolution)
	require.ErrorIs(t, err, errMissingInterpreter)
}

func TestDefaultModuleLoaderLoadsLocalFiles(t *testing.T) {
	root := t.TempDir()
	writeProjectFiles(t, root, map[string]string{
		"definition.yaml": "kind: find-text\npattern: TODO\n",
		"notes.txt":       "not a plugin",
		"tool":            "#!/bin/sh\ncat\n",
	})
	require.NoError(t, os.Chmod(filepath.Join(root, "tool"), 0o755))
	loader := NewModuleLoader(nil)

	factory, err := loader.LoadLocal(context.Background(), LocalModuleRef{Path: filepath.Join(root, "definition.yaml")}, ResolutionContext{})
	require.NoError(t, err)
	plugin, err := factory()
	require.NoError(t, err)
	require.Equal(t, "definition", plugin.Name())

	factory, err = loader.LoadLocal(context.Background(), LocalModuleRef{Path: filepath.Join(root, "tool")}, ResolutionContext{})
	require.NoError(t, err)
	plugin, err = factory()
	require.NoError(t, err)
	require.Equal(t, "tool", plugin.Name())

	_, err = loader.LoadLocal(context.Background(), LocalModuleRef{Path: filepath.Join(root, "notes.txt")}, ResolutionContext{})
	require.ErrorIs(t, err, errUnsupportedPluginFile)

	_, err = loader.LoadLocal(context.Background(), LocalModuleRef{Path: filepath.Join(root, "absent.js")}, ResolutionContext{})
	require.ErrorIs(t, err, os.ErrNotExist)
}
