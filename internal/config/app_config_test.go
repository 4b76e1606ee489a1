package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/NorthSeacoder/codetransformer/internal/utils"
)

type configTestCase struct {
	name                 string
	globalContent        string
	localContent         string
	explicitPath         string
	environment          map[string]string
	expectWebpackConfig  string
	expectTSConfig       string
	expectRoots          []string
	expectOutputFilename string
}

func TestLoadApplicationConfigurationMergesSources(t *testing.T) {
	testCases := []configTestCase{
		{
			name:                 "local_overrides_global",
			globalContent:        "webpack_config: global/webpack.config.js\noutput_filename: global.md\n",
			localContent:         "webpack_config: build/webpack.config.js\nts_config: tsconfig.base.json\n",
			expectWebpackConfig:  "build/webpack.config.js",
			expectTSConfig:       "tsconfig.base.json",
			expectOutputFilename: "global.md",
		},
		{
			name:                 "explicit_path_only",
			globalContent:        "ts_config: global.json\n",
			localContent:         "ts_config: ignored.json\n",
			explicitPath:         "custom.yaml",
			expectTSConfig:       "custom.json",
			expectOutputFilename: "custom.md",
		},
		{
			name:                 "environment_overrides_files",
			localContent:         "output_filename: local.md\nts_config: local.json\n",
			environment:          map[string]string{"CODETRANSFORMER_OUTPUT_FILENAME": "env.md"},
			expectTSConfig:       "local.json",
			expectOutputFilename: "env.md",
		},
		{
			name:         "roots_resolved_against_working_directory",
			localContent: "roots:\n  - packages/web\n  - packages/web\n",
			expectRoots:  []string{filepath.Join("packages", "web")},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			homeDir := t.TempDir()
			workingDir := t.TempDir()
			configDir := filepath.Join(homeDir, utils.GlobalConfigDirectoryName)
			if err := os.MkdirAll(configDir, 0o755); err != nil {
				t.Fatalf("create config dir: %v", err)
			}
			if testCase.globalContent != "" {
				globalPath := filepath.Join(configDir, utils.GlobalConfigFileName)
				if err := os.WriteFile(globalPath, []byte(testCase.globalContent), 0o600); err != nil {
					t.Fatalf("write global config: %v", err)
				}
			}
			if testCase.localContent != "" {
				localPath := filepath.Join(workingDir, utils.ApplicationConfigFileName)
				if err := os.WriteFile(localPath, []byte(testCase.localContent), 0o600); err != nil {
					t.Fatalf("write local config: %v", err)
				}
			}
			if testCase.explicitPath != "" {
				target := filepath.Join(workingDir, testCase.explicitPath)
				if err := os.WriteFile(target, []byte("ts_config: custom.json\noutput_filename: custom.md\n"), 0o600); err != nil {
					t.Fatalf("write explicit config: %v", err)
				}
			}

			t.Setenv("HOME", homeDir)
			t.Setenv("USERPROFILE", homeDir)
			for _, key := range []string{"CODETRANSFORMER_WEBPACK_CONFIG", "CODETRANSFORMER_TS_CONFIG", "CODETRANSFORMER_ROOTS", "CODETRANSFORMER_OUTPUT_FILENAME"} {
				t.Setenv(key, testCase.environment[key])
			}

			loadedConfig, err := LoadApplicationConfiguration(LoadOptions{
				WorkingDirectory: workingDir,
				ExplicitFilePath: testCase.explicitPath,
			})
			if err != nil {
				t.Fatalf("LoadApplicationConfiguration error: %v", err)
			}

			if loadedConfig.WebpackConfig != testCase.expectWebpackConfig {
				t.Fatalf("expected webpack config %q, got %q", testCase.expectWebpackConfig, loadedConfig.WebpackConfig)
			}
			if loadedConfig.TSConfig != testCase.expectTSConfig {
				t.Fatalf("expected ts config %q, got %q", testCase.expectTSConfig, loadedConfig.TSConfig)
			}
			if loadedConfig.OutputFilename != testCase.expectOutputFilename {
				t.Fatalf("expected output filename %q, got %q", testCase.expectOutputFilename, loadedConfig.OutputFilename)
			}
			expectedRoots := make([]string, 0, len(testCase.expectRoots))
			for _, root := range testCase.expectRoots {
				expectedRoots = append(expectedRoots, filepath.Join(workingDir, root))
			}
			if !reflect.DeepEqual(loadedConfig.Roots, expectedRoots) {
				t.Fatalf("expected roots %v, got %v", expectedRoots, loadedConfig.Roots)
			}
		})
	}
}

func TestLoadApplicationConfigurationReadsRootsFromEnvironment(t *testing.T) {
	homeDir := t.TempDir()
	workingDir := t.TempDir()
	t.Setenv("HOME", homeDir)
	t.Setenv("USERPROFILE", homeDir)
	absoluteRoot := filepath.Join(homeDir, "project")
	t.Setenv("CODETRANSFORMER_ROOTS", strings.Join([]string{absoluteRoot, "relative"}, string(os.PathListSeparator)))

	loadedConfig, err := LoadApplicationConfiguration(LoadOptions{WorkingDirectory: workingDir})
	if err != nil {
		t.Fatalf("LoadApplicationConfiguration error: %v", err)
	}
	expectedRoots := []string{absoluteRoot, filepath.Join(workingDir, "relative")}
	if !reflect.DeepEqual(loadedConfig.Roots, expectedRoots) {
		t.Fatalf("expected roots %v, got %v", expectedRoots, loadedConfig.Roots)
	}
}

func TestLoadApplicationConfigurationRequiresExplicitFile(t *testing.T) {
	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)
	t.Setenv("USERPROFILE", homeDir)
	_, err := LoadApplicationConfiguration(LoadOptions{WorkingDirectory: t.TempDir(), ExplicitFilePath: "missing.yaml"})
	if err == nil {
		t.Fatalf("expected error for a missing explicit configuration file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestLoadApplicationConfigurationRejectsMalformedFile(t *testing.T) {
	homeDir := t.TempDir()
	workingDir := t.TempDir()
	t.Setenv("HOME", homeDir)
	t.Setenv("USERPROFILE", homeDir)
	localPath := filepath.Join(workingDir, utils.ApplicationConfigFileName)
	if err := os.WriteFile(localPath, []byte("roots: [unterminated\n"), 0o600); err != nil {
		t.Fatalf("write local config: %v", err)
	}
	_, err := LoadApplicationConfiguration(LoadOptions{WorkingDirectory: workingDir})
	if err == nil || !strings.Contains(err.Error(), localPath) {
		t.Fatalf("expected error naming %s, got %v", localPath, err)
	}
}

func TestApplicationConfigurationMergeKeepsUnsetFields(t *testing.T) {
	base := ApplicationConfiguration{WebpackConfig: "webpack.config.js", Roots: []string{"/a"}}
	merged := base.Merge(ApplicationConfiguration{OutputFilename: "report.md"})
	expected := ApplicationConfiguration{WebpackConfig: "webpack.config.js", Roots: []string{"/a"}, OutputFilename: "report.md"}
	if !reflect.DeepEqual(merged, expected) {
		t.Fatalf("expected %+v, got %+v", expected, merged)
	}
}
