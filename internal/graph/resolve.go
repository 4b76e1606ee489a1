package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tailscale/hujson"

	"github.com/NorthSeacoder/codetransformer/internal/utils"
)

const (
	resolutionCacheSize = 4096
	pathWildcard        = "*"
	indexFileBaseName   = "index"

	errorReadTypeConfigFormat  = "read type config %s: %w"
	errorParseTypeConfigFormat = "parse type config %s: %w"
)

// typeScriptRedirects maps an emitted extension to the source extensions that
// produce it, so "./util.js" may resolve to "util.ts".
var typeScriptRedirects = map[string][]string{
	".js":  {".ts", ".tsx"},
	".jsx": {".tsx"},
}

type typeConfig struct {
	CompilerOptions struct {
		BaseURL string              `json:"baseUrl"`
		Paths   map[string][]string `json:"paths"`
	} `json:"compilerOptions"`
}

type pathAlias struct {
	pattern string
	targets []string
}

// moduleResolver maps import specifiers to files on disk.
type moduleResolver struct {
	extensions  []string
	baseURL     string
	aliases     []pathAlias
	resolutions *lru.Cache[string, string]
}

func newModuleResolver(extensions []string, typeConfigPath string) (*moduleResolver, error) {
	resolutions, cacheErr := lru.New[string, string](resolutionCacheSize)
	if cacheErr != nil {
		return nil, cacheErr
	}
	resolver := &moduleResolver{resolutions: resolutions}
	for _, extension := range extensions {
		resolver.extensions = append(resolver.extensions, "."+strings.TrimPrefix(extension, "."))
	}
	if typeConfigPath == "" {
		return resolver, nil
	}
	configuration, loadErr := loadTypeConfig(typeConfigPath)
	if loadErr != nil {
		return nil, loadErr
	}
	configDirectory := filepath.Dir(typeConfigPath)
	if configuration.CompilerOptions.BaseURL != "" {
		resolver.baseURL = filepath.Join(configDirectory, filepath.FromSlash(configuration.CompilerOptions.BaseURL))
	}
	aliasBase := resolver.baseURL
	if aliasBase == "" {
		aliasBase = configDirectory
	}
	for pattern, targets := range configuration.CompilerOptions.Paths {
		alias := pathAlias{pattern: pattern}
		for _, target := range targets {
			alias.targets = append(alias.targets, filepath.Join(aliasBase, filepath.FromSlash(target)))
		}
		resolver.aliases = append(resolver.aliases, alias)
	}
	// longest prefix wins, matching the TypeScript compiler
	sortAliases(resolver.aliases)
	return resolver, nil
}

// resolve returns the file imported by specifier from importingFile, or "" when the
// specifier names an external package or nothing on disk.
func (resolver *moduleResolver) resolve(importingFile string, specifier string) string {
	cacheKey := filepath.Dir(importingFile) + "\x00" + specifier
	if cached, ok := resolver.resolutions.Get(cacheKey); ok {
		return cached
	}
	resolved := resolver.resolveUncached(importingFile, specifier)
	resolver.resolutions.Add(cacheKey, resolved)
	return resolved
}

func (resolver *moduleResolver) resolveUncached(importingFile string, specifier string) string {
	if isRelativeSpecifier(specifier) {
		return resolver.resolveFile(filepath.Join(filepath.Dir(importingFile), filepath.FromSlash(specifier)))
	}
	if filepath.IsAbs(specifier) {
		return resolver.resolveFile(filepath.Clean(specifier))
	}
	for _, alias := range resolver.aliases {
		captured, matched := matchAlias(alias.pattern, specifier)
		if !matched {
			continue
		}
		for _, target := range alias.targets {
			if resolved := resolver.resolveFile(strings.Replace(target, pathWildcard, captured, 1)); resolved != "" {
				return resolved
			}
		}
	}
	if resolver.baseURL != "" {
		return resolver.resolveFile(filepath.Join(resolver.baseURL, filepath.FromSlash(specifier)))
	}
	return ""
}

// resolveFile tries candidate as written, with each extension appended, with a
// TypeScript source extension in place of an emitted one, and as a directory index.
func (resolver *moduleResolver) resolveFile(candidate string) string {
	if utils.IsRegularFile(candidate) && resolver.hasExtension(candidate) {
		return candidate
	}
	for _, extension := range resolver.extensions {
		if withExtension := candidate + extension; utils.IsRegularFile(withExtension) {
			return withExtension
		}
	}
	currentExtension := filepath.Ext(candidate)
	for _, redirected := range typeScriptRedirects[currentExtension] {
		if !resolver.allows(redirected) {
			continue
		}
		if replaced := strings.TrimSuffix(candidate, currentExtension) + redirected; utils.IsRegularFile(replaced) {
			return replaced
		}
	}
	if utils.IsDirectory(candidate) {
		for _, extension := range resolver.extensions {
			if indexFile := filepath.Join(candidate, indexFileBaseName+extension); utils.IsRegularFile(indexFile) {
				return indexFile
			}
		}
	}
	return ""
}

func (resolver *moduleResolver) hasExtension(path string) bool {
	return resolver.allows(filepath.Ext(path))
}

func (resolver *moduleResolver) allows(extension string) bool {
	for _, allowed := range resolver.extensions {
		if strings.EqualFold(allowed, extension) {
			return true
		}
	}
	return false
}

func isRelativeSpecifier(specifier string) bool {
	return specifier == "." || specifier == ".." ||
		strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../")
}

func matchAlias(pattern string, specifier string) (string, bool) {
	wildcardIndex := strings.Index(pattern, pathWildcard)
	if wildcardIndex < 0 {
		return "", pattern == specifier
	}
	prefix, suffix := pattern[:wildcardIndex], pattern[wildcardIndex+1:]
	if len(specifier) < len(prefix)+len(suffix) || !strings.HasPrefix(specifier, prefix) || !strings.HasSuffix(specifier, suffix) {
		return "", false
	}
	return specifier[len(prefix) : len(specifier)-len(suffix)], true
}

func sortAliases(aliases []pathAlias) {
	sort.SliceStable(aliases, func(left, right int) bool {
		leftLength, rightLength := aliasPrefixLength(aliases[left]), aliasPrefixLength(aliases[right])
		if leftLength != rightLength {
			return leftLength > rightLength
		}
		return aliases[left].pattern < aliases[right].pattern
	})
}

func aliasPrefixLength(alias pathAlias) int {
	if wildcardIndex := strings.Index(alias.pattern, pathWildcard); wildcardIndex >= 0 {
		return wildcardIndex
	}
	return len(alias.pattern) + 1
}

// loadTypeConfig reads tsconfig.json, which permits comments and trailing commas.
func loadTypeConfig(path string) (typeConfig, error) {
	var configuration typeConfig
	content, readErr := os.ReadFile(path)
	if readErr != nil {
		return configuration, fmt.Errorf(errorReadTypeConfigFormat, path, readErr)
	}
	standardized, standardizeErr := hujson.Standardize(content)
	if standardizeErr != nil {
		return configuration, fmt.Errorf(errorParseTypeConfigFormat, path, standardizeErr)
	}
	if unmarshalErr := json.Unmarshal(standardized, &configuration); unmarshalErr != nil {
		return configuration, fmt.Errorf(errorParseTypeConfigFormat, path, unmarshalErr)
	}
	return configuration, nil
}
