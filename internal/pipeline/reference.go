// Package pipeline loads the .transformer.json pipeline configuration and resolves
// its plugin references.
package pipeline

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/NorthSeacoder/codetransformer/internal/engine"
)

var localPrefixes = []string{"./", "../", "/"}

// Reference is an unresolved plugin identifier: a LocalModuleRef or a PackageRef.
type Reference interface {
	Identifier() string
	isReference()
}

// LocalModuleRef points at a plugin file. Path is absolute once parsed.
type LocalModuleRef struct {
	Path string
}

// Identifier returns the plugin path.
func (ref LocalModuleRef) Identifier() string { return ref.Path }

func (LocalModuleRef) isReference() {}

// PackageRef names an installed plugin package.
type PackageRef struct {
	Name string
}

// Identifier returns the package name.
func (ref PackageRef) Identifier() string { return ref.Name }

func (PackageRef) isReference() {}

// ParseReference classifies identifier. Identifiers starting with "./", "../" or "/"
// are local paths resolved against configDirectory; anything else is a package name.
func ParseReference(identifier string, configDirectory string) Reference {
	normalized := filepath.ToSlash(identifier)
	for _, prefix := range localPrefixes {
		if !strings.HasPrefix(normalized, prefix) {
			continue
		}
		if filepath.IsAbs(identifier) {
			return LocalModuleRef{Path: filepath.Clean(identifier)}
		}
		return LocalModuleRef{Path: filepath.Join(configDirectory, filepath.FromSlash(identifier))}
	}
	return PackageRef{Name: identifier}
}

// ResolutionContext carries what a ModuleLoader may consult for one configuration.
type ResolutionContext struct {
	ConfigDirectory  string
	DependencyStores []string
}

// ModuleLoader turns plugin references into plugin factories.
type ModuleLoader interface {
	LoadLocal(ctx context.Context, ref LocalModuleRef, resolution ResolutionContext) (engine.PluginFactory, error)
	LoadPackage(ctx context.Context, ref PackageRef, resolution ResolutionContext) (engine.PluginFactory, error)
}

// ResolvedPlugin pairs a reference with the factory it resolved to.
type ResolvedPlugin struct {
	Ref     Reference
	Factory engine.PluginFactory
}
