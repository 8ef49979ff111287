package project

import (
	"sort"
	"strings"
)

// RefOptions configures how a reference is consumed by the depending
// project. The struct is comparable and doubles as the skeleton cache key:
// two references with equal options share one skeleton build.
type RefOptions struct {
	// EmbedInteropTypes asks the consumer to embed interop types from the
	// reference instead of linking them.
	EmbedInteropTypes bool
	// Aliases is the canonical comma-joined sorted alias list; empty means
	// the reference is unaliased.
	Aliases string
}

// MakeRefOptions canonicalizes an alias list into comparable options.
func MakeRefOptions(embed bool, aliases ...string) RefOptions {
	cleaned := make([]string, 0, len(aliases))
	for _, a := range aliases {
		a = strings.TrimSpace(a)
		if a != "" {
			cleaned = append(cleaned, a)
		}
	}
	sort.Strings(cleaned)
	return RefOptions{
		EmbedInteropTypes: embed,
		Aliases:           strings.Join(cleaned, ","),
	}
}

func (o RefOptions) String() string {
	var sb strings.Builder
	if o.Aliases != "" {
		sb.WriteString("aliases=")
		sb.WriteString(o.Aliases)
	}
	if o.EmbedInteropTypes {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString("embed")
	}
	if sb.Len() == 0 {
		return "default"
	}
	return sb.String()
}

// ProjectReference points at another project in the same workspace. The
// referenced project's skeleton stands in for its compiled unit.
type ProjectReference struct {
	Project ProjectID
	Options RefOptions
}

// ModuleReference names an external prebuilt module by identity.
type ModuleReference struct {
	Name    string
	Version string
}

func (r ModuleReference) ID() string {
	if r.Version == "" {
		return r.Name
	}
	return r.Name + "@" + r.Version
}
