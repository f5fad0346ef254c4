package artifact

import (
	"fmt"
	"strconv"
	"strings"
)

// LatestAlias resolves to the highest committed version of an artifact.
const LatestAlias = "latest"

// Ref identifies an artifact version, and optionally one of its files, in the
// form "name[:alias][/file]".
type Ref struct {
	Name  string
	Alias string
	File  string
}

// ParseRef parses a reference string. A missing alias means "latest".
func ParseRef(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	var ref Ref

	head, file, hasFile := strings.Cut(s, "/")
	if hasFile {
		if file == "" || strings.Contains(file, "/") {
			return Ref{}, fmt.Errorf("%w: %q: bad file component", ErrInvalidRef, s)
		}
		ref.File = file
	}

	name, alias, hasAlias := strings.Cut(head, ":")
	if !hasAlias {
		alias = LatestAlias
	}
	if err := ValidateName(name); err != nil {
		return Ref{}, fmt.Errorf("%w: %q: %v", ErrInvalidRef, s, err)
	}
	if alias != LatestAlias {
		if _, ok := parseVersionAlias(alias); !ok {
			return Ref{}, fmt.Errorf("%w: %q: alias must be %q or v<N>", ErrInvalidRef, s, LatestAlias)
		}
	}
	ref.Name = name
	ref.Alias = alias
	return ref, nil
}

// String renders the reference back into its canonical form.
func (r Ref) String() string {
	s := r.Name + ":" + r.Alias
	if r.File != "" {
		s += "/" + r.File
	}
	return s
}

// IsLatest reports whether the reference floats to the newest version.
func (r Ref) IsLatest() bool {
	return r.Alias == LatestAlias
}

// Version returns the pinned version number, if any.
func (r Ref) Version() (int, bool) {
	return parseVersionAlias(r.Alias)
}

// VersionAlias returns the alias of a concrete version number.
func VersionAlias(n int) string {
	return "v" + strconv.Itoa(n)
}

func parseVersionAlias(alias string) (int, bool) {
	digits, ok := strings.CutPrefix(alias, "v")
	if !ok || digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 || strconv.Itoa(n) != digits {
		return 0, false
	}
	return n, true
}

// ValidateName checks an artifact or file name. Names become path segments
// in every store backend, so separators and dot segments are rejected.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("name is empty")
	case name == "." || name == "..":
		return fmt.Errorf("name %q is reserved", name)
	case strings.ContainsAny(name, `/\:`):
		return fmt.Errorf("name %q contains a separator", name)
	case strings.TrimSpace(name) != name:
		return fmt.Errorf("name %q has surrounding whitespace", name)
	}
	return nil
}
