package core

import (
	"errors"
	"fmt"
)

// Level identifies a depth in the taxonomy tree.
type Level string

// Taxonomy levels.
const (
	LevelCategory Level = "category"
	LevelService  Level = "service"
)

// ErrEmptyName is returned when a category or service name is empty.
var ErrEmptyName = errors.New("empty name")

// DuplicateNameError reports a name collision within one taxonomy level.
// Callers decide whether to drop or rename; the taxonomy is never merged.
type DuplicateNameError struct {
	Name  string
	Level Level
	// Parent is the owning category for service collisions, empty otherwise.
	Parent string
}

func (e *DuplicateNameError) Error() string {
	if e.Parent != "" {
		return fmt.Sprintf("duplicate %s name %q in category %q", e.Level, e.Name, e.Parent)
	}
	return fmt.Sprintf("duplicate %s name %q", e.Level, e.Name)
}
