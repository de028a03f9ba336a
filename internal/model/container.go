package model

import (
	"fmt"
	"strings"
)

// ContainerKind distinguishes the pending and done halves of a module.
type ContainerKind string

const (
	KindPending ContainerKind = "todo"
	KindDone    ContainerKind = "done"
)

// Valid reports whether k is a known kind.
func (k ContainerKind) Valid() bool {
	return k == KindPending || k == KindDone
}

// Container identifies one ordering partition of tasks. It is never stored.
type Container struct {
	Kind     ContainerKind
	ModuleID string
}

// NewContainer builds a container key.
func NewContainer(kind ContainerKind, moduleID string) Container {
	return Container{Kind: kind, ModuleID: moduleID}
}

// String renders the key as "kind:moduleId".
func (c Container) String() string {
	return string(c.Kind) + ":" + c.ModuleID
}

// Contains reports whether the task belongs to the container.
func (c Container) Contains(t Task) bool {
	return t.ModuleID == c.ModuleID && t.Done() == (c.Kind == KindDone)
}

// ParseContainer parses a "kind:moduleId" key.
func ParseContainer(raw string) (Container, error) {
	kind, moduleID, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return Container{}, fmt.Errorf("container %q: missing separator", raw)
	}
	c := Container{Kind: ContainerKind(kind), ModuleID: moduleID}
	if !c.Kind.Valid() {
		return Container{}, fmt.Errorf("container %q: unknown kind %q", raw, kind)
	}
	if c.ModuleID == "" {
		return Container{}, fmt.Errorf("container %q: empty module id", raw)
	}
	return c, nil
}

// MarshalText lets containers travel as JSON strings.
func (c Container) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses the "kind:moduleId" form.
func (c *Container) UnmarshalText(b []byte) error {
	parsed, err := ParseContainer(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
