package hostfile

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"hostd/internal/hosterr"
)

// ToolRegistry names the external resolver binary invoked for a given
// hostName, loaded from a `hosttools.toml` file. spec.md §7 names
// "host name refers to a non-existent tool" as an InvalidValue case;
// this is the lookup that case is checking against.
type ToolRegistry struct {
	Tools map[string]ToolEntry `toml:"tool"`
}

// ToolEntry is one named tool's resolver binary and arguments.
type ToolEntry struct {
	Binary string   `toml:"binary"`
	Args   []string `toml:"args"`
}

// LoadToolRegistry reads and parses a hosttools.toml file.
func LoadToolRegistry(path string) (ToolRegistry, error) {
	var reg ToolRegistry
	if _, err := toml.DecodeFile(path, &reg); err != nil {
		return ToolRegistry{}, fmt.Errorf("hostfile: decode tool registry %s: %w", path, err)
	}
	return reg, nil
}

// Resolve looks up a tool by name, returning an InvalidValue-classified
// error when it is not registered.
func (r ToolRegistry) Resolve(name string) (ToolEntry, error) {
	entry, ok := r.Tools[name]
	if !ok {
		return ToolEntry{}, hosterr.New(hosterr.InvalidValue, "host name refers to a non-existent tool %q", name)
	}
	return entry, nil
}
