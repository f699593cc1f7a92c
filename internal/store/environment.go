package store

import (
	"runtime"
	"runtime/debug"
	"sort"
)

// Environment records the build that produced a run.
type Environment struct {
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`

	// Module and Version identify the main module, when build info is available.
	Module  string `json:"module,omitempty"`
	Version string `json:"version,omitempty"`

	// Dependencies maps module path to version.
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// CurrentEnvironment describes the running binary.
func CurrentEnvironment() Environment {
	env := Environment{
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return env
	}
	env.Module = info.Main.Path
	env.Version = info.Main.Version
	if len(info.Deps) > 0 {
		env.Dependencies = make(map[string]string, len(info.Deps))
		for _, d := range info.Deps {
			v := d.Version
			if d.Replace != nil {
				v = d.Replace.Path + "@" + d.Replace.Version
			}
			env.Dependencies[d.Path] = v
		}
	}
	return env
}

// DependencyPaths returns the recorded module paths in sorted order.
func (e Environment) DependencyPaths() []string {
	paths := make([]string, 0, len(e.Dependencies))
	for p := range e.Dependencies {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
