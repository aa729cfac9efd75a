// Package compileinfo reports the module version and VCS state a binary was
// built from.
package compileinfo

import (
	"fmt"
	"os"
	"runtime/debug"
)

type CompileInfo struct {
	Binary     string
	Module     string
	Version    string
	GoVersion  string
	Commit     string
	CommitTime string
	Modified   bool
}

func (c CompileInfo) String() string {
	if c.Binary == "" {
		return "Build information is unavailable for this binary."
	}

	version := c.Version
	if version == "" || version == "(devel)" {
		version = "a development build"
	}

	commit := ""
	if c.Commit != "" {
		commit = fmt.Sprintf(" at commit %s (%s)", c.Commit, c.CommitTime)
		if c.Modified {
			commit += " with uncommitted changes"
		}
	}

	return fmt.Sprintf("%s from %s, %s, built with %s%s.", c.Binary, c.Module, version, c.GoVersion, commit)
}

func Get() CompileInfo {
	out := CompileInfo{}

	z, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}

	out.Binary = z.Path
	out.Module = z.Main.Path
	out.Version = z.Main.Version
	out.GoVersion = z.GoVersion
	for _, s := range z.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Commit = s.Value
		case "vcs.time":
			out.CommitTime = s.Value
		case "vcs.modified":
			out.Modified = s.Value == "true"
		}
	}

	return out
}

func PrintToStdErr() {
	fmt.Fprintln(os.Stderr, Get())
}
