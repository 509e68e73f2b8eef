package api

import (
	"runtime/debug"

	"github.com/samber/lo"
)

// Version and VersionCommit identify the build; VersionCommit is read from the VCS stamp
var (
	Version       = "0.1.0"
	VersionCommit = ""
)

func init() {
	if i, ok := debug.ReadBuildInfo(); ok {
		if vcsv, ok := lo.Find(i.Settings, func(s debug.BuildSetting) bool {
			return s.Key == "vcs.revision"
		}); ok {
			VersionCommit = vcsv.Value
		}
	}
}

// VersionString is Version followed by the short commit hash when the build recorded one
func VersionString() string {
	if VersionCommit == "" {
		return Version
	}
	return Version + "+" + lo.Substring(VersionCommit, 0, 7)
}
