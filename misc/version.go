// Package misc keeps program identity shared by all commands.
package misc

import (
	"os"
	"path/filepath"
	"strings"
)

// Set by the linker: -X codepanel/misc.version=... -X codepanel/misc.gitHash=...
var (
	version = "dev"
	gitHash = "unknown"
)

func GetAppName() string {
	return strings.TrimSuffix(filepath.Base(os.Args[0]), filepath.Ext(os.Args[0]))
}

func GetVersion() string {
	return version
}

func GetGitHash() string {
	return gitHash
}
