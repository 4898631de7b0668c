// SPDX-License-Identifier: MPL-2.0

package environ

import (
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/Advantech-EECC/modular-bsp-build/internal/pathres"
	"github.com/Advantech-EECC/modular-bsp-build/internal/registry"

	"github.com/charmbracelet/log"
)

// Well-known keys whose values name filesystem paths.
const (
	DownloadDir  = "DL_DIR"
	SstateDir    = "SSTATE_DIR"
	GitConfigKey = "GITCONFIG_FILE"
)

// PathKeys are the keys checked by Validate.
var PathKeys = []string{DownloadDir, SstateDir, GitConfigKey}

// PathWarning reports a well-known path variable that points nowhere.
type PathWarning struct {
	Key  string
	Path string
}

// Bind expands each variable and writes it into a copy of base. Later
// variables win over earlier ones and over base.
func (e *Expander) Bind(vars []registry.Variable, base map[string]string) map[string]string {
	env := make(map[string]string, len(base)+len(vars))
	maps.Copy(env, base)
	for _, v := range vars {
		env[v.Name] = e.Expand(v.Value)
	}
	return env
}

// Validate checks that the well-known path keys present in env name existing
// paths. Missing paths are logged and returned; they are never an error
// because the build may create them.
func Validate(env map[string]string, logger *log.Logger) []PathWarning {
	var warnings []PathWarning
	for _, key := range PathKeys {
		path, ok := env[key]
		if !ok || path == "" {
			continue
		}
		if !pathres.Exists(path) {
			warnings = append(warnings, PathWarning{Key: key, Path: path})
			if logger != nil {
				logger.Warn("path does not exist", "key", key, "path", path)
			}
		}
	}
	return warnings
}

// FromOS returns the process environment as a map.
func FromOS() map[string]string {
	return FromList(os.Environ())
}

// FromList parses KEY=VALUE pairs. Entries without a key are skipped.
func FromList(pairs []string) map[string]string {
	env := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env
}

// List renders env as sorted KEY=VALUE pairs for exec.Cmd.Env.
func List(env map[string]string) []string {
	pairs := make([]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		pairs = append(pairs, k+"="+env[k])
	}
	return pairs
}
