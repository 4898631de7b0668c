// SPDX-License-Identifier: MPL-2.0

package issue

import "errors"

// Error kinds. Typed errors across the module unwrap to exactly one of these
// so callers can branch with errors.Is without knowing the concrete type.
var (
	// ErrConfiguration marks a malformed or invalid registry or tool config,
	// including references to targets or containers the registry does not define.
	ErrConfiguration = errors.New("configuration error")

	// ErrResolution marks a configuration or include file that cannot be located.
	ErrResolution = errors.New("resolution error")

	// ErrEnvironment marks an environment that cannot support the requested operation.
	ErrEnvironment = errors.New("environment error")

	// ErrExternalTool marks a missing, failing or unresponsive external program.
	ErrExternalTool = errors.New("external tool error")

	// ErrBuild marks a failure of the build lifecycle itself.
	ErrBuild = errors.New("build error")
)

var kinds = []error{ErrBuild, ErrExternalTool, ErrResolution, ErrConfiguration, ErrEnvironment}

// KindOf returns the most specific kind sentinel matched by err, or nil.
// ErrBuild wins over ErrExternalTool because a failed build usually wraps
// the tool failure that caused it.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
