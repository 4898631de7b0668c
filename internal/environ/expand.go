// SPDX-License-Identifier: MPL-2.0

package environ

import (
	"regexp"
	"strings"

	"github.com/Advantech-EECC/modular-bsp-build/internal/logging"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/syntax"
)

var (
	// envRef matches $ENV{NAME}. NAME is anything up to the first closing brace.
	envRef = regexp.MustCompile(`\$ENV\{([^}]+)\}`)

	// plainRef matches $NAME and ${NAME} in text the shell parser rejects.
	plainRef = regexp.MustCompile(`\$(?:([A-Za-z_][A-Za-z0-9_]*)|\{([A-Za-z_][A-Za-z0-9_]*)\})`)
)

// Expander expands variable values against a fixed ambient snapshot.
type Expander struct {
	ambient map[string]string
	logger  *log.Logger
}

// NewExpander returns an Expander over ambient. The map is not copied and must not be modified while in use.
func NewExpander(ambient map[string]string, logger *log.Logger) *Expander {
	if ambient == nil {
		ambient = map[string]string{}
	}
	return &Expander{ambient: ambient, logger: logging.Ensure(logger)}
}

// Expand expands value, logging a warning for each $ENV{NAME} absent from the ambient snapshot.
func (e *Expander) Expand(value string) string {
	out, missing := Expand(value, e.ambient)
	for _, name := range missing {
		e.logger.Warn("environment variable not set, using empty value", "name", name)
	}
	return out
}

// Expand replaces $ENV{NAME} with ambient[NAME], or "" when NAME is absent,
// then expands plain $NAME and ${NAME} references that ambient defines.
// Unknown plain references and any other shell syntax are left as written.
// Substituted values are never re-scanned. The names of absent $ENV
// references are returned in order of appearance.
func Expand(value string, ambient map[string]string) (string, []string) {
	if !strings.Contains(value, "$") {
		return value, nil
	}

	var (
		sb      strings.Builder
		missing []string
		last    int
	)
	for _, m := range envRef.FindAllStringSubmatchIndex(value, -1) {
		sb.WriteString(expandShell(value[last:m[0]], ambient))

		name := value[m[2]:m[3]]
		if v, ok := ambient[name]; ok {
			sb.WriteString(v)
		} else {
			missing = append(missing, name)
		}
		last = m[1]
	}
	sb.WriteString(expandShell(value[last:], ambient))

	return sb.String(), missing
}

// expandShell substitutes simple parameter expansions in s. Text that does not
// parse as a shell word falls back to a plain scan for $NAME and ${NAME}.
func expandShell(s string, ambient map[string]string) string {
	if !strings.Contains(s, "$") {
		return s
	}

	word, err := syntax.NewParser().Document(strings.NewReader(s))
	if err != nil {
		return expandPlain(s, ambient)
	}

	var (
		sb   strings.Builder
		last int
	)
	for _, part := range word.Parts {
		pe, ok := part.(*syntax.ParamExp)
		if !ok || !isSimpleParam(pe) {
			continue
		}
		v, ok := ambient[pe.Param.Value]
		if !ok {
			continue
		}

		start, end := int(pe.Pos().Offset()), int(pe.End().Offset())
		if start < last || end > len(s) {
			continue
		}
		sb.WriteString(s[last:start])
		sb.WriteString(v)
		last = end
	}
	sb.WriteString(s[last:])

	return sb.String()
}

// expandPlain replaces $NAME and ${NAME} that ambient defines and keeps everything else.
func expandPlain(s string, ambient map[string]string) string {
	var (
		sb   strings.Builder
		last int
	)
	for _, m := range plainRef.FindAllStringSubmatchIndex(s, -1) {
		var name string
		if m[2] >= 0 {
			name = s[m[2]:m[3]]
		} else {
			name = s[m[4]:m[5]]
		}
		v, ok := ambient[name]
		if !ok {
			continue
		}
		sb.WriteString(s[last:m[0]])
		sb.WriteString(v)
		last = m[1]
	}
	sb.WriteString(s[last:])

	return sb.String()
}

// isSimpleParam reports whether pe is a bare $NAME or ${NAME}.
func isSimpleParam(pe *syntax.ParamExp) bool {
	return pe.Param != nil &&
		!pe.Excl && !pe.Length &&
		pe.Index == nil && pe.Slice == nil && pe.Repl == nil && pe.Exp == nil
}
