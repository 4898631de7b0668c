// SPDX-License-Identifier: MPL-2.0

package environ

import (
	"bytes"
	"slices"
	"strings"
	"testing"

	"github.com/Advantech-EECC/modular-bsp-build/internal/logging"
)

func TestExpand(t *testing.T) {
	ambient := map[string]string{
		"FOO":  "/x",
		"BAR":  "y",
		"HOME": "/home/builder",
		"LOOP": "$FOO",
		"ENVY": "$ENV{FOO}",
	}

	tests := []struct {
		name        string
		value       string
		want        string
		wantMissing []string
	}{
		{"plain text", "build/imx8", "build/imx8", nil},
		{"env pattern and shell var", "$ENV{FOO}/$BAR", "/x/y", nil},
		{"missing env pattern", "$ENV{MISSING}", "", []string{"MISSING"}},
		{"missing env pattern inside path", "$ENV{NOPE}/downloads", "/downloads", []string{"NOPE"}},
		{"braced shell var", "${HOME}/yocto/sstate", "/home/builder/yocto/sstate", nil},
		{"unknown shell vars stay", "$UNSET/${ALSO_UNSET}", "$UNSET/${ALSO_UNSET}", nil},
		{"empty env pattern stays literal", "$ENV{}", "$ENV{}", nil},
		{"operators stay", "${FOO:-fallback} ${#BAR}", "${FOO:-fallback} ${#BAR}", nil},
		{"command substitution stays", "$(id -u)-$BAR", "$(id -u)-y", nil},
		{"no rescan of shell result", "$LOOP", "$FOO", nil},
		{"no rescan of env result", "$ENV{LOOP}:$ENV{ENVY}", "$FOO:$ENV{FOO}", nil},
		{"repeated and mixed", "$ENV{BAR}$BAR${BAR}", "yyy", nil},
		{"unparsable shell text still expands", "`unterminated $BAR", "`unterminated y", nil},
		{"stray command substitution", "$HOME/$(oops", "/home/builder/$(oops", nil},
		{"unbalanced brace", "$HOME ${BAR", "/home/builder ${BAR", nil},
		{"unparsable keeps unknown names", "${BAR}/$UNSET/$(", "y/$UNSET/$(", nil},
		{"multiple missing in order", "$ENV{B}$ENV{A}", "", []string{"B", "A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, missing := Expand(tt.value, ambient)
			if got != tt.want {
				t.Errorf("Expand(%q) = %q, want %q", tt.value, got, tt.want)
			}
			if !slices.Equal(missing, tt.wantMissing) {
				t.Errorf("missing = %v, want %v", missing, tt.wantMissing)
			}
		})
	}
}

func TestExpander_WarnsOnMissing(t *testing.T) {
	var logs bytes.Buffer
	e := NewExpander(map[string]string{}, logging.New(logging.Options{Writer: &logs, NoColor: true}))

	if got := e.Expand("$ENV{MISSING}"); got != "" {
		t.Errorf("Expand() = %q, want empty", got)
	}
	if !strings.Contains(logs.String(), "MISSING") {
		t.Errorf("expected a warning naming MISSING:\n%s", logs.String())
	}
}

func TestNewExpander_NilAmbient(t *testing.T) {
	if got := NewExpander(nil, nil).Expand("$ENV{X}$Y"); got != "$Y" {
		t.Errorf("Expand() = %q, want %q", got, "$Y")
	}
}
