// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package shared

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/tombee/sinitc/internal/registry"
)

// CLI style colors using lipgloss
var (
	// StatusOK styles success indicators
	StatusOK = lipgloss.NewStyle().Foreground(lipgloss.Color("42")) // green

	// StatusWarn styles warning indicators
	StatusWarn = lipgloss.NewStyle().Foreground(lipgloss.Color("214")) // orange

	// StatusError styles error indicators
	StatusError = lipgloss.NewStyle().Foreground(lipgloss.Color("196")) // red

	// Muted styles secondary/less important text
	Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("245")) // gray

	// Bold styles emphasized text
	Bold = lipgloss.NewStyle().Bold(true)

	// Header styles section headers
	Header = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")) // blue bold
)

// Symbols for status indicators
const (
	SymbolOK    = "✓"
	SymbolWarn  = "⚠"
	SymbolError = "✗"
)

// StatusPrefix starts every status line.
const StatusPrefix = "[sinitc]"

// RenderOK renders a success message with green checkmark
func RenderOK(msg string) string {
	return StatusOK.Render(SymbolOK) + " " + msg
}

// RenderWarn renders a warning message with orange symbol
func RenderWarn(msg string) string {
	return StatusWarn.Render(SymbolWarn) + " " + msg
}

// RenderError renders an error message with red X
func RenderError(msg string) string {
	return StatusError.Render(SymbolError) + " " + msg
}

// RenderStatusLine renders "[sinitc] <name> >>> <State>". Styling is only
// applied when styled is true so piped output stays plain.
func RenderStatusLine(st registry.Status, styled bool) string {
	return renderLine(st.Name, st.Label(), stateStyle(st), styled)
}

// RenderActionLine renders "[sinitc] <name> >>> <action>" for an action
// about to be taken on a service.
func RenderActionLine(name, action string, styled bool) string {
	return renderLine(name, action, Header, styled)
}

func renderLine(name, label string, style lipgloss.Style, styled bool) string {
	if !styled {
		return fmt.Sprintf("%s %s >>> %s", StatusPrefix, name, label)
	}
	return fmt.Sprintf("%s %s >>> %s",
		Muted.Render(StatusPrefix), Bold.Render(name), style.Render(label))
}

func stateStyle(st registry.Status) lipgloss.Style {
	switch {
	case st.Running():
		return StatusOK
	case st.State == registry.StateStopped:
		return Muted
	case st.State == registry.StateZombie:
		return StatusWarn
	}
	return StatusError
}
