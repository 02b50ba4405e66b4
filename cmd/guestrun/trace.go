package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/wasmgate/proxyguest/emulator"
	"github.com/wasmgate/proxyguest/types"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	eventStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD166"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

func section(name string) {
	fmt.Println()
	fmt.Println(titleStyle.Render(name))
}

func event(format string, args ...any) {
	fmt.Println(eventStyle.Render("→ " + fmt.Sprintf(format, args...)))
}

func result(format string, args ...any) {
	fmt.Println(resultStyle.Render("  " + fmt.Sprintf(format, args...)))
}

func levelStyle(level types.LogLevel) lipgloss.Style {
	switch {
	case level >= types.LogLevelError:
		return errorStyle
	case level == types.LogLevelWarn:
		return warnStyle
	default:
		return dimStyle
	}
}

func printSideEffects(state *emulator.Host) {
	if logged := state.Logged(); len(logged) > 0 {
		section("plugin logs")
		for _, entry := range logged {
			fmt.Println(levelStyle(entry.Level).Render(
				fmt.Sprintf("[%s] %s", entry.Level, entry.Message)))
		}
	}

	if responses := state.LocalResponses(); len(responses) > 0 {
		section("local responses")
		for _, r := range responses {
			result("HTTP %d %s (%d header(s), %d body byte(s))",
				r.StatusCode, r.StatusDetails, len(r.Headers), len(r.Body))
		}
	}

	if ops := state.StreamOps(); len(ops) > 0 {
		section("stream operations")
		for _, op := range ops {
			verb := "continue"
			if op.Close {
				verb = "close"
			}
			result("%s %v", verb, op.Type)
		}
	}

	if pending := state.PendingCalls(); len(pending) > 0 {
		section("unresolved callouts")
		for _, call := range pending {
			fmt.Println(warnStyle.Render(fmt.Sprintf(
				"  token=%d upstream=%s timeout=%dms", call.Token, call.Upstream, call.TimeoutMillis)))
		}
	}
}
