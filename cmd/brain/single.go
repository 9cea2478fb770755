// Single-shot mode: send one prompt, print the response, exit.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"brain/cmd/brain/ui"
	"brain/internal/session"
	"brain/internal/types"
)

const singleShotTimeout = 5 * time.Minute

func runSingle(cmd *cobra.Command, prompt string) error {
	if deepFlag && allFlag {
		return fmt.Errorf("--deep and --all are mutually exclusive")
	}

	a, err := newApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	mode := session.ModeSingle
	if deepFlag {
		mode = session.ModeDeep
	} else if allFlag {
		mode = session.ModeFanOut
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), singleShotTimeout)
	defer cancel()

	turn, err := a.ctrl.RunTurn(ctx, prompt, mode)
	if err != nil {
		return err
	}

	styles := ui.DefaultStyles()
	out := formatTurn(styles, turn)
	fmt.Println(out)

	if outputFlag != "" {
		if err := writeTranscript(outputFlag, prompt, turn); err != nil {
			return fmt.Errorf("writing %s: %w", outputFlag, err)
		}
		fmt.Fprintf(os.Stderr, "Saved to %s\n", outputFlag)
	}
	return nil
}

// formatTurn renders a completed turn for the terminal. Deep mode shows the
// per-backend responses before the synthesis; fan-out mode shows each
// backend's response under its own heading.
func formatTurn(styles ui.Styles, turn session.TurnResult) string {
	var sb strings.Builder

	switch turn.Mode {
	case session.ModeFanOut:
		for _, name := range sortedBackends(turn.PerBackend) {
			res := turn.PerBackend[name]
			sb.WriteString(backendHeading(styles, name, res))
			sb.WriteString("\n")
			sb.WriteString(renderMarkdown(res.Content))
			sb.WriteString("\n")
		}
	case session.ModeDeep:
		for _, name := range sortedBackends(turn.PerBackend) {
			res := turn.PerBackend[name]
			sb.WriteString(backendHeading(styles, name, res))
			sb.WriteString("\n")
			sb.WriteString(renderMarkdown(res.Content))
			sb.WriteString("\n")
		}
		sb.WriteString(styles.Title.Render("Synthesis"))
		sb.WriteString("\n")
		sb.WriteString(renderMarkdown(turn.Result.Content))
	default:
		if turn.Result.Failed {
			sb.WriteString(styles.Error.Render(fmt.Sprintf("%s failed", turn.Result.Backend)))
			sb.WriteString("\n")
		}
		sb.WriteString(renderMarkdown(turn.Result.Content))
	}

	return strings.TrimRight(sb.String(), "\n")
}

func backendHeading(styles ui.Styles, name string, res types.Result) string {
	badge := styles.BackendBadge.Render(name)
	if res.Failed {
		return badge + " " + styles.Error.Render("failed")
	}
	if res.Model != "" {
		return badge + " " + styles.Muted.Render(res.Model)
	}
	return badge
}

// renderMarkdown renders content for the terminal, falling back to plain
// text when glamour cannot handle it.
func renderMarkdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = content
		}
	}()

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return content
	}
	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// writeTranscript appends the exchange to path as a plain-text transcript.
func writeTranscript(path, prompt string, turn session.TurnResult) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	var sb strings.Builder
	sb.WriteString("Question:\n")
	sb.WriteString(prompt)
	sb.WriteString("\n\n")

	if turn.Mode == session.ModeFanOut {
		for _, name := range sortedBackends(turn.PerBackend) {
			res := turn.PerBackend[name]
			sb.WriteString(fmt.Sprintf("Response (%s):\n", name))
			sb.WriteString(res.Content)
			sb.WriteString("\n\n")
		}
	} else {
		sb.WriteString(fmt.Sprintf("Response (%s):\n", turn.Result.Backend))
		sb.WriteString(turn.Result.Content)
		sb.WriteString("\n\n")
	}

	_, err = f.WriteString(sb.String())
	return err
}

func sortedBackends(m map[string]types.Result) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
