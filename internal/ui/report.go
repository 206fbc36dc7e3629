package ui

import (
	"fmt"
	"strings"
	"time"
)

// ResultLine renders one scenario result: badge, name and elapsed time.
func ResultLine(status, name string, elapsed time.Duration) string {
	return fmt.Sprintf("%s %s %s", Badge(status), name, Meta(elapsed.Round(time.Millisecond).String()))
}

// ColorDiff colors a cmp.Diff style diff: "-" lines (expected) red, "+"
// lines (got) green. Every line is indented by indent.
func ColorDiff(diff, indent string) string {
	var sb strings.Builder
	for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
		trimmed := strings.TrimLeft(line, " \t")
		switch {
		case strings.HasPrefix(trimmed, "-"):
			line = StyleError.Render(line)
		case strings.HasPrefix(trimmed, "+"):
			line = StyleSuccess.Render(line)
		default:
			line = StyleMeta.Render(line)
		}
		sb.WriteString(indent + line + "\n")
	}
	return sb.String()
}

// CallTree colors the "Script.method" heads of an indented call tree.
func CallTree(tree string) string {
	var sb strings.Builder
	for _, line := range strings.Split(strings.TrimRight(tree, "\n"), "\n") {
		body := strings.TrimLeft(line, " ")
		indent := line[:len(line)-len(body)]
		switch {
		case strings.HasPrefix(body, "["):
			sb.WriteString(indent + Meta(body))
		case strings.Contains(body, ": "):
			k, v, _ := strings.Cut(body, ": ")
			sb.WriteString(indent + Meta(k+":") + " " + Val(v))
		case strings.HasSuffix(body, ":"):
			sb.WriteString(indent + Meta(body))
		default:
			sb.WriteString(indent + ChainName(body))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// SummaryLine renders the totals of a run.
func SummaryLine(passed, failed, errored, skipped int) string {
	parts := []string{StyleSuccess.Render(fmt.Sprintf("%d passed", passed))}
	if failed > 0 {
		parts = append(parts, StyleError.Render(fmt.Sprintf("%d failed", failed)))
	}
	if errored > 0 {
		parts = append(parts, StyleError.Render(fmt.Sprintf("%d errored", errored)))
	}
	if skipped > 0 {
		parts = append(parts, StyleWarning.Render(fmt.Sprintf("%d skipped", skipped)))
	}
	return strings.Join(parts, Meta(", "))
}
