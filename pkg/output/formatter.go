package output

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Summary describes a written diagram
type Summary struct {
	Output    string     // Written file, empty for standard output
	Tables    int        // Tables drawn
	Relations int        // Relations drawn
	Skipped   []string   // Relations dropped because an endpoint is not drawn ("a.B -> c.D")
	Cycles    [][]string // Reference cycles between drawn models
}

// PrintSummary prints a nicely formatted report of the written diagram with colors
func PrintSummary(w io.Writer, s Summary) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	bold.Fprintln(w, "Model Diagram Summary")
	bold.Fprintln(w, "=====================")
	if s.Output != "" {
		fmt.Fprintf(w, "Output: %s\n", s.Output)
	}
	fmt.Fprintf(w, "Tables: %d\n", s.Tables)
	fmt.Fprintf(w, "Relations: %d\n", s.Relations)

	if len(s.Skipped) == 0 {
		green.Fprintln(w, "Skipped relations: 0")
	} else {
		yellow.Fprintf(w, "Skipped relations: %d (endpoint not drawn)\n", len(s.Skipped))
		for _, r := range s.Skipped {
			fmt.Fprintf(w, "  %s\n", r)
		}
	}

	if len(s.Cycles) > 0 {
		fmt.Fprintln(w)
		cyan.Fprintf(w, "REFERENCE CYCLES (%d):\n", len(s.Cycles))
		for _, c := range s.Cycles {
			fmt.Fprintf(w, "  %s\n", formatCycle(c))
		}
	}
}

func formatCycle(labels []string) string {
	if len(labels) == 1 {
		return labels[0] + " -> " + labels[0]
	}
	out := ""
	for i, l := range labels {
		if i > 0 {
			out += " <-> "
		}
		out += l
	}
	return out
}

// PrintModelList prints model labels one per line, in a form suitable for exclusion lists
func PrintModelList(w io.Writer, labels []string) error {
	for _, l := range labels {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
