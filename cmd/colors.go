package cmd

import (
	"fmt"

	"github.com/fatih/color"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
)

// formatRatio colors "n/total": green when all, yellow when some, red when none.
func formatRatio(n, total int) string {
	s := fmt.Sprintf("%d/%d", n, total)
	switch {
	case total == 0:
		return s
	case n == total:
		return colorSuccess(s)
	case n == 0:
		return colorError(s)
	default:
		return colorWarn(s)
	}
}
