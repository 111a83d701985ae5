package interpolation

import (
	"fmt"
	"strings"
	"time"
)

// ProgressCallback is a function that reports progress during a fit.
// If message is not empty it should be displayed to the user; otherwise
// completed and total update a progress indicator.
type ProgressCallback func(completed, total int, message string)

// progress reports through a callback when one is set, otherwise prints to
// stdout when verbose.
type progress struct {
	callback  ProgressCallback
	verbose   bool
	startTime time.Time
}

func (p *progress) reset() { p.startTime = time.Now() }

func (p *progress) report(completed, total int, message string) {
	if p.callback != nil {
		p.callback(completed, total, message)
		return
	}
	if !p.verbose {
		return
	}
	if message != "" && total == 0 {
		// Informational message, not a progress update
		fmt.Println(message)
		return
	}
	if total <= 0 {
		return
	}
	percentage := float64(completed) / float64(total) * 100
	if percentage > 100 {
		percentage = 100
	}

	const width = 40
	numBars := int(percentage / 100 * width)
	bar := "[" + strings.Repeat("█", numBars) + strings.Repeat("░", width-numBars) + "]"

	statusInfo := ""
	if message != "" {
		statusInfo = " | " + message
	}
	if !p.startTime.IsZero() {
		elapsed := time.Since(p.startTime)
		fmt.Printf("\r%s %.1f%% (%d/%d) [%.1fs elapsed%s]", bar, percentage, completed, total, elapsed.Seconds(), statusInfo)
	} else {
		fmt.Printf("\r%s %.1f%% (%d/%d)%s", bar, percentage, completed, total, statusInfo)
	}
	if completed >= total {
		fmt.Println()
	}
}
