package main

import (
	"encoding/json"
	"fmt"
	"io"

	"ripple/internal/diag"
	"ripple/internal/observ"
	"ripple/internal/source"
)

func printPhaseTimings(out io.Writer, report observ.Report) {
	if out == nil || len(report.Phases) == 0 {
		return
	}
	for _, phase := range report.Phases {
		if phase.Note != "" {
			fmt.Fprintf(out, "%s %.1f ms (%s)\n", phase.Name, phase.DurationMS, phase.Note)
			continue
		}
		fmt.Fprintf(out, "%s %.1f ms\n", phase.Name, phase.DurationMS)
	}
	fmt.Fprintf(out, "total %.1f ms\n", report.TotalMS)
}

// appendTimingDiagnostic mirrors the timings into the workspace bag so JSON
// consumers see them without a separate channel. The note carries the raw
// payload.
func appendTimingDiagnostic(bag *diag.Bag, report observ.Report) {
	if bag == nil || len(report.Phases) == 0 {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		return
	}
	msg := fmt.Sprintf("timings: total %.2f ms", report.TotalMS)
	bag.Add(diag.New(diag.SevInfo, diag.ObsTimings, source.Span{}, msg).
		WithNote(source.Span{}, string(data)))
}
