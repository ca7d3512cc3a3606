package services

import (
	"fmt"
	"strings"

	"ettu-nearby/models"
)

const (
	// NoTransportText is shown for a stop with nothing approaching.
	NoTransportText = "нет транспорта"
	// NoDataText is shown for a stop whose page could not be read.
	NoDataText = "нет данных"

	reportSeparator = "\n---\n"
)

// FormatReports renders query results as the plain-text reply sent to a user,
// one block per station in the given order.
func FormatReports(reports []models.StationReport) string {
	blocks := make([]string, len(reports))
	for i, r := range reports {
		blocks[i] = formatReport(r)
	}
	return strings.Join(blocks, reportSeparator)
}

func formatReport(r models.StationReport) string {
	if r.Err != nil || r.Report == nil {
		return fmt.Sprintf("%s (%s)\n%s", strings.Join(r.Station.Names, ", "), r.Station.Letter, NoDataText)
	}

	head := fmt.Sprintf("%s (%s)", r.Report.StopLabel, r.Report.TransportType)
	if len(r.Report.Arrivals) == 0 {
		return head + "\n" + NoTransportText
	}

	lines := make([]string, len(r.Report.Arrivals))
	for i, a := range r.Report.Arrivals {
		lines[i] = strings.TrimRight(fmt.Sprintf("%-10s%-10s%-10s", a.Route(), a.Distance(), a.ETA()), " ")
	}
	return head + "\n" + strings.Join(lines, "\n")
}
