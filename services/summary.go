package services

import (
	"fmt"
	"sort"
	"strings"

	"ettu-nearby/models"
	"ettu-nearby/utils"
)

type SummaryService struct {
	logger *utils.Logger
}

func NewSummaryService(logger *utils.Logger) *SummaryService {
	return &SummaryService{logger: logger}
}

func (s *SummaryService) Generate(cat *Catalog) *models.CatalogSummary {
	report := &models.CatalogSummary{
		StationsByLetter: make(map[string]int),
	}
	if cat == nil {
		return report
	}

	report.TotalStations = len(cat.Stations)
	report.CrawlErrors = cat.CrawlErrors
	report.Unjoinable = cat.Unjoinable
	report.Duplicates = cat.Duplicates

	for i := range cat.Stations {
		st := &cat.Stations[i]
		if !st.HasCoords() {
			report.UnknownCoords++
		}
		if len(st.Names) > 1 {
			report.MultiRouteStops++
		}
		if report.BusiestStop == nil || len(st.Names) > len(report.BusiestStop.Names) {
			report.BusiestStop = st
		}
		report.StationsByLetter[st.Letter]++
	}

	if report.UnknownCoords > 0 {
		s.logger.Warn("[summary] %d stations have no map marker", report.UnknownCoords)
	}
	return report
}

func (s *SummaryService) Print(r *models.CatalogSummary) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  🚋 STATION CATALOG\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("\033[1;33m  Overview\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Stations               : \033[1m%d\033[0m\n", r.TotalStations)
	fmt.Printf("  Without coordinates    : \033[1m%d\033[0m\n", r.UnknownCoords)
	fmt.Printf("  On several route lists : \033[1m%d\033[0m\n", r.MultiRouteStops)
	fmt.Println()

	fmt.Printf("\033[1;33m  Dropped records\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Crawl errors : %d\n", r.CrawlErrors)
	fmt.Printf("  Unjoinable   : %d\n", r.Unjoinable)
	fmt.Printf("  Duplicates   : %d\n", r.Duplicates)
	fmt.Println()

	if r.BusiestStop != nil {
		fmt.Printf("\033[1;33m  Stop on most route lists\033[0m\n")
		fmt.Printf("  %s\n", thin)
		fmt.Printf("  %s\n", truncate(strings.Join(r.BusiestStop.Names, ", "), 50))
		fmt.Printf("  District : %s (%d lists)\n", r.BusiestStop.Letter, len(r.BusiestStop.Names))
		fmt.Println()
	}

	fmt.Printf("\033[1;33m  Stations by district\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.StationsByLetter) == 0 {
		fmt.Printf("  No stations\n")
	} else {
		type letterCount struct {
			letter string
			count  int
		}
		var letters []letterCount
		for l, cnt := range r.StationsByLetter {
			letters = append(letters, letterCount{l, cnt})
		}
		sort.Slice(letters, func(i, j int) bool {
			if letters[i].count != letters[j].count {
				return letters[i].count > letters[j].count
			}
			return letters[i].letter < letters[j].letter
		})
		for _, lc := range letters {
			bar := strings.Repeat("█", min(lc.count, 40))
			fmt.Printf("  %-12s %s (%d)\n", truncate(lc.letter, 12), bar, lc.count)
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
