package models

import "time"

// UnknownCoord is stored in both Lat and Lon when the crawler recorded no map marker.
const UnknownCoord = -1.0

// District is a level-1 record: a letter/district entry of the site navigation.
type District struct {
	Link string
	Name string
}

// RouteGroup is a level-2 record. Its Link is shared with the stop page it leads to.
type RouteGroup struct {
	Link      string
	ParentURL string
	Name      string
}

// Stop is a level-3 record that survived the crawl.
type Stop struct {
	URL string
	Lat float64
	Lon float64
}

// Levels holds the raw dataset partitioned by hierarchy level.
type Levels struct {
	Districts   []District
	RouteGroups []RouteGroup
	Stops       []Stop
	CrawlErrors int
}

// Station is the joined, queryable catalog entry.
type Station struct {
	Letter    string   `json:"letter"`
	Names     []string `json:"names"`
	LetterURL string   `json:"letter_url"`
	URL       string   `json:"url"`
	Lat       float64  `json:"lat"`
	Lon       float64  `json:"lon"`
}

// HasCoords reports whether the station carries a real map marker.
func (s Station) HasCoords() bool {
	return !(s.Lat == UnknownCoord && s.Lon == UnknownCoord)
}

// Arrival is one group of cells from a stop page: route, distance, eta.
// The last group on a page may be short.
type Arrival struct {
	Cells []string `json:"cells"`
}

func (a Arrival) cell(i int) string {
	if i < len(a.Cells) {
		return a.Cells[i]
	}
	return ""
}

func (a Arrival) Route() string    { return a.cell(0) }
func (a Arrival) Distance() string { return a.cell(1) }
func (a Arrival) ETA() string      { return a.cell(2) }

// Complete reports whether all three cells are present.
func (a Arrival) Complete() bool { return len(a.Cells) == 3 }

// ArrivalReport is the structured content of a stop's live page.
// An empty Arrivals slice means nothing is approaching the stop.
type ArrivalReport struct {
	StopLabel     string    `json:"stop_label"`
	TransportType string    `json:"transport_type"`
	Arrivals      []Arrival `json:"arrivals"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// Candidate is a station ranked by distance to a query point.
type Candidate struct {
	Station        Station
	DistanceMeters float64
}

// StationReport is one element of a nearest-stops query result.
// Exactly one of Report and Err is set.
type StationReport struct {
	Station        Station
	DistanceMeters float64
	Report         *ArrivalReport
	Err            error
}

// CatalogSummary holds the computed counts over the built catalog.
type CatalogSummary struct {
	TotalStations    int
	UnknownCoords    int
	MultiRouteStops  int
	CrawlErrors      int
	Unjoinable       int
	Duplicates       int
	StationsByLetter map[string]int
	BusiestStop      *Station
}
