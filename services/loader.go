package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"ettu-nearby/models"
	"ettu-nearby/utils"
)

// DataIntegrityError reports a structurally malformed catalog input.
// The catalog cannot be built when one is returned.
type DataIntegrityError struct {
	Index int // position in the "main" array, -1 for document-level problems
	Field string
	Msg   string
}

func (e *DataIntegrityError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("catalog: %s", e.Msg)
	}
	return fmt.Sprintf("catalog: record %d: %s: %s", e.Index, e.Field, e.Msg)
}

// CrawlFlag is the crawler's per-stop error marker. The crawler writes the
// strings "True"/"False"; JSON booleans are accepted too.
type CrawlFlag bool

func (f *CrawlFlag) UnmarshalJSON(b []byte) error {
	var v bool
	if err := json.Unmarshal(b, &v); err == nil {
		*f = CrawlFlag(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("error flag must be a bool or string, got %s", b)
	}
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("error flag %q is not a boolean", s)
	}
	*f = CrawlFlag(v)
	return nil
}

// RawRecord is one crawler record. Pointer fields distinguish a missing key
// from an empty value.
type RawRecord struct {
	Level        int        `json:"level" validate:"oneof=1 2 3"`
	Link         *string    `json:"link" validate:"required_unless=Level 3"`
	Name         *string    `json:"name" validate:"required_unless=Level 3"`
	ParentURL    *string    `json:"parent_url" validate:"required_if=Level 2"`
	URL          *string    `json:"url" validate:"required_if=Level 3"`
	MarkerCoords *string    `json:"marker_coords" validate:"required_if=Level 3"`
	Error        *CrawlFlag `json:"error" validate:"required_if=Level 3"`
}

type rawDocument struct {
	Main []json.RawMessage `json:"main"`
}

// Loader reads the crawler's JSON document and partitions it by level.
type Loader struct {
	logger   *utils.Logger
	validate *validator.Validate
}

// NewLoader creates a Loader with the given logger.
func NewLoader(logger *utils.Logger) *Loader {
	return &Loader{logger: logger, validate: validator.New()}
}

// LoadFile opens path and calls Load on it.
func (l *Loader) LoadFile(path string) (*models.Levels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %q: %w", path, err)
	}
	defer f.Close()
	return l.Load(f)
}

// Load decodes the document and groups its records. Level-3 records flagged as
// crawl failures are dropped and counted. Source order is kept in every group.
func (l *Loader) Load(r io.Reader) (*models.Levels, error) {
	var doc rawDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, &DataIntegrityError{Index: -1, Msg: "decode: " + err.Error()}
	}
	if doc.Main == nil {
		return nil, &DataIntegrityError{Index: -1, Msg: `missing top-level "main" array`}
	}

	levels := &models.Levels{}
	for i, msg := range doc.Main {
		var rec RawRecord
		if err := json.Unmarshal(msg, &rec); err != nil {
			return nil, &DataIntegrityError{Index: i, Field: "record", Msg: err.Error()}
		}
		if err := l.check(i, &rec); err != nil {
			return nil, err
		}

		switch rec.Level {
		case 1:
			levels.Districts = append(levels.Districts, models.District{
				Link: *rec.Link,
				Name: *rec.Name,
			})
		case 2:
			levels.RouteGroups = append(levels.RouteGroups, models.RouteGroup{
				Link:      *rec.Link,
				ParentURL: *rec.ParentURL,
				Name:      *rec.Name,
			})
		case 3:
			if *rec.Error {
				levels.CrawlErrors++
				continue
			}
			lat, lon, err := ParseMarker(*rec.MarkerCoords)
			if err != nil {
				return nil, &DataIntegrityError{Index: i, Field: "marker_coords", Msg: err.Error()}
			}
			levels.Stops = append(levels.Stops, models.Stop{URL: *rec.URL, Lat: lat, Lon: lon})
		}
	}

	l.logger.Info("[loader] Parsed %d districts, %d route groups, %d stops. Errors count: %d",
		len(levels.Districts), len(levels.RouteGroups), len(levels.Stops), levels.CrawlErrors)
	return levels, nil
}

func (l *Loader) check(i int, rec *RawRecord) error {
	err := l.validate.Struct(rec)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		msg := "required for level " + strconv.Itoa(rec.Level)
		if fe.Tag() == "oneof" {
			msg = fmt.Sprintf("unknown level %d", rec.Level)
		}
		return &DataIntegrityError{Index: i, Field: jsonName(fe.StructField()), Msg: msg}
	}
	return &DataIntegrityError{Index: i, Field: "record", Msg: err.Error()}
}

func jsonName(field string) string {
	switch field {
	case "ParentURL":
		return "parent_url"
	case "MarkerCoords":
		return "marker_coords"
	case "URL":
		return "url"
	default:
		return strings.ToLower(field)
	}
}

// ParseMarker parses "lat,lon". An empty marker yields the unknown sentinel.
func ParseMarker(s string) (float64, float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.UnknownCoord, models.UnknownCoord, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("want \"lat,lon\", got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("latitude %q: %w", parts[0], err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("longitude %q: %w", parts[1], err)
	}
	return lat, lon, nil
}
