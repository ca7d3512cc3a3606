package ettu

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ettu-nearby/models"
)

const (
	// mainLinkSelector matches the banner link back to the site index; its
	// text reads like "<- Трамваи" and names the transport type.
	mainLinkSelector = `a[href="/m/Main"]`
	// stopLabelSelector matches paragraphs that follow a heading at the same level.
	stopLabelSelector = "h1 ~ p, h2 ~ p, h3 ~ p, h4 ~ p, h5 ~ p, h6 ~ p"

	cellsPerArrival = 3
)

// ParsePage extracts an arrival report from a stop page. FetchedAt is left zero.
func ParsePage(r io.Reader) (*models.ArrivalReport, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return scrapeDocument(doc.Selection)
}

func scrapeDocument(doc *goquery.Selection) (*models.ArrivalReport, error) {
	transport, err := transportType(doc)
	if err != nil {
		return nil, err
	}
	label, err := stopLabel(doc)
	if err != nil {
		return nil, err
	}
	return &models.ArrivalReport{
		StopLabel:     label,
		TransportType: transport,
		Arrivals:      GroupCells(arrivalCells(doc)),
	}, nil
}

func transportType(doc *goquery.Selection) (string, error) {
	link := doc.Find(mainLinkSelector).First()
	if link.Length() == 0 {
		return "", fmt.Errorf("%w: no %s link", ErrPageShape, mainLinkSelector)
	}
	tokens := strings.Fields(link.Text())
	if len(tokens) < 2 {
		return "", fmt.Errorf("%w: main link text %q has no transport type", ErrPageShape, link.Text())
	}
	return tokens[1], nil
}

func stopLabel(doc *goquery.Selection) (string, error) {
	p := doc.Find(stopLabelSelector).First()
	if p.Length() == 0 {
		return "", fmt.Errorf("%w: no paragraph after a heading", ErrPageShape)
	}
	return strings.TrimSpace(p.Text()), nil
}

// arrivalCells returns the text of every element styled display:inline-block,
// in document order.
func arrivalCells(doc *goquery.Selection) []string {
	cells := make([]string, 0)
	doc.Find("[style]").Each(func(_ int, el *goquery.Selection) {
		style, _ := el.Attr("style")
		if declaresInlineBlock(style) {
			cells = append(cells, el.Text())
		}
	})
	return cells
}

func declaresInlineBlock(style string) bool {
	for _, decl := range strings.Split(style, ";") {
		decl = strings.ToLower(strings.Join(strings.Fields(decl), ""))
		if decl == "display:inline-block" {
			return true
		}
	}
	return false
}

// GroupCells chunks cells into arrivals of three. A trailing group with fewer
// cells is kept as is.
func GroupCells(cells []string) []models.Arrival {
	arrivals := make([]models.Arrival, 0, (len(cells)+cellsPerArrival-1)/cellsPerArrival)
	for i := 0; i < len(cells); i += cellsPerArrival {
		end := i + cellsPerArrival
		if end > len(cells) {
			end = len(cells)
		}
		group := make([]string, end-i)
		copy(group, cells[i:end])
		arrivals = append(arrivals, models.Arrival{Cells: group})
	}
	return arrivals
}
