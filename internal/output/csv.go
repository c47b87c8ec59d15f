package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/signalsfoundry/backbone-generator/internal/textnorm"
	"github.com/signalsfoundry/backbone-generator/model"
)

// Column headers of the three record files. The names are consumed by
// external drawing tools and must not change.
var (
	ElementHeader    = []string{"elemento", "camada", "nivel", "cor", "siteid", "apelido"}
	ConnectionHeader = []string{"ponta-a", "ponta-b", "textoconexao", "strokeWidth", "strokeColor", "dashed", "fontStyle", "fontSize"}
	LocalityHeader   = []string{"siteid", "Localidade", "RegiaoGeografica", "Latitude", "Longitude"}
)

const delimiter = ';'

// WriteElements writes one row per element. Text fields are folded to ASCII.
func WriteElements(w io.Writer, elems []*model.Element) error {
	return writeRecords(w, ElementHeader, len(elems), func(i int) []string {
		e := elems[i]
		return []string{
			textnorm.ASCII(e.Name),
			textnorm.ASCII(e.Tier),
			strconv.Itoa(e.Level),
			"",
			textnorm.ASCII(e.SiteID),
			"",
		}
	})
}

// WriteConnections writes one row per connection, leaving the styling
// columns empty.
func WriteConnections(w io.Writer, conns []model.Connection) error {
	return writeRecords(w, ConnectionHeader, len(conns), func(i int) []string {
		c := conns[i]
		return []string{
			textnorm.ASCII(c.A),
			textnorm.ASCII(c.B),
			textnorm.ASCII(c.Label),
			"", "", "", "", "",
		}
	})
}

// WriteLocalities writes one row per locality with DMS coordinates.
func WriteLocalities(w io.Writer, locs []model.Locality) error {
	return writeRecords(w, LocalityHeader, len(locs), func(i int) []string {
		l := locs[i]
		return []string{
			textnorm.ASCII(l.SiteID),
			textnorm.ASCII(l.City),
			textnorm.ASCII(l.Region),
			DMS(l.Lat, Latitude),
			DMS(l.Lon, Longitude),
		}
	})
}

func writeRecords(w io.Writer, header []string, n int, row func(int) []string) (retErr error) {
	cw := csv.NewWriter(w)
	cw.Comma = delimiter
	cw.UseCRLF = true
	defer func() {
		cw.Flush()
		if err := cw.Error(); err != nil && retErr == nil {
			retErr = fmt.Errorf("flush csv: %w", err)
		}
	}()

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i := 0; i < n; i++ {
		if err := cw.Write(row(i)); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	return nil
}
