package weather

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/openwatt/openwatt/pkg/stores"
)

// Dataset holds parsed timeseries, one per CSV column. All series have
// the same length. The optional timestamp column becomes the index.
type Dataset struct {
	// Index holds the row timestamps, empty when the CSV has no
	// timestamp column.
	Index []time.Time

	// Series maps column names to their values, in row order.
	Series map[string][]float64
}

// Len returns the number of rows in the dataset.
func (d *Dataset) Len() int {
	for _, s := range d.Series {
		return len(s)
	}
	return 0
}

// timestampColumn is the reserved CSV header for the time index.
const timestampColumn = "timestamp"

// ReadSeries parses CSV timeseries data. The first row is the header;
// a column named "timestamp" is parsed as RFC 3339 into the index, all
// other columns must be numeric.
func ReadSeries(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	tsCol := -1
	for i, name := range header {
		header[i] = strings.TrimSpace(name)
		if header[i] == timestampColumn {
			tsCol = i
		}
	}

	ds := &Dataset{Series: make(map[string][]float64, len(header))}
	for i, name := range header {
		if i == tsCol {
			continue
		}
		if name == "" {
			return nil, fmt.Errorf("csv column %d has an empty name", i+1)
		}
		if _, dup := ds.Series[name]; dup {
			return nil, fmt.Errorf("csv column %q appears twice", name)
		}
		ds.Series[name] = nil
	}

	row := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row %d: %w", row, err)
		}
		row++

		for i, field := range record {
			if i == tsCol {
				ts, err := time.Parse(time.RFC3339, strings.TrimSpace(field))
				if err != nil {
					return nil, fmt.Errorf("row %d: bad timestamp %q: %w", row, field, err)
				}
				ds.Index = append(ds.Index, ts)
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d, column %q: bad value %q", row, header[i], field)
			}
			ds.Series[header[i]] = append(ds.Series[header[i]], v)
		}
	}

	return ds, nil
}

// LoadFile reads a CSV timeseries file from disk.
func LoadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open timeseries file: %w", err)
	}
	defer f.Close()

	ds, err := ReadSeries(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// SaveSeries persists every series of the dataset for one entity.
func SaveSeries(ctx context.Context, store stores.Store, entityUID string, ds *Dataset) error {
	for name, values := range ds.Series {
		rec := &stores.SeriesRecord{
			EntityUID: entityUID,
			Name:      name,
			Values:    values,
		}
		if err := store.PutSeries(ctx, rec); err != nil {
			return fmt.Errorf("failed to store series %s: %w", name, err)
		}
	}
	return nil
}
