// Package stationcsv parses the station code reference CSV.
//
// The file has no header and six columns:
//
//	kind,lineID,stationID,companyName,lineName,stationName
//
// with decimal ids. Row order is preserved; callers rely on it to pick the
// first row for duplicated keys.
package stationcsv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/farecard/farecard/internal/domain"
)

const columns = 6

// Parse reads every row from r.
func Parse(r io.Reader) ([]domain.StationEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var entries []domain.StationEntry
	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return nil, fmt.Errorf("read station csv: %w", err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		e, err := parseRow(record)
		if err != nil {
			return nil, fmt.Errorf("station csv row %d: %w", row, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Load reads the CSV file at path.
func Load(path string) ([]domain.StationEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open station csv: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

func parseRow(record []string) (domain.StationEntry, error) {
	if len(record) < columns {
		return domain.StationEntry{}, fmt.Errorf("%w: %d columns, want %d", domain.ErrInvalidStation, len(record), columns)
	}
	area, err := strconv.Atoi(strings.TrimSpace(record[0]))
	if err != nil {
		return domain.StationEntry{}, fmt.Errorf("%w: kind %q", domain.ErrInvalidStation, record[0])
	}
	lineID, err := parseID(record[1])
	if err != nil {
		return domain.StationEntry{}, fmt.Errorf("%w: lineID %q", domain.ErrInvalidStation, record[1])
	}
	stationID, err := parseID(record[2])
	if err != nil {
		return domain.StationEntry{}, fmt.Errorf("%w: stationID %q", domain.ErrInvalidStation, record[2])
	}
	return domain.StationEntry{
		AreaCode:    area,
		LineID:      lineID,
		StationID:   stationID,
		CompanyName: strings.TrimSpace(record[3]),
		LineName:    strings.TrimSpace(record[4]),
		StationName: strings.TrimSpace(record[5]),
	}, nil
}

func parseID(s string) (uint8, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 8)
	return uint8(n), err
}
