package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/odor-dispersion-service/internal/domain"
)

// Column aliases: the registry export uses Korean headers.
var (
	colID        = []string{"ID", "id"}
	colType      = []string{"축종", "livestockType"}
	colCount     = []string{"축수", "livestockCount"}
	colLat       = []string{"위도", "latitude", "lat"}
	colLng       = []string{"경도", "longitude", "lng"}
	colDate      = []string{"접수일시", "receivedDate", "date"}
	colRegion    = []string{"지역", "region"}
	colTimeOfDay = []string{"시간대", "timePeriod", "period"}
)

type table struct {
	header map[string]int
	rows   [][]string
}

func readTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	return parseTable(f)
}

func parseTable(r io.Reader) (*table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("no header row")
	}

	header := map[string]int{}
	for i, h := range rows[0] {
		header[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	return &table{header: header, rows: rows[1:]}, nil
}

func (t *table) get(row []string, aliases []string) string {
	for _, a := range aliases {
		if i, ok := t.header[a]; ok && i < len(row) {
			return strings.TrimSpace(row[i])
		}
	}
	return ""
}

func (t *table) float(row []string, aliases []string) *float64 {
	s := t.get(row, aliases)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func (t *table) int(row []string, aliases []string) int {
	s := strings.ReplaceAll(t.get(row, aliases), ",", "")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// farmsFromTable maps rows to farm records. Rows without an ID are skipped;
// bad numbers are kept as missing so the dispersion model drops them.
func farmsFromTable(t *table) []domain.FarmRecord {
	farms := make([]domain.FarmRecord, 0, len(t.rows))
	for _, row := range t.rows {
		id := t.int(row, colID)
		if id == 0 {
			continue
		}
		farms = append(farms, domain.FarmRecord{
			ID:             id,
			LivestockType:  t.get(row, colType),
			LivestockCount: t.int(row, colCount),
			Lat:            t.float(row, colLat),
			Lng:            t.float(row, colLng),
		})
	}
	return farms
}

func complaintsFromTable(t *table) []domain.ComplaintPoint {
	points := make([]domain.ComplaintPoint, 0, len(t.rows))
	for _, row := range t.rows {
		p := domain.ComplaintPoint{
			ID:     t.int(row, colID),
			Lat:    t.float(row, colLat),
			Lng:    t.float(row, colLng),
			Date:   t.get(row, colDate),
			Region: t.get(row, colRegion),
		}
		if period := t.get(row, colTimeOfDay); period != "" {
			p.Period = &period
		}
		points = append(points, p)
	}
	return points
}
