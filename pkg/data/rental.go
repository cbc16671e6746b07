package data

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/mchmarny/rentprice/pkg/feature"
)

const (
	// ColTotal is the dataset column holding the total monthly cost.
	ColTotal = "total (R$)"

	insertRentalSQL = `INSERT INTO rental (
			city, area, rooms, bathroom, parking_spaces, floor, animal, furniture,
			hoa, rent_amount, property_tax, fire_insurance, total
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	deleteRentalsSQL = `DELETE FROM rental`

	countRentalsSQL = `SELECT COUNT(*) FROM rental`

	// AVG skips NULL totals, the rows whose total was not numeric.
	selectCityAveragesSQL = `SELECT city, AVG(total) AS avg_total
		FROM rental
		WHERE total IS NOT NULL
		GROUP BY city
		ORDER BY city
	`
)

var requiredHeaders = []string{feature.FieldCity, ColTotal}

// Rental is one historical listing.
type Rental struct {
	feature.Record
	Total *float64 `json:"total,omitempty" yaml:"total,omitempty"`

	// Coerced lists the numeric columns that were not numbers and read as zero.
	Coerced []string `json:"-" yaml:"-"`
}

type ImportResult struct {
	Duration string `json:"duration,omitempty" yaml:"duration,omitempty"`
	Rows     int    `json:"rows" yaml:"rows"`
	Imported int    `json:"imported" yaml:"imported"`
	NoTotal  int    `json:"no_total,omitempty" yaml:"no_total,omitempty"`
	Coerced  int    `json:"coerced,omitempty" yaml:"coerced,omitempty"`
	Replaced bool   `json:"replaced,omitempty" yaml:"replaced,omitempty"`
}

// ParseRentalsCSV reads the rental dataset. Numeric placeholders and other
// non-numeric cells read as zero and totals that are not numeric are left nil.
func ParseRentalsCSV(r io.Reader) ([]*Rental, error) {
	if r == nil {
		return nil, errors.New("reader required")
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("error reading CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	for _, h := range requiredHeaders {
		if !slices.Contains(header, h) {
			return nil, fmt.Errorf("CSV missing required column: %s", h)
		}
	}

	list := make([]*Rental, 0)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV line %d: %w", line, err)
		}

		fields := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				fields[h] = rec[i]
			}
		}

		var coerced []string
		for _, c := range feature.NumericColumns {
			if _, err := feature.ParseNumber(fields[c]); err != nil {
				slog.Debug("non-numeric value read as zero", "line", line, "column", c, "value", fields[c])
				fields[c] = "0"
				coerced = append(coerced, c)
			}
		}

		p, err := feature.ParseRecord(fields)
		if err != nil {
			return nil, fmt.Errorf("error parsing CSV line %d: %w", line, err)
		}

		row := &Rental{Record: *p, Coerced: coerced}
		if v, err := strconv.ParseFloat(strings.TrimSpace(fields[ColTotal]), 64); err == nil {
			row.Total = &v
		}
		list = append(list, row)
	}

	return list, nil
}

// ImportRentalsCSV loads the rental dataset into the database in a single
// transaction. When replace is set, existing rows are removed first.
func ImportRentalsCSV(db *sql.DB, r io.Reader, replace bool) (*ImportResult, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	start := time.Now()

	list, err := ParseRentalsCSV(r)
	if err != nil {
		return nil, err
	}

	res := &ImportResult{Rows: len(list), Replaced: replace}

	if err := SaveRentals(db, list, replace); err != nil {
		return nil, err
	}

	for _, v := range list {
		if v.Total == nil {
			res.NoTotal++
		}
		if len(v.Coerced) > 0 {
			res.Coerced++
		}
	}
	res.Imported = len(list)
	res.Duration = time.Since(start).String()

	slog.Debug("rentals imported", "rows", res.Rows, "no_total", res.NoTotal, "coerced", res.Coerced, "duration", res.Duration)

	return res, nil
}

// SaveRentals inserts the listings in one transaction.
func SaveRentals(db *sql.DB, list []*Rental, replace bool) error {
	if db == nil {
		return errDBNotInitialized
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if replace {
		if _, err := tx.Exec(deleteRentalsSQL); err != nil {
			rollbackTransaction(tx)
			return fmt.Errorf("failed to delete existing rentals: %w", err)
		}
	}

	stmt, err := tx.Prepare(insertRentalSQL)
	if err != nil {
		rollbackTransaction(tx)
		return fmt.Errorf("failed to prepare batch statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range list {
		var total sql.NullFloat64
		if r.Total != nil {
			total = sql.NullFloat64{Float64: *r.Total, Valid: true}
		}

		if _, err = stmt.Exec(
			string(r.City), r.Area, r.Rooms, r.Bathroom, r.ParkingSpaces, r.Floor,
			string(r.Animal), string(r.Furniture),
			r.HOA, r.RentAmount, r.PropertyTax, r.FireInsurance, total,
		); err != nil {
			rollbackTransaction(tx)
			return fmt.Errorf("failed to insert rental: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func rollbackTransaction(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil {
		slog.Error("failed to rollback transaction", "error", err)
	}
}

// CountRentals returns the number of imported listings.
func CountRentals(db *sql.DB) (int, error) {
	if db == nil {
		return 0, errDBNotInitialized
	}

	var n int
	if err := db.QueryRow(countRentalsSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rentals: %w", err)
	}
	return n, nil
}

// GetCityAverages returns the mean total rent per city.
func GetCityAverages(db *sql.DB) (*SeriesData[float64], error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	rows, err := db.Query(selectCityAveragesSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query city averages: %w", err)
	}
	defer rows.Close()

	s := &SeriesData[float64]{
		Labels: make([]string, 0),
		Data:   make([]float64, 0),
	}

	for rows.Next() {
		var city string
		var avg float64
		if err := rows.Scan(&city, &avg); err != nil {
			return nil, fmt.Errorf("failed to scan city average row: %w", err)
		}
		s.Labels = append(s.Labels, city)
		s.Data = append(s.Data, avg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate city averages: %w", err)
	}

	return s, nil
}
