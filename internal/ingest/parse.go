package ingest

import (
	"fmt"
	"strings"
	"time"

	"vigil/internal/ingest/models"
	screening "vigil/internal/screening/models"
	pstrings "vigil/pkg/platform/strings"
)

// birthDateLayout is the only accepted source date format.
const birthDateLayout = "2006-01-02"

// parseRow converts one source row into a watchlist record. A missing ID or
// name rejects the row; a malformed birth date keeps the row but drops the
// date, returning a field-level error alongside the record.
func parseRow(dataset string, rowNum int, row models.SourceRow) (screening.WatchlistRecord, []models.ParseError, bool) {
	var errs []models.ParseError

	id := strings.TrimSpace(row.ID)
	name := strings.TrimSpace(row.Name)
	if id == "" {
		errs = append(errs, models.ParseError{Row: rowNum, Field: "id", Message: "missing record id"})
		return screening.WatchlistRecord{}, errs, false
	}
	if name == "" {
		errs = append(errs, models.ParseError{Row: rowNum, Field: "name", Message: "missing primary name"})
		return screening.WatchlistRecord{}, errs, false
	}

	record := screening.WatchlistRecord{
		ID:          id,
		Dataset:     dataset,
		PrimaryName: name,
		Aliases:     pstrings.DedupeAndTrim(row.Aliases),
		Countries:   pstrings.DedupeAndTrim(row.Countries),
		Addresses:   pstrings.DedupeAndTrim(row.Addresses),
		Remarks:     strings.TrimSpace(row.Remarks),
		LastChange:  strings.TrimSpace(row.LastChange),
	}

	if raw := strings.TrimSpace(row.BirthDate); raw != "" {
		t, err := time.Parse(birthDateLayout, raw)
		if err != nil {
			errs = append(errs, models.ParseError{
				Row:     rowNum,
				Field:   "birth_date",
				Message: fmt.Sprintf("invalid date %q, want YYYY-MM-DD", raw),
			})
		} else {
			record.BirthDate = &t
		}
	}

	for _, ident := range row.Identifiers {
		value := strings.TrimSpace(ident.Value)
		if value == "" {
			continue
		}
		record.Identifiers = append(record.Identifiers, screening.Identifier{
			Type:           strings.TrimSpace(ident.Type),
			Value:          value,
			IssuingCountry: strings.TrimSpace(ident.Country),
		})
	}

	return record, errs, true
}
