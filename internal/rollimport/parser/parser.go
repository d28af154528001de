// Package parser turns an uploaded electoral roll into validated voter rows.
//
// Uploads pass three gates in order: the checksum, the text encoding and row
// validation. The first two reject the file outright; row validation collects
// every problem so an operator can fix the file in one pass.
package parser

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"parrainage/internal/rollimport/models"
	dErrors "parrainage/pkg/domain-errors"
)

// Columns every roll must carry, matched by header name in any order.
const (
	ColumnNationalID     = "national_id"
	ColumnCardNumber     = "card_number"
	ColumnLastName       = "last_name"
	ColumnFirstName      = "first_name"
	ColumnRegion         = "region"
	ColumnPollingStation = "polling_station"
)

var requiredColumns = []string{
	ColumnNationalID,
	ColumnCardNumber,
	ColumnLastName,
	ColumnFirstName,
	ColumnRegion,
	ColumnPollingStation,
}

var (
	nationalIDPattern = regexp.MustCompile(`^\d{13}$`)
	cardNumberPattern = regexp.MustCompile(`^[A-Z]{2}\d{8}$`)
	namePattern       = regexp.MustCompile(`^[a-zA-Z\s-]+$`)
)

// Checksum returns the lowercase hex SHA-256 of raw.
func Checksum(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// VerifyChecksum compares raw against the claimed hex digest, ignoring case
// and surrounding whitespace.
func VerifyChecksum(raw []byte, claimed string) error {
	actual := Checksum(raw)
	if !strings.EqualFold(actual, strings.TrimSpace(claimed)) {
		return dErrors.New(dErrors.CodeChecksumMismatch, "file checksum does not match the declared checksum")
	}
	return nil
}

// ParseEncoding maps a declared encoding name to a supported Encoding. An
// empty name means UTF-8.
func ParseEncoding(name string) (models.Encoding, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "UTF-8", "UTF8":
		return models.EncodingUTF8, nil
	case "ISO-8859-1", "ISO8859-1", "LATIN1", "LATIN-1":
		return models.EncodingISO88591, nil
	case "WINDOWS-1252", "CP1252":
		return models.EncodingWindows1252, nil
	}
	return "", dErrors.Newf(dErrors.CodeEncoding, "unsupported encoding %q", name)
}

// Decode converts raw from enc into UTF-8. UTF-8 input must be well formed;
// a leading byte order mark is dropped.
func Decode(raw []byte, enc models.Encoding) ([]byte, error) {
	var decoder *encoding.Decoder
	switch enc {
	case models.EncodingUTF8:
		if !utf8.Valid(raw) {
			return nil, dErrors.New(dErrors.CodeEncoding, "file is not valid UTF-8")
		}
		decoder = unicode.UTF8BOM.NewDecoder()
	case models.EncodingISO88591:
		decoder = charmap.ISO8859_1.NewDecoder()
	case models.EncodingWindows1252:
		decoder = charmap.Windows1252.NewDecoder()
	default:
		return nil, dErrors.Newf(dErrors.CodeEncoding, "unsupported encoding %q", enc)
	}

	text, err := decoder.Bytes(raw)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeEncoding, "file could not be decoded")
	}
	return text, nil
}

// Row is one complete data row. Number is 1-based. A row may still carry
// validation errors; check the error list before staging anything.
type Row struct {
	Number int
	Voter  models.Voter
}

// WellFormedNationalID reports whether s has the shape of a national id.
func WellFormedNationalID(s string) bool { return nationalIDPattern.MatchString(s) }

// WellFormedCardNumber reports whether s has the shape of a voter card number.
func WellFormedCardNumber(s string) bool { return cardNumberPattern.MatchString(s) }

// Parse reads CSV text with a header line and validates every data row. Every
// row with a full set of fields is returned, valid or not, so callers can run
// further checks and report all problems at once. Records that cannot be read
// or are short only appear in the errors.
func Parse(text []byte) ([]Row, []models.RowError) {
	r := csv.NewReader(bytes.NewReader(text))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, []models.RowError{{Row: 0, Message: "file is empty"}}
	}
	if err != nil {
		return nil, []models.RowError{{Row: 0, Message: fmt.Sprintf("unreadable header: %v", err)}}
	}

	index, errs := headerIndex(header)
	if len(errs) > 0 {
		return nil, errs
	}

	var (
		rows      []Row
		nationals = make(map[string]int)
		cards     = make(map[string]int)
	)
	for number := 1; ; number++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			errs = append(errs, models.RowError{Row: number, Message: fmt.Sprintf("unreadable row: %v", err)})
			continue
		}
		if len(record) < len(header) {
			errs = append(errs, models.RowError{Row: number, Message: fmt.Sprintf("expected %d fields, found %d", len(header), len(record))})
			continue
		}

		field := func(column string) string {
			return strings.TrimSpace(record[index[column]])
		}
		v := models.Voter{
			NationalID:     field(ColumnNationalID),
			CardNumber:     field(ColumnCardNumber),
			LastName:       field(ColumnLastName),
			FirstName:      field(ColumnFirstName),
			Region:         field(ColumnRegion),
			PollingStation: field(ColumnPollingStation),
		}

		rowErrs := validateVoter(number, v)
		if first, seen := nationals[v.NationalID]; seen && v.NationalID != "" {
			rowErrs = append(rowErrs, models.RowError{Row: number, Field: ColumnNationalID, Value: v.NationalID, Message: fmt.Sprintf("duplicate of row %d", first)})
		} else {
			nationals[v.NationalID] = number
		}
		if first, seen := cards[v.CardNumber]; seen && v.CardNumber != "" {
			rowErrs = append(rowErrs, models.RowError{Row: number, Field: ColumnCardNumber, Value: v.CardNumber, Message: fmt.Sprintf("duplicate of row %d", first)})
		} else {
			cards[v.CardNumber] = number
		}

		errs = append(errs, rowErrs...)
		rows = append(rows, Row{Number: number, Voter: v})
	}

	if len(rows) == 0 && len(errs) == 0 {
		return nil, []models.RowError{{Row: 0, Message: "file has no data rows"}}
	}
	return rows, errs
}

func headerIndex(header []string) (map[string]int, []models.RowError) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := index[name]; dup {
			return nil, []models.RowError{{Row: 0, Field: name, Message: "duplicate column"}}
		}
		index[name] = i
	}

	var errs []models.RowError
	for _, column := range requiredColumns {
		if _, ok := index[column]; !ok {
			errs = append(errs, models.RowError{Row: 0, Field: column, Message: "missing required column"})
		}
	}
	return index, errs
}

func validateVoter(row int, v models.Voter) []models.RowError {
	var errs []models.RowError
	check := func(ok bool, field, value, message string) {
		if !ok {
			errs = append(errs, models.RowError{Row: row, Field: field, Value: value, Message: message})
		}
	}
	check(nationalIDPattern.MatchString(v.NationalID), ColumnNationalID, v.NationalID, "national id must be 13 digits")
	check(cardNumberPattern.MatchString(v.CardNumber), ColumnCardNumber, v.CardNumber, "card number must be two capital letters and 8 digits")
	check(namePattern.MatchString(v.LastName), ColumnLastName, v.LastName, "last name may only contain letters, spaces and hyphens")
	check(namePattern.MatchString(v.FirstName), ColumnFirstName, v.FirstName, "first name may only contain letters, spaces and hyphens")
	check(v.Region != "", ColumnRegion, v.Region, "region is required")
	check(v.PollingStation != "", ColumnPollingStation, v.PollingStation, "polling station is required")
	return errs
}
