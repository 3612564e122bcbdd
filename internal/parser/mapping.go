// Package parser loads NCBI assembly report conversion tables.
// A table is tab-separated with ten fixed columns; lines starting with '#'
// are comments. Two of the columns, GenBank-Accn and RefSeq-Accn, are turned
// into a lookup from one accession namespace to the other.
package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"accremap/internal/config"
	"accremap/internal/errors"
	"accremap/internal/fileio"
)

// Columns is the assumed schema of an assembly report, in file order.
var Columns = [...]string{
	"Sequence-Name",
	"Sequence-Role",
	"Assigned-Molecule",
	"Assigned-Molecule-Location/Type",
	"GenBank-Accn",
	"Relationship",
	"RefSeq-Accn",
	"Assembly-Unit",
	"Sequence-Length",
	"UCSC-style-name",
}

const (
	colSequenceName = 0
	colGenBankAccn  = 4
	colRefSeqAccn   = 6
)

// Row is one data line of the conversion table.
type Row struct {
	Line   int
	Fields [len(Columns)]string
}

// Get returns the value of the named column, or "" for an unknown name.
func (r Row) Get(column string) string {
	for i, name := range Columns {
		if name == column {
			return r.Fields[i]
		}
	}
	return ""
}

// GenBank returns the GenBank-Accn column.
func (r Row) GenBank() string { return r.Fields[colGenBankAccn] }

// RefSeq returns the RefSeq-Accn column.
func (r Row) RefSeq() string { return r.Fields[colRefSeqAccn] }

// MappingTable is an immutable accession lookup built from a conversion
// table. Later rows override earlier rows that share a key. Values are
// taken verbatim, so the NCBI placeholder "na" is an ordinary accession.
type MappingTable struct {
	direction config.Direction
	rows      []Row
	lookup    map[string]string
}

// NewMappingTable builds the lookup for direction from rows.
func NewMappingTable(rows []Row, direction config.Direction) *MappingTable {
	mt := &MappingTable{
		direction: direction,
		rows:      rows,
		lookup:    make(map[string]string, len(rows)),
	}

	for _, row := range rows {
		from, to := row.RefSeq(), row.GenBank()
		if direction == config.GenBankToRefSeq {
			from, to = to, from
		}
		if from == "" {
			continue
		}
		mt.lookup[from] = to
	}

	return mt
}

// Lookup returns the accession that replaces from.
func (mt *MappingTable) Lookup(from string) (string, bool) {
	to, ok := mt.lookup[from]
	return to, ok
}

// Size returns the number of distinct keys in the lookup.
func (mt *MappingTable) Size() int {
	return len(mt.lookup)
}

// Rows returns the data rows in file order.
func (mt *MappingTable) Rows() []Row {
	return mt.rows
}

// Direction returns the direction the lookup was built for.
func (mt *MappingTable) Direction() config.Direction {
	return mt.direction
}

// LoadMappingTable reads the conversion table at filePath. Gzip-compressed
// tables are accepted.
func LoadMappingTable(filePath string, direction config.Direction) (*MappingTable, error) {
	file, err := fileio.OpenInput(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseMappingTable(file, filePath, direction)
}

// ParseMappingTable reads a conversion table from reader. filePath is only
// used in error messages.
func ParseMappingTable(reader io.Reader, filePath string, direction config.Direction) (*MappingTable, error) {
	rows, err := readRows(reader, filePath)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, errors.NewFormatError(filePath, 0, "conversion table contains no data rows", nil)
	}

	return NewMappingTable(rows, direction), nil
}

func readRows(reader io.Reader, filePath string) ([]Row, error) {
	csvReader := csv.NewReader(reader)
	csvReader.Comma = '\t'
	csvReader.Comment = '#'
	csvReader.FieldsPerRecord = -1
	csvReader.LazyQuotes = true
	csvReader.ReuseRecord = true

	var rows []Row
	first := true

	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, wrapCSVError(filePath, err)
		}

		line, _ := csvReader.FieldPos(0)

		if first {
			first = false
			if isHeaderRow(record) {
				continue
			}
		}

		if len(record) != len(Columns) {
			return nil, errors.NewFormatError(filePath, line,
				fmt.Sprintf("expected %d tab-separated columns, found %d", len(Columns), len(record)), nil)
		}

		row := Row{Line: line}
		for i, field := range record {
			row.Fields[i] = strings.TrimSpace(field)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// isHeaderRow recognises an uncommented column header line.
func isHeaderRow(record []string) bool {
	return len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[colSequenceName]), Columns[colSequenceName])
}

func wrapCSVError(filePath string, err error) error {
	if pe, ok := err.(*csv.ParseError); ok {
		return errors.NewFormatError(filePath, pe.Line, pe.Err.Error(), err)
	}
	return errors.NewFileNotReadableError(filePath, err)
}
