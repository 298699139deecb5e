package iss

import (
	"fmt"
	"strconv"

	"cloud.google.com/go/civil"
	"github.com/guregu/null/v6"
	"github.com/mailru/easyjson"
	"github.com/mailru/easyjson/jlexer"
	"github.com/shopspring/decimal"
)

// ISS answers every request with named blocks of the form
//
//	{"history": {"columns": ["TRADEDATE", ...], "data": [["2023-01-03", ...], ...]}}
//
// The decoders below read that shape directly into Table values.

type cellKind uint8

const (
	cellNull cellKind = iota
	cellString
	cellNumber
	cellBool
)

// Cell is one value of a table row. Numbers keep their textual form so they
// can be read exactly as decimals.
type Cell struct {
	kind cellKind
	raw  string
}

// IsNull reports whether the cell holds JSON null.
func (c Cell) IsNull() bool { return c.kind == cellNull }

// UnmarshalEasyJSON implements easyjson.Unmarshaler.
func (c *Cell) UnmarshalEasyJSON(in *jlexer.Lexer) {
	if in.IsNull() {
		in.Skip()
		*c = Cell{}
		return
	}
	raw := in.Raw()
	if len(raw) == 0 {
		*c = Cell{}
		return
	}
	switch raw[0] {
	case '"':
		str := jlexer.Lexer{Data: raw}
		*c = Cell{kind: cellString, raw: str.String()}
		if err := str.Error(); err != nil {
			in.AddError(err)
		}
	case 't', 'f':
		*c = Cell{kind: cellBool, raw: string(raw)}
	case '{', '[':
		// nested values are not part of any table
		*c = Cell{}
	default:
		*c = Cell{kind: cellNumber, raw: string(raw)}
	}
}

// Table is one block of an ISS response.
type Table struct {
	Columns []string
	Data    [][]Cell

	index map[string]int
}

// UnmarshalEasyJSON implements easyjson.Unmarshaler.
func (t *Table) UnmarshalEasyJSON(in *jlexer.Lexer) {
	isTopLevel := in.IsStart()
	if in.IsNull() {
		if isTopLevel {
			in.Consumed()
		}
		in.Skip()
		return
	}
	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeFieldName(false)
		in.WantColon()
		if in.IsNull() {
			in.Skip()
			in.WantComma()
			continue
		}
		switch key {
		case "columns":
			in.Delim('[')
			for !in.IsDelim(']') {
				t.Columns = append(t.Columns, in.String())
				in.WantComma()
			}
			in.Delim(']')
		case "data":
			in.Delim('[')
			for !in.IsDelim(']') {
				var row []Cell
				in.Delim('[')
				for !in.IsDelim(']') {
					var c Cell
					c.UnmarshalEasyJSON(in)
					row = append(row, c)
					in.WantComma()
				}
				in.Delim(']')
				t.Data = append(t.Data, row)
				in.WantComma()
			}
			in.Delim(']')
		default:
			in.SkipRecursive()
		}
		in.WantComma()
	}
	in.Delim('}')
	if isTopLevel {
		in.Consumed()
	}
	t.reindex()
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		t.index[c] = i
	}
}

// Rows returns the rows of the table.
func (t *Table) Rows() []Row {
	if t.index == nil {
		t.reindex()
	}
	rows := make([]Row, len(t.Data))
	for i, cells := range t.Data {
		rows[i] = Row{table: t, cells: cells}
	}
	return rows
}

// Response is a decoded ISS document: its blocks by name.
type Response map[string]*Table

// UnmarshalEasyJSON implements easyjson.Unmarshaler.
func (r *Response) UnmarshalEasyJSON(in *jlexer.Lexer) {
	isTopLevel := in.IsStart()
	if in.IsNull() {
		in.Skip()
		*r = nil
	} else {
		in.Delim('{')
		*r = make(Response)
		for !in.IsDelim('}') {
			key := in.String()
			in.WantColon()
			if !in.IsDelim('{') {
				// null or scalar blocks
				in.SkipRecursive()
				in.WantComma()
				continue
			}
			t := &Table{}
			t.UnmarshalEasyJSON(in)
			(*r)[key] = t
			in.WantComma()
		}
		in.Delim('}')
	}
	if isTopLevel {
		in.Consumed()
	}
}

// Table returns the block called name, or an error if the document has none.
func (r Response) Table(name string) (*Table, error) {
	t, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("iss: response has no %q block", name)
	}
	return t, nil
}

func decodeResponse(body []byte) (Response, error) {
	var r Response
	if err := easyjson.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("iss: decode response: %w", err)
	}
	return r, nil
}

// Row is one row of a Table with typed access by column name. A missing
// column, a null or an unparsable cell reads as the zero or null value.
type Row struct {
	table *Table
	cells []Cell
}

func (r Row) cell(col string) Cell {
	i, ok := r.table.index[col]
	if !ok || i >= len(r.cells) {
		return Cell{}
	}
	return r.cells[i]
}

// String returns the text of a string cell, or the literal of any other.
func (r Row) String(col string) string {
	return r.cell(col).raw
}

// Float returns a numeric cell as a float.
func (r Row) Float(col string) null.Float {
	c := r.cell(col)
	if c.kind != cellNumber && c.kind != cellString {
		return null.Float{}
	}
	f, err := strconv.ParseFloat(c.raw, 64)
	if err != nil {
		return null.Float{}
	}
	return null.FloatFrom(f)
}

// Int returns a numeric cell as an integer. Integral floats like 1e6 are accepted.
func (r Row) Int(col string) null.Int {
	c := r.cell(col)
	if c.kind != cellNumber && c.kind != cellString {
		return null.Int{}
	}
	if n, err := strconv.ParseInt(c.raw, 10, 64); err == nil {
		return null.IntFrom(n)
	}
	d, err := decimal.NewFromString(c.raw)
	if err != nil || !d.IsInteger() {
		return null.Int{}
	}
	return null.IntFrom(d.IntPart())
}

// Decimal returns a numeric cell exactly.
func (r Row) Decimal(col string) (decimal.Decimal, bool) {
	c := r.cell(col)
	if c.kind != cellNumber && c.kind != cellString {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(c.raw)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// Date returns a YYYY-MM-DD cell as a date.
func (r Row) Date(col string) (civil.Date, bool) {
	c := r.cell(col)
	if c.kind != cellString || c.raw == "" {
		return civil.Date{}, false
	}
	d, err := civil.ParseDate(c.raw)
	if err != nil {
		return civil.Date{}, false
	}
	return d, true
}

// Bool returns a boolean cell. ISS encodes flags as 0/1, which are accepted too.
func (r Row) Bool(col string) bool {
	c := r.cell(col)
	switch c.kind {
	case cellBool:
		return c.raw == "true"
	case cellNumber:
		return c.raw != "0"
	}
	return false
}
