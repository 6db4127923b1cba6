package batchupdate

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nsrs/shardgate/pkg/models/sgerror"
)

// PlaceholderFormat selects the bind parameter syntax.
type PlaceholderFormat int

const (
	// Question renders ? placeholders (JDBC, MySQL, sqlx before Rebind).
	Question PlaceholderFormat = iota
	// Dollar renders $1..$n placeholders (PostgreSQL).
	Dollar
)

var (
	identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	tableRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)
)

// Row is one update: the new values, aligned with the set fields, for the
// row whose where field equals Key.
type Row struct {
	Key    any
	Values []any
}

type Builder struct {
	Format PlaceholderFormat
}

var question = Builder{Format: Question}

// RowByRowUpdate builds n single-row UPDATE statements joined by "; ".
func RowByRowUpdate(table string, setFields []string, whereField string, n int) (string, error) {
	return question.RowByRow(table, setFields, whereField, n)
}

// CaseWhenUpdate builds one UPDATE that sets every field through a
// CASE over whereField, restricted to the n keys.
func CaseWhenUpdate(table string, setFields []string, whereField string, n int) (string, error) {
	return question.CaseWhen(table, setFields, whereField, n)
}

func validate(table string, setFields []string, whereField string, n int) error {
	if n <= 0 {
		return sgerror.Newf(sgerror.SG_STATEMENT_ERROR, "row count must be positive, got %d", n)
	}
	if len(setFields) == 0 {
		return sgerror.New(sgerror.SG_STATEMENT_ERROR, "no fields to set")
	}
	if !tableRe.MatchString(table) {
		return sgerror.Newf(sgerror.SG_STATEMENT_ERROR, "invalid identifier %q", table)
	}
	for _, f := range append([]string{whereField}, setFields...) {
		if !identRe.MatchString(f) {
			return sgerror.Newf(sgerror.SG_STATEMENT_ERROR, "invalid identifier %q", f)
		}
	}
	return nil
}

type placeholders struct {
	format PlaceholderFormat
	next   int
}

func (p *placeholders) String() string {
	if p.format == Question {
		return "?"
	}
	p.next++
	return "$" + strconv.Itoa(p.next)
}

func (b Builder) RowByRow(table string, setFields []string, whereField string, n int) (string, error) {
	if err := validate(table, setFields, whereField, n); err != nil {
		return "", err
	}

	ph := &placeholders{format: b.Format}
	var sb strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString("; ")
		}
		writeSingle(&sb, ph, table, setFields, whereField)
	}
	return sb.String(), nil
}

// SingleRow builds the statement that updates one row; bind it with
// RowArgs.
func (b Builder) SingleRow(table string, setFields []string, whereField string) (string, error) {
	return b.RowByRow(table, setFields, whereField, 1)
}

func writeSingle(sb *strings.Builder, ph *placeholders, table string, setFields []string, whereField string) {
	sb.WriteString("UPDATE ")
	sb.WriteString(table)
	sb.WriteString(" SET ")
	for j, f := range setFields {
		if j > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f)
		sb.WriteString(" = ")
		sb.WriteString(ph.String())
	}
	sb.WriteString(" WHERE ")
	sb.WriteString(whereField)
	sb.WriteString(" = ")
	sb.WriteString(ph.String())
}

func (b Builder) CaseWhen(table string, setFields []string, whereField string, n int) (string, error) {
	if err := validate(table, setFields, whereField, n); err != nil {
		return "", err
	}

	ph := &placeholders{format: b.Format}
	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(table)
	sb.WriteString(" SET ")
	for i, f := range setFields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f)
		sb.WriteString(" = CASE ")
		sb.WriteString(whereField)
		for j := 0; j < n; j++ {
			sb.WriteString(" WHEN ")
			sb.WriteString(ph.String())
			sb.WriteString(" THEN ")
			sb.WriteString(ph.String())
		}
		sb.WriteString(" ELSE ")
		sb.WriteString(f)
		sb.WriteString(" END")
	}

	sb.WriteString(" WHERE ")
	sb.WriteString(whereField)
	sb.WriteString(" IN (")
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(ph.String())
	}
	sb.WriteString(")")
	return sb.String(), nil
}

// RowArgs orders the arguments of row-by-row statements: each row's values
// followed by its key.
func RowArgs(rows []Row) []any {
	var args []any
	for _, r := range rows {
		args = append(args, r.Values...)
		args = append(args, r.Key)
	}
	return args
}

// CaseWhenArgs orders the arguments of a CASE WHEN statement over nFields
// set fields: (key, value) pairs per field, then the keys of the IN list.
func CaseWhenArgs(rows []Row, nFields int) ([]any, error) {
	args := make([]any, 0, len(rows)*(2*nFields+1))
	for j := 0; j < nFields; j++ {
		for _, r := range rows {
			if len(r.Values) != nFields {
				return nil, sgerror.Newf(sgerror.SG_STATEMENT_ERROR, "row %v has %d values, want %d", r.Key, len(r.Values), nFields)
			}
			args = append(args, r.Key, r.Values[j])
		}
	}
	for _, r := range rows {
		args = append(args, r.Key)
	}
	return args, nil
}
