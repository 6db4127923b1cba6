package kr

import (
	"fmt"
	"strings"

	"github.com/nsrs/shardgate/pkg/models/sgerror"
)

// KeyRangeBound is one end of a range on the sharding column. A nil bound
// is unbounded.
type KeyRangeBound []byte

// KeyRange is a closed range [LowerBound, UpperBound] over fixed-width
// decimal keys such as phone numbers.
type KeyRange struct {
	LowerBound KeyRangeBound
	UpperBound KeyRangeBound
}

func NewKeyRange(lower, upper string) KeyRange {
	var krg KeyRange
	if lower != "" {
		krg.LowerBound = KeyRangeBound(lower)
	}
	if upper != "" {
		krg.UpperBound = KeyRangeBound(upper)
	}
	return krg
}

// CmpRangesLessEqual orders bounds as fixed-width numbers: shorter is less,
// equal lengths compare lexicographically.
func CmpRangesLessEqual(kr []byte, other []byte) bool {
	if len(kr) == len(other) {
		return string(kr) <= string(other)
	}

	return len(kr) < len(other)
}

func CmpRangesEqual(kr []byte, other []byte) bool {
	if len(kr) == len(other) {
		return string(kr) == string(other)
	}

	return false
}

func (krg *KeyRange) IsBounded() bool {
	return krg.LowerBound != nil && krg.UpperBound != nil
}

// CommonPrefix returns the longest common prefix of a and b.
func CommonPrefix(a, b string) string {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}

// CleanPrefix reports whether the range is exactly the set of keys starting
// with some prefix p, i.e. lower == p + "0"*k and upper == p + "9"*k with
// k > 0, and returns p.
func (krg *KeyRange) CleanPrefix() (string, bool) {
	if !krg.IsBounded() {
		return "", false
	}
	lower, upper := string(krg.LowerBound), string(krg.UpperBound)
	if len(lower) != len(upper) {
		return "", false
	}

	p := CommonPrefix(lower, upper)
	k := len(lower) - len(p)
	if p == "" || k == 0 {
		return "", false
	}
	if strings.Trim(lower[len(p):], "0") != "" || strings.Trim(upper[len(p):], "9") != "" {
		return "", false
	}
	return p, true
}

// PrefixRange builds the clean range covering every width-digit key that
// starts with prefix, the range a LIKE 'prefix%' predicate denotes.
func PrefixRange(prefix string, width int) (KeyRange, error) {
	if prefix == "" || width <= len(prefix) {
		return KeyRange{}, sgerror.Newf(sgerror.SG_ROUTING_ERROR, "prefix %q does not fit key width %d", prefix, width)
	}
	k := width - len(prefix)
	return KeyRange{
		LowerBound: KeyRangeBound(prefix + strings.Repeat("0", k)),
		UpperBound: KeyRangeBound(prefix + strings.Repeat("9", k)),
	}, nil
}

// GetKRCondition renders the range as a SQL predicate on column.
// Unbounded sides are omitted; a fully unbounded range yields "TRUE".
func GetKRCondition(column string, krg *KeyRange) string {
	var conds []string
	if krg.LowerBound != nil {
		conds = append(conds, fmt.Sprintf("%s >= '%s'", column, escape(krg.LowerBound)))
	}
	if krg.UpperBound != nil {
		conds = append(conds, fmt.Sprintf("%s <= '%s'", column, escape(krg.UpperBound)))
	}
	if len(conds) == 0 {
		return "TRUE"
	}
	return strings.Join(conds, " AND ")
}

func escape(b KeyRangeBound) string {
	return strings.ReplaceAll(string(b), "'", "''")
}

func (krg KeyRange) String() string {
	lower, upper := "-inf", "+inf"
	if krg.LowerBound != nil {
		lower = string(krg.LowerBound)
	}
	if krg.UpperBound != nil {
		upper = string(krg.UpperBound)
	}
	return fmt.Sprintf("[%s, %s]", lower, upper)
}
