package hashfunction

import (
	"fmt"
	"strconv"

	"github.com/go-faster/city"
	"github.com/spaolacci/murmur3"
)

type HashFunctionType int

/* Pre-defined hash functions */
const (
	HashFunctionIdent  = HashFunctionType(0)
	HashFunctionMurmur = HashFunctionType(1)
	HashFunctionCity   = HashFunctionType(2)
)

var errNotNumeric = func(input string) error {
	return fmt.Errorf("identity hash requires a decimal key, got %q", input)
}

// ApplyHashFunction maps a key fragment onto an unsigned integer.
//
// The identity function reads the fragment as a decimal number, so "042"
// yields 42 and anything that is not all digits is an error. Murmur and city
// digest the raw bytes and accept any input.
func ApplyHashFunction(input string, hf HashFunctionType) (uint64, error) {
	switch hf {
	case HashFunctionIdent:
		if input == "" {
			return 0, errNotNumeric(input)
		}
		for i := 0; i < len(input); i++ {
			if input[i] < '0' || input[i] > '9' {
				return 0, errNotNumeric(input)
			}
		}
		n, err := strconv.ParseUint(input, 10, 64)
		if err != nil {
			return 0, err
		}
		return n, nil
	case HashFunctionMurmur:
		return uint64(murmur3.Sum32([]byte(input))), nil
	case HashFunctionCity:
		return uint64(city.Hash32([]byte(input))), nil
	default:
		return 0, fmt.Errorf("unknown hash function type: %d", hf)
	}
}

// HashFunctionByName returns the corresponding HashFunctionType based on the given hash function name.
// An empty name selects the identity function.
func HashFunctionByName(hfn string) (HashFunctionType, error) {
	switch hfn {
	case "identity", "ident", "":
		return HashFunctionIdent, nil
	case "murmur":
		return HashFunctionMurmur, nil
	case "city":
		return HashFunctionCity, nil
	default:
		return 0, fmt.Errorf("unknown hash function type: %s", hfn)
	}
}

// ToString converts a HashFunctionType to its corresponding string representation.
// If the input HashFunctionType is not recognized, an empty string is returned.
func ToString(hf HashFunctionType) string {
	switch hf {
	case HashFunctionIdent:
		return "identity"
	case HashFunctionMurmur:
		return "murmur"
	case HashFunctionCity:
		return "city"
	}
	return ""
}
