package shardmap

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/nsrs/shardgate/pkg/models/sgerror"
)

const maxRangeShards = 10000

var (
	ErrEmptyDescriptor = sgerror.New(sgerror.SG_SHARD_MAP_ERROR, "empty data node descriptor")

	rangeToken = regexp.MustCompile(`\$\{\s*(\d+)\s*\.\.\s*(\d+)\s*\}`)
	validKey   = regexp.MustCompile(`^[A-Za-z0-9]+$`)
)

// ParseDataNodes extracts shard keys from a data node descriptor. Accepted
// shapes:
//
//	ds0.number_resource_${['139','177']}      bracketed quoted list
//	ds0.sim_card_${0..9}                      numeric range
//	ds0.number_resource_139,ds0.number_resource_177
//	number_resource_139
//
// In the last two shapes the key is the part after the last underscore.
func ParseDataNodes(descriptor string) ([]string, error) {
	descriptor = strings.TrimSpace(descriptor)
	if descriptor == "" {
		return nil, ErrEmptyDescriptor
	}

	var (
		keys []string
		err  error
	)
	switch {
	case strings.Contains(descriptor, "['"):
		keys, err = parseQuotedList(descriptor)
	case rangeToken.MatchString(descriptor):
		keys, err = parseRange(descriptor)
	case strings.Contains(descriptor, ","):
		for _, name := range strings.Split(descriptor, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if k, ok := suffix(name); ok {
				keys = append(keys, k)
			}
		}
	default:
		if k, ok := suffix(descriptor); ok {
			keys = []string{k}
		}
	}
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, sgerror.Newf(sgerror.SG_SHARD_MAP_ERROR, "no shard keys in descriptor %q", descriptor)
	}
	for _, k := range keys {
		if !validKey.MatchString(k) {
			return nil, sgerror.Newf(sgerror.SG_SHARD_MAP_ERROR, "invalid shard key %q in descriptor %q", k, descriptor)
		}
	}
	return keys, nil
}

func parseQuotedList(descriptor string) ([]string, error) {
	start := strings.Index(descriptor, "['") + 2
	end := strings.LastIndex(descriptor, "']")
	if end <= start {
		return nil, sgerror.Newf(sgerror.SG_SHARD_MAP_ERROR, "unterminated list in descriptor %q", descriptor)
	}

	var keys []string
	for _, k := range strings.Split(descriptor[start:end], "','") {
		k = strings.TrimSpace(k)
		if k != "" {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// parseRange expands ${a..b}. A zero-padded lower bound pads every key to
// its width.
func parseRange(descriptor string) ([]string, error) {
	m := rangeToken.FindStringSubmatch(descriptor)
	from, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, sgerror.Newf(sgerror.SG_SHARD_MAP_ERROR, "bad range start in %q", descriptor)
	}
	to, err := strconv.Atoi(m[2])
	if err != nil {
		return nil, sgerror.Newf(sgerror.SG_SHARD_MAP_ERROR, "bad range end in %q", descriptor)
	}
	if from > to {
		return nil, sgerror.Newf(sgerror.SG_SHARD_MAP_ERROR, "inverted range %d..%d in %q", from, to, descriptor)
	}
	if to-from+1 > maxRangeShards {
		return nil, sgerror.Newf(sgerror.SG_SHARD_MAP_ERROR, "range %d..%d in %q is too wide", from, to, descriptor)
	}

	width := 0
	if len(m[1]) > 1 && m[1][0] == '0' {
		width = len(m[1])
	}
	keys := make([]string, 0, to-from+1)
	for i := from; i <= to; i++ {
		keys = append(keys, fmt.Sprintf("%0*d", width, i))
	}
	return keys, nil
}

func suffix(name string) (string, bool) {
	i := strings.LastIndex(name, "_")
	if i <= 0 || i >= len(name)-1 {
		return "", false
	}
	return name[i+1:], true
}
