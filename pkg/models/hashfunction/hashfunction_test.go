package hashfunction_test

import (
	"testing"

	"github.com/nsrs/shardgate/pkg/models/hashfunction"
	"github.com/spaolacci/murmur3"
	"github.com/stretchr/testify/assert"
)

func TestApplyIdent(t *testing.T) {
	tests := []struct {
		name     string
		inp      string
		expected uint64
		wantErr  bool
	}{
		{"Plain suffix", "123", 123, false},
		{"Leading zeros", "007", 7, false},
		{"Zero", "0", 0, false},
		{"Empty", "", 0, true},
		{"Letters", "12a", 0, true},
		{"Sign", "-12", 0, true},
		{"Overflow", "99999999999999999999999", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := hashfunction.ApplyHashFunction(tt.inp, hashfunction.HashFunctionIdent)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestApplyDigests(t *testing.T) {
	assert := assert.New(t)

	m, err := hashfunction.ApplyHashFunction("89860012345678901234", hashfunction.HashFunctionMurmur)
	assert.NoError(err)
	assert.Equal(uint64(murmur3.Sum32([]byte("89860012345678901234"))), m)

	c1, err := hashfunction.ApplyHashFunction("ICCID-X", hashfunction.HashFunctionCity)
	assert.NoError(err)
	c2, err := hashfunction.ApplyHashFunction("ICCID-X", hashfunction.HashFunctionCity)
	assert.NoError(err)
	assert.Equal(c1, c2)

	_, err = hashfunction.ApplyHashFunction("1", hashfunction.HashFunctionType(42))
	assert.Error(err)
}

func TestHashFunctionByName(t *testing.T) {
	assert := assert.New(t)

	for _, hf := range []hashfunction.HashFunctionType{
		hashfunction.HashFunctionIdent,
		hashfunction.HashFunctionMurmur,
		hashfunction.HashFunctionCity,
	} {
		got, err := hashfunction.HashFunctionByName(hashfunction.ToString(hf))
		assert.NoError(err)
		assert.Equal(hf, got)
	}

	got, err := hashfunction.HashFunctionByName("")
	assert.NoError(err)
	assert.Equal(hashfunction.HashFunctionIdent, got)

	_, err = hashfunction.HashFunctionByName("sha1")
	assert.Error(err)
	assert.Equal("", hashfunction.ToString(hashfunction.HashFunctionType(7)))
}
