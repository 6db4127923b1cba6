package sgerror_test

import (
	"fmt"
	"testing"

	"github.com/nsrs/shardgate/pkg/models/sgerror"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	assert := assert.New(t)

	err := sgerror.Newf(sgerror.SG_STATEMENT_ERROR, "invalid identifier %q", "1table")
	assert.Equal(`Code: SGS. Name: Statement generation error. Description: invalid identifier "1table".`, err.Error())
}

func TestUnknownCode(t *testing.T) {
	assert := assert.New(t)

	err := sgerror.New("XXX", "boom")
	assert.Equal("Unexpected error", sgerror.GetMessageByCode(err.ErrorCode))
}

func TestHasCode(t *testing.T) {
	assert := assert.New(t)

	err := fmt.Errorf("register: %w", sgerror.New(sgerror.SG_TASK_ERROR, "task 7 already registered"))
	assert.True(sgerror.HasCode(err, sgerror.SG_TASK_ERROR))
	assert.False(sgerror.HasCode(err, sgerror.SG_LOCK_STORE))
	assert.False(sgerror.HasCode(fmt.Errorf("plain"), sgerror.SG_TASK_ERROR))
}
