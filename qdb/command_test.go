package qdb

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecuteCommandsUndo(t *testing.T) {
	assert := assert.New(t)

	m := map[string]string{"lock:a": "owner1"}
	err := ExecuteCommands(func() error { return errors.New("disk full") },
		NewUpdateCommand(m, "lock:a", "owner2"),
		NewUpdateCommand(m, "lock:a", "owner3"),
		NewDeleteCommand(m, "lock:a"),
		NewUpdateCommand(m, "lock:b", "owner1"),
	)

	assert.Error(err)
	assert.Equal(map[string]string{"lock:a": "owner1"}, m)
}

func TestExecuteCommands(t *testing.T) {
	assert := assert.New(t)

	m := map[string]string{"lock:a": "owner1"}
	saved := 0
	err := ExecuteCommands(func() error { saved++; return nil },
		NewDeleteCommand(m, "lock:a"),
		NewUpdateCommand(m, "lock:b", "owner2"),
	)

	assert.NoError(err)
	assert.Equal(1, saved)
	assert.Equal(map[string]string{"lock:b": "owner2"}, m)
}
