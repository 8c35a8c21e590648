package mail

import (
	"errors"
	"testing"

	"github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	message string
	params  types.Params
	err     error
}

func (s *recordingSender) Send(message string, params *types.Params) []error {
	s.message = message
	s.params = *params
	return []error{s.err}
}

func TestMailer_Disabled(t *testing.T) {
	m, err := NewMailer("  ", 0)
	require.NoError(t, err)
	assert.False(t, m.Enabled())
	assert.NoError(t, m.Send("farmer@example.com", "x", "y"))
}

func TestMailer_Send(t *testing.T) {
	s := &recordingSender{}
	m := newWithSender(s)

	require.NoError(t, m.Send("farmer@example.com", "Верификация одобрена", "Ваша ферма подтверждена"))
	assert.Equal(t, "Ваша ферма подтверждена", s.message)
	assert.Equal(t, "farmer@example.com", s.params["toaddresses"])
	title, ok := s.params.Title()
	assert.True(t, ok)
	assert.Equal(t, "Верификация одобрена", title)
}

func TestMailer_SendError(t *testing.T) {
	m := newWithSender(&recordingSender{err: errors.New("smtp down")})
	assert.Error(t, m.Send("a@b.c", "s", "b"))
	assert.Error(t, newWithSender(&recordingSender{}).Send("", "s", "b"))
}
