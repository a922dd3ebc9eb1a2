package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRejectsBadExpression(t *testing.T) {
	s := New()
	err := s.Add("not a cron", "job", func() {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron expression")
}

func TestAddAcceptsStandardExpression(t *testing.T) {
	s := New()
	require.NoError(t, s.Add("*/5 * * * *", "job", func() {}))
	s.Start()
	<-s.Stop().Done()
}
