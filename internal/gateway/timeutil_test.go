package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMillis(t *testing.T) {
	got, err := ParseMillis("1700000000123")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 11, 14, 22, 13, 20, 123e6, time.UTC), got)
	assert.Equal(t, "1700000000123", FormatMillis(got))

	for _, bad := range []string{"", "abc", "-5", "1.5"} {
		_, err := ParseMillis(bad)
		assert.Error(t, err, bad)
	}
}
