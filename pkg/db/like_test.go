package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainsEscapesWildcards(t *testing.T) {
	assert.Equal(t, `%100\% natural%`, Contains("100% natural"))
	assert.Equal(t, `%snake\_case%`, Contains("snake_case"))
	assert.Equal(t, `%a\\b%`, Contains(`a\b`))
}

func TestContainsMatchesLiterallyInSQLite(t *testing.T) {
	conn := newTestDB(t)
	require.NoError(t, conn.Exec("CREATE TABLE notes (body TEXT)").Error)
	for _, body := range []string{"100% natural", "plain", "snake_case", "snakeXcase"} {
		require.NoError(t, conn.Exec("INSERT INTO notes (body) VALUES (?)", body).Error)
	}

	count := func(search string) int64 {
		var n int64
		err := conn.Table("notes").Where("body LIKE ? "+LikeEscape, Contains(search)).Count(&n).Error
		require.NoError(t, err)
		return n
	}
	assert.EqualValues(t, 1, count("%"))
	assert.EqualValues(t, 1, count("_"))
	assert.EqualValues(t, 1, count("snake_case"))
	assert.EqualValues(t, 4, count(""))
}
