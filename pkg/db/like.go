package db

import "strings"

// LikeEscape is the ESCAPE clause matching the patterns built by Contains.
const LikeEscape = `ESCAPE '\'`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE wildcards so value matches literally.
func EscapeLike(value string) string {
	return likeEscaper.Replace(value)
}

// Contains returns a LIKE pattern matching value anywhere in a column. Use it
// with LikeEscape.
func Contains(value string) string {
	return "%" + EscapeLike(value) + "%"
}
