package db

import "strings"

// LikeEscape follows every LIKE built from user input. A backslash would need
// different quoting on MySQL and SQLite, '!' does not.
const LikeEscape = ` ESCAPE '!'`

var likeEscaper = strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)

func EscapeLike(s string) string { return likeEscaper.Replace(s) }

// Contains is the %s% pattern for a substring search.
func Contains(s string) string { return "%" + EscapeLike(s) + "%" }
