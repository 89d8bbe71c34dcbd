// Package repository implements the PostgreSQL queries for the event feed.
// It uses pgx directly (no ORM). Every operation is a single statement, so
// no transaction ever spans more than one call.
package repository

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern turns a search term into a LIKE pattern (with '\' as the
// escape character) matching any value that contains term literally.
// An empty term matches everything.
func ContainsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
