package postgres

import (
	"strings"

	"warden/internal/domain/entity"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a substring match with LIKE wildcards in the input escaped.
func likePattern(value string) string {
	return "%" + likeEscaper.Replace(value) + "%"
}

// orderClause maps the normalized filter to a fixed ORDER BY. Only whitelisted columns are emitted.
func orderClause(filter entity.UserFilter) string {
	direction := "DESC"
	if filter.SortOrder == entity.SortAsc {
		direction = "ASC"
	}

	if filter.SortBy == entity.SortByName {
		return "first_name " + direction + ", last_name " + direction + ", email ASC"
	}

	return "created_at " + direction + ", email ASC"
}
