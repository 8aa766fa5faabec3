package postgres

import (
	"testing"

	"warden/internal/domain/entity"

	"github.com/stretchr/testify/assert"
)

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%smith%", likePattern("smith"))
	assert.Equal(t, `%100\%\_off\\%`, likePattern(`100%_off\`))
}

func TestOrderClause(t *testing.T) {
	testCases := []struct {
		name   string
		filter entity.UserFilter
		want   string
	}{
		{"default", entity.UserFilter{}, "created_at DESC, email ASC"},
		{"created asc", entity.UserFilter{SortOrder: entity.SortAsc}, "created_at ASC, email ASC"},
		{"name asc", entity.UserFilter{SortBy: entity.SortByName, SortOrder: entity.SortAsc}, "first_name ASC, last_name ASC, email ASC"},
		{"unknown field", entity.UserFilter{SortBy: "password_hash"}, "created_at DESC, email ASC"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, orderClause(tc.filter.Normalize()))
		})
	}
}
