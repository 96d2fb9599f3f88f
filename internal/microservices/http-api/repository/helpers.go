package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"appgambit/internal/apperr"
)

// likeEscape is the ESCAPE character used by every substring match.
const likeEscape = `\`

// containsPattern builds a LIKE pattern matching q anywhere, case folded.
// % and _ in q match literally.
func containsPattern(q string) string {
	r := strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")
	return "%" + r.Replace(strings.ToLower(q)) + "%"
}

// likeAny matches the pattern against any of the given columns.
func likeAny(columns ...string) string {
	parts := make([]string, 0, len(columns))
	for _, c := range columns {
		parts = append(parts, "LOWER("+c+") LIKE ? ESCAPE '"+likeEscape+"'")
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

func repeat(v any, n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func offset(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}

// IsDuplicateKey reports a unique-constraint violation from either driver.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// translate maps unique violations onto apperr.ErrConflict and leaves the
// rest, including gorm.ErrRecordNotFound, for the caller.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if IsDuplicateKey(err) {
		return apperr.Conflict(what + " already exists")
	}
	return err
}
