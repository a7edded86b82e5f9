package database

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDialect(t *testing.T) {
	for in, want := range map[string]Dialect{
		"":           Postgres,
		"postgres":   Postgres,
		"PostgreSQL": Postgres,
		"pgx":        Postgres,
		" mysql ":    MySQL,
	} {
		got, err := ParseDialect(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseDialect("sqlite")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	q := `UPDATE seat_holds SET status = ? WHERE id = ? AND note <> 'why?' AND x = ?`
	assert.Equal(t, q, MySQL.Rebind(q))
	assert.Equal(t,
		`UPDATE seat_holds SET status = $1 WHERE id = $2 AND note <> 'why?' AND x = $3`,
		Postgres.Rebind(q))
}

func TestInsertIgnore(t *testing.T) {
	q := `INSERT INTO passengers (email) VALUES (?)`
	assert.Equal(t, `INSERT IGNORE INTO passengers (email) VALUES (?)`, MySQL.InsertIgnore(q))
	assert.Equal(t, q+` ON CONFLICT DO NOTHING`, Postgres.InsertIgnore(q))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.True(t, IsUniqueViolation(&mysql.MySQLError{Number: 1062}))
	assert.False(t, IsUniqueViolation(&mysql.MySQLError{Number: 1213}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "40001"}))
}

func TestDDL(t *testing.T) {
	for _, d := range []Dialect{Postgres, MySQL} {
		stmts := d.DDL()
		require.Len(t, stmts, len(tables))
		for _, s := range stmts {
			assert.NotContains(t, s, "{{", "unexpanded token in %s DDL", d)
		}
		assert.True(t, strings.Contains(stmts[1], "UNIQUE (flight_number, seat_id, travel_class, active)"))
	}
	assert.Contains(t, Postgres.DDL()[0], "BIGSERIAL PRIMARY KEY")
	assert.Contains(t, MySQL.DDL()[0], "AUTO_INCREMENT")
}
