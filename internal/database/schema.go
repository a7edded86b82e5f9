package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Tables are declared once with dialect tokens and expanded per dialect.
// {{ID}} is the auto-increment primary key, {{REF}} a column referencing
// one, {{TS}} a timestamp defaulting to now.
var tables = []struct {
	name string
	ddl  string
}{
	{"passengers", `CREATE TABLE IF NOT EXISTS passengers (
		id {{ID}},
		first_name VARCHAR(100) NOT NULL,
		last_name VARCHAR(100) NOT NULL,
		passport VARCHAR(32) NULL,
		id_card VARCHAR(32) NULL,
		email VARCHAR(255) NULL,
		phone VARCHAR(32) NOT NULL DEFAULT '',
		created_at {{TS}},
		CONSTRAINT uq_passengers_passport UNIQUE (passport),
		CONSTRAINT uq_passengers_id_card UNIQUE (id_card),
		CONSTRAINT uq_passengers_email UNIQUE (email)
	)`},
	// active is TRUE for PENDING/CONFIRMED holds and NULL once cancelled.
	// NULLs never collide in a unique index, so a cancelled row keeps its
	// history without blocking a new hold on the same seat.
	{"seat_holds", `CREATE TABLE IF NOT EXISTS seat_holds (
		id {{ID}},
		flight_number VARCHAR(32) NOT NULL,
		seat_id VARCHAR(8) NOT NULL,
		travel_class VARCHAR(32) NOT NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'PENDING',
		active BOOLEAN NULL DEFAULT TRUE,
		passenger_id {{REF}} NULL,
		booking_code CHAR(6) NULL,
		clerk_id VARCHAR(128) NULL,
		meal VARCHAR(64) NULL,
		service VARCHAR(64) NULL,
		baggage VARCHAR(64) NULL,
		created_at {{TS}},
		updated_at {{TS}},
		CONSTRAINT uq_seat_holds_seat UNIQUE (flight_number, seat_id, travel_class, active),
		CONSTRAINT uq_seat_holds_booking_code UNIQUE (booking_code),
		CONSTRAINT fk_seat_holds_passenger FOREIGN KEY (passenger_id) REFERENCES passengers (id)
	)`},
	{"aircraft", `CREATE TABLE IF NOT EXISTS aircraft (
		id {{ID}},
		model VARCHAR(64) NOT NULL,
		registration VARCHAR(16) NOT NULL,
		CONSTRAINT uq_aircraft_registration UNIQUE (registration)
	)`},
	{"aircraft_classes", `CREATE TABLE IF NOT EXISTS aircraft_classes (
		id {{ID}},
		aircraft_id {{REF}} NOT NULL,
		travel_class VARCHAR(32) NOT NULL,
		first_row INT NOT NULL DEFAULT 1,
		row_count INT NOT NULL,
		column_count INT NOT NULL,
		CONSTRAINT uq_aircraft_classes UNIQUE (aircraft_id, travel_class),
		CONSTRAINT fk_aircraft_classes_aircraft FOREIGN KEY (aircraft_id) REFERENCES aircraft (id)
	)`},
}

// DDL returns the CREATE TABLE statements for the dialect in dependency order.
func (d Dialect) DDL() []string {
	var r *strings.Replacer
	if d == MySQL {
		r = strings.NewReplacer(
			"{{ID}}", "BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY",
			"{{REF}}", "BIGINT UNSIGNED",
			"{{TS}}", "DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP",
		)
	} else {
		r = strings.NewReplacer(
			"{{ID}}", "BIGSERIAL PRIMARY KEY",
			"{{REF}}", "BIGINT",
			"{{TS}}", "TIMESTAMPTZ NOT NULL DEFAULT NOW()",
		)
	}
	out := make([]string, 0, len(tables))
	for _, t := range tables {
		out = append(out, r.Replace(t.ddl))
	}
	return out
}

// SyncSchema creates any missing tables.  Existing tables are left as
// they are; there are no migration files.
func SyncSchema(ctx context.Context, db *sql.DB, d Dialect) error {
	for i, stmt := range d.DDL() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table %s: %w", tables[i].name, err)
		}
	}
	return nil
}
