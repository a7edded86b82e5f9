package model

// Aircraft is a read-only catalog entry describing an airframe.  The
// reservation service only reads it to render seat maps.
type Aircraft struct {
	ID           uint64 `json:"id"`           // aircraft.id
	Model        string `json:"model"`        // aircraft.model
	Registration string `json:"registration"` // aircraft.registration
}

// AircraftClass describes one cabin of an aircraft.  Rows are numbered
// from FirstRow and columns are lettered from A, so a cabin with
// FirstRow=10, RowCount=2 and ColumnCount=3 holds seats 10A..11C.
type AircraftClass struct {
	ID          uint64 // aircraft_classes.id
	AircraftID  uint64 // aircraft_classes.aircraft_id
	TravelClass string // aircraft_classes.travel_class
	FirstRow    uint32 // aircraft_classes.first_row
	RowCount    uint32 // aircraft_classes.row_count
	ColumnCount uint32 // aircraft_classes.column_count
}
