package entity

// Hall is reference data owned by the venue collaborator; the core reads
// it only to validate that showtimes point at a real room.
type Hall struct {
	BaseNoDelete
	Name       string `db:"name"`
	TotalSeats int    `db:"total_seats"`
}
