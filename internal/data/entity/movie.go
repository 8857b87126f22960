package entity

// Movie is reference data owned by the catalog collaborator. The core only
// reads the duration to derive showtime end times.
type Movie struct {
	BaseNoDelete
	Title             string `db:"title"`
	DurationInMinutes int    `db:"duration_in_minutes"`
}
