package model

// Genre classifies events. Genres are seeded and only listed.
type Genre struct {
	ID   int64  `db:"id" json:"id"`     // genres.id
	Name string `db:"name" json:"name"` // genres.name
}
