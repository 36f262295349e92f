package models

import "github.com/google/uuid"

// assignID fills a zero primary key client-side. Postgres would default it
// anyway, sqlite cannot.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
