package models

// Labeled is implemented by the name-only lookup tables (genres and tags).
type Labeled interface {
	LabelID() uint
	LabelName() string
	SetLabelName(name string)
}

// All lists every model in migration order.
func All() []any {
	return []any{
		&User{}, &Profile{}, &Session{},
		&Genre{}, &Movie{}, &Watchlist{},
		&Tag{}, &Item{}, &Favorite{},
	}
}
