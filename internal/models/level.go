package models

// Level is one puzzle definition. It is immutable after catalog load:
// evaluations read it but never hold a reference past a single request.
type Level struct {
	ID                int
	Banner            string // e.g. "LEVEL 1: PERIMETER GATE"
	Title             string
	StorySetup        string
	GatekeeperMessage string
	Hint              string
	Tables            []Table
	ReferenceQuery    string
	UnlockCode        string
}

// Table is a seed table definition: ordered columns and ordered seed rows.
// Row order is insertion order and may be significant for the reference
// query (LIMIT without ORDER BY).
type Table struct {
	Name    string
	Columns []string
	Rows    []map[string]any
}

// PublicLevel is the projection exposed to players. It must never carry
// seed rows, the reference query, or the unlock code.
type PublicLevel struct {
	ID                int                    `json:"id"`
	Level             string                 `json:"level"`
	Title             string                 `json:"title"`
	StorySetup        string                 `json:"storySetup"`
	GatekeeperMessage string                 `json:"gatekeeperMessage"`
	Hint              string                 `json:"hint"`
	Tables            map[string]PublicTable `json:"tables"`
}

// PublicTable exposes schema only.
type PublicTable struct {
	Columns []string `json:"columns"`
}

// Public returns the player-facing projection of the level.
func (l *Level) Public() *PublicLevel {
	pub := &PublicLevel{
		ID:                l.ID,
		Level:             l.Banner,
		Title:             l.Title,
		StorySetup:        l.StorySetup,
		GatekeeperMessage: l.GatekeeperMessage,
		Hint:              l.Hint,
		Tables:            make(map[string]PublicTable, len(l.Tables)),
	}

	for _, t := range l.Tables {
		cols := make([]string, len(t.Columns))
		copy(cols, t.Columns)
		pub.Tables[t.Name] = PublicTable{Columns: cols}
	}

	return pub
}
