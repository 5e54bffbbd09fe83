// Package diagram turns table and relation records into a Dia diagram.
//
// Preparation assigns object ids, positions, colours and connection ports;
// encoding writes the result in Dia's XML schema. Positions are random: the
// diagram is meant to be arranged in the editor afterwards.
package diagram

// Column is one row of a table shape
type Column struct {
	Key        string `json:"key,omitempty"` // Identifies the column for relation endpoints, defaults to Name
	Name       string `json:"name"`
	Type       string `json:"type"`
	Comment    string `json:"comment"`
	PrimaryKey bool   `json:"primary_key"`
	Nullable   bool   `json:"nullable"`
	Unique     bool   `json:"unique"`
}

// Table is one entity of the diagram
type Table struct {
	Entity string   `json:"entity"` // Unique key relations refer to (e.g., "anyapp.Person")
	Group  string   `json:"group"`  // Tables of a group share a fill colour (the app label)
	Name   string   `json:"name"`   // Displayed name
	Fields []Column `json:"fields"`
}

// Endpoint is one end of a relation. Field refers to a column key and is
// empty for inheritance links. Ends that are not columns get a border port.
type Endpoint struct {
	Entity     string `json:"entity"`
	Field      string `json:"field,omitempty"`
	PrimaryKey bool   `json:"primary_key,omitempty"`
	ManyToMany bool   `json:"many_to_many,omitempty"` // Field names a many-to-many relation, not a column
}

// Relation is one edge of the diagram
type Relation struct {
	Start       Endpoint `json:"start"`
	End         Endpoint `json:"end"`
	StartLabel  string   `json:"start_label"`
	EndLabel    string   `json:"end_label"`
	Dotted      bool     `json:"dotted"`
	Directional bool     `json:"directional"`
	Color       string   `json:"color,omitempty"` // RRGGBB without '#'; empty uses the start table's line colour
}
