package alm

import "strconv"

// Entity is the generic record shape the QC ALM REST API uses for every
// resource type. Each entity is a flat list of named fields; a field may
// carry multiple values, but the export only ever deals with single-valued
// fields (multi-valued ones are skipped, matching the vendor UI behavior).
type Entity struct {
	Type   string        `json:"Type"`
	Fields []EntityField `json:"Fields"`
}

// EntityField is a single named field of an Entity.
type EntityField struct {
	Name   string       `json:"Name"`
	Values []FieldValue `json:"values"`
}

// FieldValue holds one value of a field. ALM serializes empty fields as
// {"value": null}, hence the pointer.
type FieldValue struct {
	Value *string `json:"value"`
}

// entityList is the envelope of every ALM list endpoint.
type entityList struct {
	TotalResults int      `json:"TotalResults"`
	Entities     []Entity `json:"entities"`
}

// Field returns the value of a single-valued field. The second return is
// false when the field is absent, empty, or multi-valued.
func (e Entity) Field(name string) (string, bool) {
	for _, f := range e.Fields {
		if f.Name != name {
			continue
		}
		if len(f.Values) != 1 || f.Values[0].Value == nil {
			return "", false
		}
		return *f.Values[0].Value, true
	}
	return "", false
}

// IntField returns a single-valued field parsed as an integer.
func (e Entity) IntField(name string) (int, bool) {
	s, ok := e.Field(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// FieldMap flattens the entity into a plain map of its single-valued
// fields. Multi-valued and empty fields are dropped.
func (e Entity) FieldMap() map[string]string {
	m := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		if len(f.Values) != 1 || f.Values[0].Value == nil {
			continue
		}
		m[f.Name] = *f.Values[0].Value
	}
	return m
}

// Folder is a grouping node of the test-plan tree.
type Folder struct {
	ID       int
	Name     string
	ParentID int
}

// Test is a leaf record of the test-plan tree. Fields holds the raw vendor
// field names and values as returned by the server.
type Test struct {
	ID       int
	FolderID int
	Fields   map[string]string
}

func folderFromEntity(e Entity) Folder {
	id, _ := e.IntField("id")
	name, _ := e.Field("name")
	parent, _ := e.IntField("parent-id")
	return Folder{ID: id, Name: name, ParentID: parent}
}

func testFromEntity(e Entity) Test {
	id, _ := e.IntField("id")
	parent, _ := e.IntField("parent-id")
	return Test{ID: id, FolderID: parent, Fields: e.FieldMap()}
}
