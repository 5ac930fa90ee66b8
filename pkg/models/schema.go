package models

// DatabaseMeta is the schema snapshot of one database on one server.
// Ids are instance-local; only names are compared across servers.
type DatabaseMeta struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Engine string  `json:"engine"`
	Tables []Table `json:"tables"`
}

type Table struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Schema      string  `json:"schema"`
	Fields      []Field `json:"fields"`
}

type Field struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	TableID     int    `json:"table_id"`
	BaseType    string `json:"base_type"`
}

// Database is an entry of the database list endpoint.
type Database struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Engine      string `json:"engine"`
	Description string `json:"description"`
}

// TableByID returns the table with the given id, or nil.
func (m *DatabaseMeta) TableByID(id int) *Table {
	if m == nil {
		return nil
	}
	for i := range m.Tables {
		if m.Tables[i].ID == id {
			return &m.Tables[i]
		}
	}
	return nil
}

// TableByName returns the first table with the given name, or nil.
func (m *DatabaseMeta) TableByName(name string) *Table {
	if m == nil {
		return nil
	}
	for i := range m.Tables {
		if m.Tables[i].Name == name {
			return &m.Tables[i]
		}
	}
	return nil
}

func (t *Table) FieldByID(id int) *Field {
	for i := range t.Fields {
		if t.Fields[i].ID == id {
			return &t.Fields[i]
		}
	}
	return nil
}

func (t *Table) FieldByName(name string) *Field {
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return &t.Fields[i]
		}
	}
	return nil
}
