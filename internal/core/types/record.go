package types

// Record maps column names to values. Records are read-only inputs;
// transforms copy them instead of mutating in place.
type Record map[string]Value

func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Dataset is an in-memory columnar table: an ordered column list, one
// record per row, and an optional id->name feature schema for categorical
// columns.
type Dataset struct {
	Columns  []string
	Features map[string]map[int]string
	Records  []Record
}

func (d *Dataset) Len() int { return len(d.Records) }

func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// WithRecords returns a dataset sharing this dataset's schema but holding
// the given records.
func (d *Dataset) WithRecords(records []Record) *Dataset {
	return &Dataset{Columns: d.Columns, Features: d.Features, Records: records}
}
