package models

// SketchRecord maps a local sketch name to its remote project id.
type SketchRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SketchMap is the ordered list of known sketches, persisted as sketchesMap.json.
// Names are expected to be unique but nothing enforces it; Find returns the
// first match.
type SketchMap []SketchRecord

// Find returns the first record with the given name.
func (m SketchMap) Find(name string) (SketchRecord, bool) {
	for _, r := range m {
		if r.Name == name {
			return r, true
		}
	}
	return SketchRecord{}, false
}

// Add appends a record and returns the extended map.
func (m SketchMap) Add(id, name string) SketchMap {
	return append(m, SketchRecord{ID: id, Name: name})
}
