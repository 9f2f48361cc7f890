package manifest

import "encoding/json"

// wireFormat is the pretty-printed on-disk shape of manifest/v1.json
// (spec §6.1).
type wireFormat struct {
	SchemaVersion int     `json:"schema_version"`
	RootHash      string  `json:"root_hash"`
	Entries       []Entry `json:"entries"`
}

func encode(m *Manifest) ([]byte, error) {
	w := wireFormat{SchemaVersion: m.SchemaVersion, RootHash: m.RootHash, Entries: m.Entries}
	return json.MarshalIndent(w, "", "  ")
}

func decode(data []byte) (*Manifest, error) {
	var w wireFormat
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	if w.SchemaVersion == 0 {
		w.SchemaVersion = SchemaVersion
	}
	m := &Manifest{SchemaVersion: w.SchemaVersion, RootHash: w.RootHash, Entries: w.Entries}
	return m, nil
}
