package config

import (
	"encoding/json"

	"github.com/dkhoanguyen/dvrk-console/internal/utils"
	"github.com/pkg/errors"
)

// ArmKey is the identity of an arm entry.
type ArmKey struct {
	Name string
	Type string
}

func (k ArmKey) String() string {
	return k.Name + "/" + k.Type
}

// ArmSpec is one entry of the top-level "arms" sequence. Only name and type
// are interpreted here, everything else is kept in Extra for the console.
type ArmSpec struct {
	Name  string                 `yaml:"name"`
	Type  string                 `yaml:"type"`
	Extra map[string]interface{} `yaml:",inline"`
}

func (s ArmSpec) Key() ArmKey {
	return ArmKey{Name: s.Name, Type: s.Type}
}

func (s *ArmSpec) UnmarshalJSON(data []byte) error {
	raw := map[string]interface{}{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	name, _ := raw["name"].(string)
	kind, _ := raw["type"].(string)
	delete(raw, "name")
	delete(raw, "type")

	s.Name = name
	s.Type = kind
	s.Extra = raw
	return nil
}

type TeleopSpec struct {
	Master string `json:"master" yaml:"master"`
	Slave  string `json:"slave" yaml:"slave"`
}

// Document is the main console configuration. It is read-only once loaded.
type Document struct {
	Arms       []ArmSpec    `json:"arms" yaml:"arms"`
	PSMTeleops []TeleopSpec `json:"psm-teleops" yaml:"psm-teleops"`
}

// Load reads and parses the configuration document at path. A missing file
// yields *MissingFileError and malformed content *ParseError.
func Load(path string) (*Document, error) {
	if !utils.FileExists(path) {
		return nil, &MissingFileError{Description: "configuration file", Path: path}
	}

	doc := &Document{}
	if err := utils.ReadDocument(path, doc); err != nil {
		var decodeErr *utils.DecodeError
		if errors.As(err, &decodeErr) {
			return nil, &ParseError{Path: path, Err: decodeErr.Err}
		}
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return doc, nil
}
