package bridge

import (
	"github.com/dkhoanguyen/dvrk-console/internal/utils"
	"github.com/pkg/errors"
)

// IOSource is one low-level I/O component exposed next to the console.
type IOSource struct {
	Name   string   `json:"name" yaml:"name"`
	Topics []string `json:"topics" yaml:"topics"`
}

type IODocument struct {
	IO []IOSource `json:"io" yaml:"io"`
}

func loadIODocument(path string) (*IODocument, error) {
	doc := &IODocument{}
	if err := utils.ReadDocument(path, doc); err != nil {
		return nil, errors.Wrapf(err, "reading I/O configuration %s", path)
	}
	for _, source := range doc.IO {
		if source.Name == "" {
			return nil, errors.Errorf("I/O configuration %s has an entry without name", path)
		}
	}
	return doc, nil
}
