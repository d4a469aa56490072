package models

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// Encode serializes a fitted classifier.
func Encode(c Classifier) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(c); err != nil {
		return nil, fmt.Errorf("encode %s: %w", c.Name(), err)
	}
	return buf.Bytes(), nil
}

// Decode restores the classifier called name from data.
func Decode(name string, data []byte) (Classifier, error) {
	c, err := New(name)
	if err != nil {
		return nil, err
	}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(c); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return c, nil
}
