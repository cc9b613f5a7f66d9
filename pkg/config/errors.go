package config

import "fmt"

// MissingFileError reports a required file that does not exist.
type MissingFileError struct {
	Description string
	Path        string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("file not found: %s; %s", e.Description, e.Path)
}

// ParseError reports a configuration document that is not well formed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse configuration %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
