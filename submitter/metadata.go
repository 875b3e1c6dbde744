package submitter

import (
	"errors"
	"fmt"
)

var ErrUnknownModuleError = errors.New("unknown module error")

// MetaError is a module error resolved through chain metadata.
type MetaError struct {
	Section string
	Name    string
	Docs    []string
}

// Metadata lists the modules of a chain and the errors each can dispatch.
// An error's index within Errors is its module error code.
type Metadata struct {
	Modules []ModuleMetadata `json:"modules"`
}

type ModuleMetadata struct {
	Index  uint8           `json:"index"`
	Name   string          `json:"name"`
	Errors []ErrorMetadata `json:"errors"`
}

type ErrorMetadata struct {
	Name string   `json:"name"`
	Docs []string `json:"docs,omitempty"`
}

func (m *Metadata) FindMetaError(me ModuleError) (*MetaError, error) {
	for _, mod := range m.Modules {
		if mod.Index != me.Index {
			continue
		}
		if int(me.Error) >= len(mod.Errors) {
			break
		}
		e := mod.Errors[me.Error]
		return &MetaError{
			Section: mod.Name,
			Name:    e.Name,
			Docs:    e.Docs,
		}, nil
	}
	return nil, fmt.Errorf("%w: module %d error %d", ErrUnknownModuleError, me.Index, me.Error)
}

// ModuleError returns the error code of the named module error.
func (m *Metadata) ModuleError(section, name string) (ModuleError, bool) {
	for _, mod := range m.Modules {
		if mod.Name != section {
			continue
		}
		for i, e := range mod.Errors {
			if e.Name == name {
				return ModuleError{Index: mod.Index, Error: uint8(i)}, true
			}
		}
	}
	return ModuleError{}, false
}
