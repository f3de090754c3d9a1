/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */
package storage

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

//go:embed manifest.schema.json
var manifestSchema []byte

// ErrInvalidManifest is returned when a manifest does not conform to the workspace schema.
var ErrInvalidManifest = errors.New("invalid manifest")

var schemaLoader = gojsonschema.NewBytesLoader(manifestSchema)

// ManifestSchema returns the JSON schema used to validate scenes.json.
func ManifestSchema() []byte { return append([]byte(nil), manifestSchema...) }

// ValidateManifest checks raw manifest bytes against the workspace schema.
func ValidateManifest(data []byte) error {
	res, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidManifest, strings.Join(msgs, "; "))
	}
	return nil
}
