// Package rundoc reads and validates run documents.
//
// A run document is a JSON or YAML file listing the applications to fetch
// and how. Loading checks structure only: missing packages, malformed
// dates and non-positive counts reject the whole document. Modes and
// frequencies are resolved per app when the run starts, so one bad entry
// does not stop its siblings.
package rundoc

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	perr "playreviews/internal/platform/errors"
	"playreviews/internal/services/reviews/domain"

	"gopkg.in/yaml.v3"
)

// Format is the encoding of a run document
type Format int

const (
	JSON Format = iota
	YAML
)

// FormatOf picks the encoding from a file extension; anything but .yaml or .yml is JSON
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	}
	return JSON
}

// Load reads, decodes and validates the document at path
func Load(path string) (domain.Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Document{}, perr.Wrapf(err, perr.ErrorCodeNotFound, "run document %s", path)
		}
		return domain.Document{}, perr.IOf(err, "read run document %s", path)
	}
	doc, err := Parse(b, FormatOf(path))
	if err != nil {
		return domain.Document{}, perr.WithOp(err, path)
	}
	return doc, nil
}

// Parse decodes and validates a document held in memory
func Parse(b []byte, f Format) (domain.Document, error) {
	var doc domain.Document
	if len(bytes.TrimSpace(b)) == 0 {
		return doc, perr.New(perr.ErrorCodeInvalidArgument, "empty run document")
	}

	var err error
	switch f {
	case YAML:
		err = yaml.Unmarshal(b, &doc)
	default:
		err = json.Unmarshal(b, &doc)
	}
	if err != nil {
		return domain.Document{}, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "decode run document")
	}

	if err := Validate(doc); err != nil {
		return domain.Document{}, err
	}
	return doc, nil
}

// Validate checks the document level rules: apps present, sink names and
// timezone. Per app fields are left to ValidateApp so one bad app does not
// stop its siblings. Every problem found comes back as one joined error with
// code Validation
func Validate(doc domain.Document) error {
	return joined(Validator().Validator.Struct(doc), "invalid run document")
}

// ValidateApp checks one app entry
func ValidateApp(app domain.App) error {
	return joined(Validator().Validator.Struct(app), "invalid app "+app.Package)
}

func joined(err error, msg string) error {
	if err == nil {
		return nil
	}
	probs := Problems(err)
	errs := make([]error, 0, len(probs))
	for _, p := range probs {
		e := perr.Newf(perr.ErrorCodeValidation, "%s", p.Message)
		if p.Field != "" {
			e = perr.WithField(perr.Newf(perr.ErrorCodeValidation, "%s: %s", p.Field, p.Message), p.Field)
		}
		errs = append(errs, e)
	}
	return perr.Wrap(errors.Join(errs...), perr.ErrorCodeValidation, msg)
}
