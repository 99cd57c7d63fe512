package templates

import (
	"context"
	"fmt"
)

type Template struct {
	Code     string `bson:"code" json:"code" yaml:"code"`
	Subject  string `bson:"subject" json:"subject" yaml:"subject"`
	Body     string `bson:"content" json:"content" yaml:"content"`
	Language string `bson:"language" json:"language" yaml:"language"`
	Version  int    `bson:"version" json:"version" yaml:"version"`
}

func (t Template) Validate() error {
	switch {
	case t.Code == "":
		return fmt.Errorf("%w: code is required", ErrInvalidTemplate)
	case t.Body == "":
		return fmt.Errorf("%w: %s: content is required", ErrInvalidTemplate, t.Code)
	case t.Version < 1:
		return fmt.Errorf("%w: %s: version must be positive", ErrInvalidTemplate, t.Code)
	}
	return nil
}

type Store interface {
	// Get returns the highest version of code or ErrTemplateNotFound.
	Get(ctx context.Context, code string) (Template, error)
}
