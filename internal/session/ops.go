package session

import (
	"errors"
	"fmt"

	"github.com/GriffinCanCode/zentat/internal/dom"
)

// Mutation op kinds.
const (
	OpSetText    = "set_text"
	OpSetHTML    = "set_html"
	OpAppendHTML = "append_html"
	OpSetAttr    = "set_attr"
	OpRemoveAttr = "remove_attr"
	OpRemove     = "remove"
)

// ErrInvalidOp is returned for malformed mutation ops.
var ErrInvalidOp = errors.New("invalid op")

// Op is one document change applied to every element matching Selector.
type Op struct {
	Op       string `json:"op" binding:"required"`
	Selector string `json:"selector" binding:"required"`
	Value    string `json:"value,omitempty"`
	// Name is the attribute name for set_attr and remove_attr.
	Name string `json:"name,omitempty"`
}

// Validate checks the op shape without touching a document.
func (o Op) Validate() error {
	if o.Selector == "" {
		return fmt.Errorf("%w: selector required", ErrInvalidOp)
	}
	switch o.Op {
	case OpSetText, OpSetHTML, OpAppendHTML, OpRemove:
		return nil
	case OpSetAttr, OpRemoveAttr:
		if o.Name == "" {
			return fmt.Errorf("%w: %s needs an attribute name", ErrInvalidOp, o.Op)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown op %q", ErrInvalidOp, o.Op)
	}
}

func (o Op) apply(doc *dom.Document) error {
	targets := dom.Select(doc.Root(), o.Selector)
	if len(targets) == 0 {
		return fmt.Errorf("%w: selector %q matched nothing", ErrInvalidOp, o.Selector)
	}
	for _, n := range targets {
		switch o.Op {
		case OpSetText:
			doc.SetText(n, o.Value)
		case OpSetHTML:
			if err := doc.SetInnerHTML(n, o.Value); err != nil {
				return err
			}
		case OpAppendHTML:
			if err := doc.AppendHTML(n, o.Value); err != nil {
				return err
			}
		case OpSetAttr:
			doc.SetAttr(n, o.Name, o.Value)
		case OpRemoveAttr:
			doc.RemoveAttr(n, o.Name)
		case OpRemove:
			doc.Remove(n)
		}
	}
	return nil
}
