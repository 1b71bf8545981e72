package kind

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Kind names a data kind.
type Kind string

// Built-in kinds.
const (
	String  Kind = "string"
	Int     Kind = "int"
	Float   Kind = "float"
	Bool    Kind = "bool"
	Map     Kind = "map"
	Records Kind = "records"
	Path    Kind = "path"
	File    Kind = "file"
	CSV     Kind = "csv"
	JSON    Kind = "json"
	HTML    Kind = "html"
	H5      Kind = "h5"
	MEX     Kind = "mex"
	Cloupe  Kind = "cloupe"
)

// Direction distinguishes input ports from output ports.
type Direction int

const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	if d == Out {
		return "output"
	}
	return "input"
}

// builtins maps every built-in kind to its carrier type.
var builtins = map[Kind]cty.Type{
	String:  cty.String,
	Int:     cty.Number,
	Float:   cty.Number,
	Bool:    cty.Bool,
	Map:     cty.Map(cty.String),
	Records: cty.List(cty.Map(cty.String)),
	Path:    cty.String,
	File:    cty.String,
	CSV:     cty.String,
	JSON:    cty.String,
	HTML:    cty.String,
	H5:      cty.String,
	MEX:     cty.String,
	Cloupe:  cty.String,
}

// fileLike kinds are carried as a filesystem path to an artifact.
var fileLike = map[Kind]bool{
	Path:   true,
	File:   true,
	CSV:    true,
	JSON:   true,
	HTML:   true,
	H5:     true,
	MEX:    true,
	Cloupe: true,
}

// Compatible reports whether a value produced as kind producer may feed a
// port declared as kind consumer. Matching is exact.
func Compatible(producer, consumer Kind) bool {
	return producer == consumer
}

// MismatchError is returned when a binding connects two ports, or a literal
// and a port, whose kinds differ.
type MismatchError struct {
	// Source describes where the value comes from, e.g. "step.a.x.output.out".
	Source string
	// Target describes the receiving port, e.g. "b.y.in".
	Target string
	Have   Kind
	Want   Kind
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("kind mismatch: %s produces %q but %s expects %q", e.Source, e.Have, e.Target, e.Want)
}
