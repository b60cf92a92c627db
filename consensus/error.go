// Package consensus defines the deterministic errors that reject a state
// transition without halting the chain, and the accumulating validation
// result the pipeline passes between stages.
//
// Every replica must produce byte-identical errors for the same input, so an
// Error carries only a Code and ordered parameters of fixed kinds. The text
// form and the binary payload are both derived from those alone.
package consensus

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/blockberries/cramberry/pkg/cramberry"

	"github.com/dashpay/platform-sub039/inter"
)

// ParamKind is the type tag of a parameter value.
type ParamKind uint8

const (
	ParamUint ParamKind = iota + 1
	ParamBytes
	ParamText
	ParamIdentifier
)

// Param is a named, typed error parameter.
type Param struct {
	Name  string    `cramberry:"1"`
	Kind  ParamKind `cramberry:"2"`
	Uint  uint64    `cramberry:"3"`
	Bytes []byte    `cramberry:"4"`
	Text  string    `cramberry:"5"`
}

func Uint(name string, v uint64) Param { return Param{Name: name, Kind: ParamUint, Uint: v} }

func Bytes(name string, v []byte) Param {
	return Param{Name: name, Kind: ParamBytes, Bytes: append([]byte(nil), v...)}
}

func Text(name, v string) Param { return Param{Name: name, Kind: ParamText, Text: v} }

func ID(name string, id inter.Identifier) Param {
	return Param{Name: name, Kind: ParamIdentifier, Bytes: id.Bytes()}
}

func (p Param) String() string {
	var v string
	switch p.Kind {
	case ParamUint:
		v = strconv.FormatUint(p.Uint, 10)
	case ParamBytes:
		v = "0x" + hex.EncodeToString(p.Bytes)
	case ParamText:
		v = strconv.Quote(p.Text)
	case ParamIdentifier:
		id, _ := inter.IdentifierFromBytes(p.Bytes)
		v = id.String()
	}
	return p.Name + "=" + v
}

// Error is a consensus error.
type Error struct {
	Code   Code    `cramberry:"1"`
	Params []Param `cramberry:"2"`
}

// New returns an error with the given code and parameters.
func New(code Code, params ...Param) *Error {
	return &Error{Code: code, Params: params}
}

// Error returns the stable text form, e.g.
// NonceAlreadyUsed(40001){identity=..., claimed=5, last=5}.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Code.String())
	sb.WriteByte('(')
	sb.WriteString(strconv.FormatUint(uint64(e.Code), 10))
	sb.WriteByte(')')
	if len(e.Params) != 0 {
		sb.WriteByte('{')
		for i, p := range e.Params {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(p.String())
		}
		sb.WriteByte('}')
	}
	return sb.String()
}

// Is matches any *Error with the same code, so errors.Is(err, New(code))
// works without parameters.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Param returns the named parameter.
func (e *Error) Param(name string) (Param, bool) {
	for _, p := range e.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Payload is the deterministic binary form carried in a transaction result.
func (e *Error) Payload() ([]byte, error) {
	return cramberry.Marshal(*e)
}

// DecodePayload parses a payload produced by Payload.
func DecodePayload(b []byte) (*Error, error) {
	var e Error
	if err := cramberry.Unmarshal(b, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
