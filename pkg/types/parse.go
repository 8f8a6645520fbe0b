package types

import (
	"fmt"
	"strings"
	"unicode"
)

var simpleNames = map[string]Kind{
	"bool":       KindBool,
	"boolean":    KindBool,
	"int8":       KindInt8,
	"byte":       KindInt8,
	"int16":      KindInt16,
	"short":      KindInt16,
	"int32":      KindInt32,
	"int":        KindInt32,
	"integer":    KindInt32,
	"int64":      KindInt64,
	"long":       KindInt64,
	"float32":    KindFloat32,
	"float":      KindFloat32,
	"float64":    KindFloat64,
	"double":     KindFloat64,
	"decimal":    KindDecimal,
	"bigdecimal": KindDecimal,
	"string":     KindString,
	"unixtime":   KindUnixTime,
	"datetime":   KindUnixTime,
	"date":       KindUnixTime,
	"bytes":      KindBytes,
	"native":     KindNative,
	"object":     KindNative,
}

// Parse builds a type from its textual form, for example
//
//	int64
//	array(float64)
//	composite(point){x:float64,y:float64}
//	tabular(ports){name:string,up:bool}[name]
//
// "dictionary" and "table" are accepted as aliases of composite and tabular.
// The optional bracketed list after a table names its index columns.
func Parse(s string) (Type, error) {
	p := &parser{src: s}
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return t, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Type {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

type parser struct {
	src string
	pos int
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s at offset %d in %q", ErrInvalidType, fmt.Sprintf(format, args...), p.pos, p.src)
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *parser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := rune(p.src[p.pos])
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '_' && c != '-' && c != '.' {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *parser) accept(c byte) bool {
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(c byte) error {
	if !p.accept(c) {
		return p.errorf("expected %q", c)
	}
	return nil
}

func (p *parser) parseType() (Type, error) {
	name := strings.ToLower(p.ident())
	if name == "" {
		return nil, p.errorf("expected type name")
	}
	if k, ok := simpleNames[name]; ok {
		t, _ := Simple(k)
		return t, nil
	}
	switch name {
	case "array":
		if err := p.expect('('); err != nil {
			return nil, err
		}
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return NewArray(elem), nil
	case "composite", "dictionary":
		typeName, fields, err := p.parseRecord()
		if err != nil {
			return nil, err
		}
		return NewComposite(typeName, fields...)
	case "tabular", "table":
		typeName, fields, err := p.parseRecord()
		if err != nil {
			return nil, err
		}
		row, err := NewComposite(typeName+".row", fields...)
		if err != nil {
			return nil, err
		}
		var index []string
		if p.accept('[') {
			for {
				col := p.ident()
				if col == "" {
					return nil, p.errorf("expected index column")
				}
				index = append(index, col)
				if p.accept(']') {
					break
				}
				if err := p.expect(','); err != nil {
					return nil, err
				}
			}
		}
		return NewTabular(typeName, row, index...)
	}
	return nil, p.errorf("unknown type %q", name)
}

func (p *parser) parseRecord() (string, []Field, error) {
	if err := p.expect('('); err != nil {
		return "", nil, err
	}
	name := p.ident()
	if err := p.expect(')'); err != nil {
		return "", nil, err
	}
	if err := p.expect('{'); err != nil {
		return "", nil, err
	}
	var fields []Field
	for {
		fname := p.ident()
		if fname == "" {
			return "", nil, p.errorf("expected field name")
		}
		if err := p.expect(':'); err != nil {
			return "", nil, err
		}
		ft, err := p.parseType()
		if err != nil {
			return "", nil, err
		}
		fields = append(fields, Field{Name: fname, Type: ft})
		if p.accept('}') {
			return name, fields, nil
		}
		if err := p.expect(','); err != nil {
			return "", nil, err
		}
	}
}
