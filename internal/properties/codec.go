package properties

import (
	"bytes"
	"os"

	javaprops "github.com/magiconair/properties"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
)

var loader = &javaprops.Loader{
	Encoding:         javaprops.ISO_8859_1,
	DisableExpansion: true,
}

// Parse reads a .properties document. Keys keep the order they appear in.
// ${} references are left as they are since they are resolved by the engine.
func Parse(data []byte) (*javaprops.Properties, error) {
	p, err := loader.LoadBytes(data)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return p, nil
}

// ReadFile parses the .properties file at path.
func ReadFile(path string) (*javaprops.Properties, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return Parse(data)
}

// Encode renders p in .properties syntax as ISO-8859-1 bytes. Characters outside Latin-1 are
// written as \uXXXX escapes.
func Encode(p *javaprops.Properties) ([]byte, error) {
	var buf bytes.Buffer
	// Write escapes runes above U+00FF but leaves the Latin-1 supplement as UTF-8.
	if _, err := p.Write(&buf, javaprops.ISO_8859_1); err != nil {
		return nil, errors.WithStack(err)
	}
	data, err := charmap.ISO8859_1.NewEncoder().Bytes(buf.Bytes())
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return data, nil
}

func writeFile(path string, p *javaprops.Properties) error {
	data, err := Encode(p)
	if err != nil {
		return err
	}
	return errors.WithStack(os.WriteFile(path, data, 0o644))
}

func newSet() *javaprops.Properties {
	p := javaprops.NewProperties()
	p.DisableExpansion = true
	return p
}

// put only fails when expansion is enabled and a circular reference is found,
// which cannot happen for sets created by newSet.
func put(p *javaprops.Properties, key, value string) {
	_, _, _ = p.Set(key, value)
}
