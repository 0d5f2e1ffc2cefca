// Package checkers provides quicktest checkers shared by the test suites.
package checkers

import (
	"encoding/json"
	"fmt"

	qt "github.com/frankban/quicktest"
	"github.com/yalp/jsonpath"
)

// JSONPathEquals returns a checker asserting that the value at path in a JSON
// document deep-equals the expected value. The document may be a JSON string,
// a []byte, or an already decoded value. Numbers decode as float64.
//
//	c.Assert(body, checkers.JSONPathEquals("$.count"), float64(2))
func JSONPathEquals(path string) qt.Checker {
	return &jsonPathChecker{path: path}
}

type jsonPathChecker struct {
	path string
}

func (c *jsonPathChecker) ArgNames() []string {
	return []string{"document", "want"}
}

func (c *jsonPathChecker) Check(got any, args []any, note func(key string, value any)) error {
	doc, err := decode(got)
	if err != nil {
		return err
	}
	value, err := jsonpath.Read(doc, c.path)
	if err != nil {
		note("path", c.path)
		return fmt.Errorf("cannot read JSON path: %w", err)
	}
	note("path", c.path)
	note("value", value)
	return qt.DeepEquals.Check(value, args, note)
}

func decode(got any) (any, error) {
	var data []byte
	switch v := got.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return got, nil
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, qt.BadCheckf("document is not valid JSON: %v", err)
	}
	return doc, nil
}
