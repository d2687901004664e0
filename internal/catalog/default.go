package catalog

import (
	_ "embed"
	"fmt"
)

//go:embed data/protocols.json
var defaultData []byte

// Default returns the built-in protocol catalog. It panics if the
// embedded dataset does not validate, which only happens on a broken
// build.
func Default() *Catalog {
	c, skipped, err := ParseJSON(defaultData)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded dataset: %v", err))
	}
	if len(skipped) > 0 {
		panic(fmt.Sprintf("catalog: embedded dataset: %v", skipped[0]))
	}
	return c
}
