package utils

import gonanoid "github.com/matoous/go-nanoid/v2"

var nanoidAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// NanoIDSize yields a short uppercase identifier, used for server-generated
// report numbers.
func NanoIDSize(size int) string {
	return gonanoid.MustGenerate(nanoidAlphabet, size)
}
