package tiktok

import (
	"crypto/rand"
	"math/big"

	"github.com/pkg/errors"
)

// maxEventID bounds generated ids to at most 17 decimal digits.
var maxEventID = big.NewInt(100_000_000_000_000_000)

// IDGenerator supplies event ids when the payload does not carry one.
type IDGenerator interface {
	NewID() (string, error)
}

// IDGeneratorFunc adapts a function to IDGenerator.
type IDGeneratorFunc func() (string, error)

func (f IDGeneratorFunc) NewID() (string, error) {
	return f()
}

// RandomID returns a random decimal string in [0, 10^17).
func RandomID() (string, error) {
	n, err := rand.Int(rand.Reader, maxEventID)
	if err != nil {
		return "", errors.Wrap(err, "generate event id")
	}
	return n.String(), nil
}

// StaticID always yields id.
func StaticID(id string) IDGenerator {
	return IDGeneratorFunc(func() (string, error) {
		return id, nil
	})
}
