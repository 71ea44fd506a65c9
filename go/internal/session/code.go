package session

import (
	"math/rand/v2"
	"strconv"
)

// GenerateCode returns a human-typable 6-digit join code. Uniqueness is not
// guaranteed here; creation retries on collision against the store's unique
// constraint.
func GenerateCode() string {
	return strconv.Itoa(100_000 + rand.IntN(900_000))
}
