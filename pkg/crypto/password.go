package crypto

import "golang.org/x/crypto/bcrypt"

// passwordCost is the bcrypt work factor applied to every stored credential.
const passwordCost = 10

// HashPassword produces a salted one-way digest of plain. Each call generates a
// fresh salt, so hashing the same password twice yields different digests.
func HashPassword(plain string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plain), passwordCost)
}

// ComparePassword checks plain against a stored digest. A nil result means the
// password matches; bcrypt performs the comparison in constant time.
func ComparePassword(hash []byte, plain string) error {
	return bcrypt.CompareHashAndPassword(hash, []byte(plain))
}
