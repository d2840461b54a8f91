package tracker

// TokenCipher protects remote access tokens at rest. Tokens are
// encrypted before they reach the store and decrypted only when a
// provider call needs the plaintext.
type TokenCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
