package ports

// SecurityPort encrypts data that must not be stored in the clear, such as
// post text in the database.
type SecurityPort interface {
	// Encrypt takes a plaintext and returns a secure, encrypted ciphertext.
	Encrypt(plaintext []byte) (ciphertext []byte, err error)

	// Decrypt takes a ciphertext and returns the original plaintext.
	Decrypt(ciphertext []byte) (plaintext []byte, err error)

	// EncryptString encrypts s and returns it base64-encoded for text columns.
	EncryptString(s string) (string, error)

	// DecryptString reverses EncryptString.
	DecryptString(encoded string) (string, error)
}
