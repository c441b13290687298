package security

import (
	"CommunicationHub/internal/core/ports"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// aesService implements ports.SecurityPort with AES-GCM. The nonce is
// prepended to every ciphertext.
type aesService struct {
	gcm cipher.AEAD
	log zerolog.Logger
}

// NewAESService accepts a 16 or 32 byte key.
func NewAESService(encryptionKey []byte, baseLogger *zerolog.Logger) (ports.SecurityPort, error) {
	if len(encryptionKey) != 16 && len(encryptionKey) != 32 {
		return nil, errors.New("encryption key must be 16 or 32 bytes")
	}

	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("could not create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("could not create GCM: %w", err)
	}

	log := baseLogger.With().Str("component", "security_service").Logger()
	log.Info().Int("key_bits", len(encryptionKey)*8).Msg("Security service initialized")

	return &aesService{gcm: gcm, log: log}, nil
}

// NewAESServiceFromHex decodes a hex key, as found in ENCRYPTION_KEY.
func NewAESServiceFromHex(hexKey string, baseLogger *zerolog.Logger) (ports.SecurityPort, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key is not valid hex: %w", err)
	}
	return NewAESService(key, baseLogger)
}

func (s *aesService) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		s.log.Error().Err(err).Msg("Failed to generate nonce")
		return nil, fmt.Errorf("could not generate nonce: %w", err)
	}

	return s.gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *aesService) Decrypt(ciphertext []byte) ([]byte, error) {
	nonceSize := s.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, errors.New("ciphertext is too short")
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := s.gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to decrypt ciphertext (tampered or wrong key?)")
		return nil, fmt.Errorf("could not decrypt: %w", err)
	}

	return plaintext, nil
}

func (s *aesService) EncryptString(plain string) (string, error) {
	sealed, err := s.Encrypt([]byte(plain))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (s *aesService) DecryptString(encoded string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("ciphertext is not valid base64: %w", err)
	}
	plain, err := s.Decrypt(sealed)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
