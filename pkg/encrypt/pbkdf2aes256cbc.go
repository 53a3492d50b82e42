package encrypt

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2KeyLen     = 32
	pbkdf2IVLen      = 16
	pbkdf2SaltSize   = 8
	pbkdf2Iterations = 10000
	opensslMagic     = "Salted__"
)

var _ Encryptor = &PBKDF2AES256CBC{}

type PBKDF2AES256CBC struct {
	passphrase []byte
}

func NewPBKDF2AES256CBC(passphrase []byte) (*PBKDF2AES256CBC, error) {
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("passphrase cannot be empty")
	}
	return &PBKDF2AES256CBC{passphrase: passphrase}, nil
}

func (s *PBKDF2AES256CBC) Name() string {
	return AlgoPBKDF2AES256CBC
}

func (s *PBKDF2AES256CBC) Description() string {
	return "PBKDF2 with AES256-CBC encryption. Should work with `openssl enc -d -aes-256-cbc -pbkdf2 -pass <pass-encoding>`"
}

func (s *PBKDF2AES256CBC) derive(salt []byte) (*aes256cbc, error) {
	keyComplete := pbkdf2.Key(s.passphrase, salt, pbkdf2Iterations, pbkdf2KeyLen+pbkdf2IVLen, sha256.New)
	return newAES256CBC(keyComplete[:pbkdf2KeyLen], keyComplete[pbkdf2KeyLen:])
}

func (s *PBKDF2AES256CBC) Encrypt(out io.Writer) (io.WriteCloser, error) {
	salt := make([]byte, pbkdf2SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	cbc, err := s.derive(salt)
	if err != nil {
		return nil, err
	}

	// openssl header: magic followed by the salt
	if _, err := out.Write([]byte(opensslMagic)); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := out.Write(salt); err != nil {
		return nil, fmt.Errorf("failed to write salt: %w", err)
	}
	return cbc.Encrypt(out)
}

func (s *PBKDF2AES256CBC) Decrypt(out io.Writer) (io.WriteCloser, error) {
	return &pbkdf2DecryptWriter{
		enc: s,
		out: out,
		buf: make([]byte, 0, len(opensslMagic)+pbkdf2SaltSize),
	}, nil
}

// pbkdf2DecryptWriter buffers the header, derives key and IV from the salt,
// then streams the rest to an AES decrypter.
type pbkdf2DecryptWriter struct {
	enc    *PBKDF2AES256CBC
	out    io.Writer
	buf    []byte
	aes    io.WriteCloser
	closed bool
}

func (w *pbkdf2DecryptWriter) Write(p []byte) (int, error) {
	if w.aes != nil {
		return w.aes.Write(p)
	}

	headerLen := len(opensslMagic) + pbkdf2SaltSize
	needed := headerLen - len(w.buf)
	if needed > len(p) {
		w.buf = append(w.buf, p...)
		return len(p), nil
	}
	w.buf = append(w.buf, p[:needed]...)
	if !bytes.Equal(w.buf[:len(opensslMagic)], []byte(opensslMagic)) {
		return 0, fmt.Errorf("missing %q header", opensslMagic)
	}
	cbc, err := w.enc.derive(w.buf[len(opensslMagic):])
	if err != nil {
		return 0, err
	}
	if w.aes, err = cbc.Decrypt(w.out); err != nil {
		return 0, err
	}
	if _, err := w.aes.Write(p[needed:]); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *pbkdf2DecryptWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.aes == nil {
		return fmt.Errorf("input too short")
	}
	return w.aes.Close()
}
