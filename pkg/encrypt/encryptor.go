package encrypt

import (
	"fmt"
	"io"
)

type Encryptor interface {
	Name() string
	Description() string
	Decrypt(out io.Writer) (io.WriteCloser, error)
	Encrypt(out io.Writer) (io.WriteCloser, error)
}

// GetEncryptor returns the encryptor for the named algorithm, keyed by a passphrase.
func GetEncryptor(name string, passphrase []byte) (Encryptor, error) {
	switch name {
	case AlgoPBKDF2AES256CBC:
		return NewPBKDF2AES256CBC(passphrase)
	case AlgoAgeScrypt:
		return NewAgeScrypt(passphrase)
	default:
		return nil, fmt.Errorf("unknown encryption format: %s", name)
	}
}
