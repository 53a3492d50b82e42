package encrypt

import (
	"bytes"
	"fmt"
	"io"

	"filippo.io/age"
)

var _ Encryptor = &AgeScrypt{}

// AgeScrypt is the age format with a passphrase, i.e. an scrypt recipient.
type AgeScrypt struct {
	passphrase string
}

func NewAgeScrypt(passphrase []byte) (*AgeScrypt, error) {
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("passphrase cannot be empty")
	}
	return &AgeScrypt{passphrase: string(passphrase)}, nil
}

func (a *AgeScrypt) Name() string {
	return AlgoAgeScrypt
}

func (a *AgeScrypt) Description() string {
	return "age format with a passphrase; should work with `age -d`."
}

func (a *AgeScrypt) Encrypt(out io.Writer) (io.WriteCloser, error) {
	recipient, err := age.NewScryptRecipient(a.passphrase)
	if err != nil {
		return nil, fmt.Errorf("invalid passphrase: %w", err)
	}
	ageWriter, err := age.Encrypt(out, recipient)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize age writer: %w", err)
	}
	return ageWriter, nil
}

func (a *AgeScrypt) Decrypt(out io.Writer) (io.WriteCloser, error) {
	identity, err := age.NewScryptIdentity(a.passphrase)
	if err != nil {
		return nil, fmt.Errorf("invalid passphrase: %w", err)
	}
	return &ageDecryptWriter{identity: identity, buf: &bytes.Buffer{}, out: out}, nil
}

// ageDecryptWriter buffers encrypted input until Close.
type ageDecryptWriter struct {
	identity age.Identity
	buf      *bytes.Buffer
	out      io.Writer
	closed   bool
}

func (w *ageDecryptWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *ageDecryptWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	reader, err := age.Decrypt(w.buf, w.identity)
	if err != nil {
		return fmt.Errorf("age decryption failed: %w", err)
	}
	_, err = io.Copy(w.out, reader)
	return err
}
