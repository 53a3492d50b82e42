package encrypt

import (
	"fmt"
	"io"
	"os"
)

// EncryptFile writes the encryption of src to dst, replacing dst if it exists.
func EncryptFile(e Encryptor, src, dst string) error {
	return transformFile(e.Encrypt, src, dst)
}

// DecryptFile writes the decryption of src to dst, replacing dst if it exists.
func DecryptFile(e Encryptor, src, dst string) error {
	return transformFile(e.Decrypt, src, dst)
}

func transformFile(wrap func(io.Writer) (io.WriteCloser, error), src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	w, err := wrap(out)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, in); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to process %s: %w", src, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish %s: %w", dst, err)
	}
	return out.Close()
}
