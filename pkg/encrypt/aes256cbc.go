package encrypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"io"
)

// aes256cbc encrypts and decrypts AES-256-CBC with PKCS#7 padding, using a key and IV
// derived by the caller.
type aes256cbc struct {
	key []byte
	iv  []byte
}

func newAES256CBC(key, iv []byte) (*aes256cbc, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes")
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("iv must be %d bytes", aes.BlockSize)
	}
	return &aes256cbc{key: key, iv: iv}, nil
}

func (s *aes256cbc) Encrypt(out io.Writer) (io.WriteCloser, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	return &cbcEncryptWriter{
		writer: out,
		mode:   cipher.NewCBCEncrypter(block, s.iv),
		buf:    make([]byte, 0, aes.BlockSize),
	}, nil
}

func (s *aes256cbc) Decrypt(out io.Writer) (io.WriteCloser, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	// the writer holds back the final block until Close, where the padding is removed
	return &cbcDecryptWriter{
		writer: out,
		mode:   cipher.NewCBCDecrypter(block, s.iv),
	}, nil
}

type cbcEncryptWriter struct {
	writer io.Writer
	mode   cipher.BlockMode
	buf    []byte
	closed bool
}

func (w *cbcEncryptWriter) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		n := aes.BlockSize - len(w.buf)
		if n > len(p) {
			n = len(p)
		}
		w.buf = append(w.buf, p[:n]...)
		p = p[n:]
		total += n

		if len(w.buf) == aes.BlockSize {
			block := make([]byte, aes.BlockSize)
			w.mode.CryptBlocks(block, w.buf)
			if _, err := w.writer.Write(block); err != nil {
				return total, err
			}
			w.buf = w.buf[:0]
		}
	}
	return total, nil
}

func (w *cbcEncryptWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	// PKCS#7 padding
	padLen := aes.BlockSize - len(w.buf)%aes.BlockSize
	w.buf = append(w.buf, bytes.Repeat([]byte{byte(padLen)}, padLen)...)

	out := make([]byte, len(w.buf))
	w.mode.CryptBlocks(out, w.buf)
	_, err := w.writer.Write(out)
	return err
}

type cbcDecryptWriter struct {
	writer io.Writer
	mode   cipher.BlockMode
	buf    []byte
	closed bool
}

func (w *cbcDecryptWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)

	// decrypt everything but the last full block
	n := (len(w.buf) / aes.BlockSize) * aes.BlockSize
	if n == len(w.buf) {
		n -= aes.BlockSize
	}
	if n > 0 {
		dst := make([]byte, n)
		w.mode.CryptBlocks(dst, w.buf[:n])
		if _, err := w.writer.Write(dst); err != nil {
			return 0, err
		}
		w.buf = append(w.buf[:0], w.buf[n:]...)
	}
	return len(p), nil
}

func (w *cbcDecryptWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if len(w.buf) != aes.BlockSize {
		return fmt.Errorf("incomplete final block")
	}
	block := make([]byte, aes.BlockSize)
	w.mode.CryptBlocks(block, w.buf)

	// Remove PKCS#7 padding
	padLen := int(block[len(block)-1])
	if padLen <= 0 || padLen > aes.BlockSize {
		return fmt.Errorf("invalid padding")
	}
	for _, b := range block[len(block)-padLen:] {
		if int(b) != padLen {
			return fmt.Errorf("invalid padding content")
		}
	}
	_, err := w.writer.Write(block[:len(block)-padLen])
	return err
}
