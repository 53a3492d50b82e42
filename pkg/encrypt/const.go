package encrypt

const (
	AlgoPBKDF2AES256CBC = "pbkdf2-aes256cbc"
	AlgoAgeScrypt       = "age-scrypt"
)

// All lists every algorithm accepted by GetEncryptor.
var All = []string{
	AlgoPBKDF2AES256CBC,
	AlgoAgeScrypt,
}

// Extension returns the file suffix, including the dot, appended to encrypted dumps.
func Extension(name string) string {
	switch name {
	case AlgoAgeScrypt:
		return ".age"
	default:
		return ".aes"
	}
}
