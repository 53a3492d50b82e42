package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/databacker/docker-database-backup/pkg/compression"
	"github.com/databacker/docker-database-backup/pkg/config"
	"github.com/databacker/docker-database-backup/pkg/encrypt"
)

func decryptCmd(_ execs, cmdConfig *cmdConfiguration) (*cobra.Command, error) {
	var v *viper.Viper
	var cmd = &cobra.Command{
		Use:   "decrypt <file> [output]",
		Short: "decrypt a dump",
		Long: `Decrypt a dump written with encryption enabled. Without an output path the encryption
		suffix is removed from the input name. The algorithm is taken from the suffix unless set.`,
		Args: cobra.RangeArgs(1, 2),
		PreRun: func(cmd *cobra.Command, args []string) {
			bindFlags(cmd, v)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := cmdConfig.logger
			in := args[0]

			algo := v.GetString("algorithm")
			if algo == "" {
				algo = algorithmFor(in)
			}
			key := v.GetString("encryption-key")
			if key == "" {
				key = v.GetString("global-encryption-key")
			}
			if key == "" {
				return fmt.Errorf("no encryption key given")
			}
			enc, err := encrypt.GetEncryptor(algo, []byte(key))
			if err != nil {
				return err
			}

			out := strings.TrimSuffix(in, encrypt.Extension(algo))
			if len(args) > 1 {
				out = args[1]
			}
			if out == in {
				return fmt.Errorf("output would overwrite %s; give an output path", in)
			}
			if err := encrypt.DecryptFile(enc, in, out); err != nil {
				_ = os.Remove(out)
				return fmt.Errorf("unable to decrypt %s: %w", in, err)
			}
			logger.Infof("decrypted %s to %s", in, out)

			gz := &compression.GzipCompressor{}
			if !v.GetBool("uncompress") || !strings.HasSuffix(out, gz.Extension()) {
				return nil
			}
			raw := strings.TrimSuffix(out, gz.Extension())
			if _, err := compression.UncompressFile(gz, out, raw); err != nil {
				_ = os.Remove(raw)
				return fmt.Errorf("unable to uncompress %s: %w", out, err)
			}
			if err := os.Remove(out); err != nil {
				return fmt.Errorf("unable to remove %s: %w", out, err)
			}
			logger.Infof("uncompressed %s to %s", out, raw)
			return nil
		},
	}

	v = viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("global-encryption-key", config.KeyEncryptionKey.EnvName())

	flags := cmd.Flags()
	flags.String("algorithm", "", fmt.Sprintf("encryption algorithm, one of %s; derived from the file suffix when empty", strings.Join(encrypt.All, ", ")))
	flags.String("encryption-key", "", "passphrase the dump was encrypted with; defaults to the ENCRYPTION_KEY or GLOBAL_ENCRYPTION_KEY env var")
	flags.Bool("uncompress", false, "also uncompress a gzip compressed dump")

	return cmd, nil
}

func algorithmFor(path string) string {
	for _, algo := range encrypt.All {
		if strings.HasSuffix(path, encrypt.Extension(algo)) {
			return algo
		}
	}
	return config.DefaultEncryptionAlgorithm
}
