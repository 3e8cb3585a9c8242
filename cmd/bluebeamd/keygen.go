package main

import (
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bluebeam/bluebeam/crypto"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a fresh X25519 key pair",
	Long: `keygen generates a fresh ephemeral X25519 key pair and prints its
public key and fingerprint. It is a diagnostic command: the pairing
protocol generates its own ephemeral key pair per attempt and does not
read anything keygen produces.`,
	RunE: runKeygen,
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}

func runKeygen(cmd *cobra.Command, args []string) error {
	kp, err := crypto.GenerateKeypair()
	if err != nil {
		return fmt.Errorf("generate key pair: %w", err)
	}

	fmt.Printf("public key:  %s\n", base64.StdEncoding.EncodeToString(kp.Public[:]))
	fmt.Printf("fingerprint: %s\n", crypto.Fingerprint(kp.Public))
	fmt.Printf("pin:         %s\n", crypto.PinFromFingerprint(crypto.Fingerprint(kp.Public)))
	return nil
}
