// Package signing implements SSH commit/tag signature creation and
// verification, grounded on the teacher's commit-signing helper. Signatures
// are carried inside the commit/tag payload and must survive the loose-
// object round-trip byte-for-byte; verification operates on the exact
// payload bytes a caller hands it, never a re-derived approximation.
package signing

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
)

// signaturePrefix tags the encoded signature string so a verifier can
// recognize and version the format.
const signaturePrefix = "sshsig-v1"

// Signer signs arbitrary payload bytes (a commit or tag's canonical
// encoding minus its signature field) and returns an encoded signature
// string embeddable in that object.
type Signer func(payload []byte) (string, error)

// LoadSigner reads an SSH private key from keyPath (or, if empty, the
// first of ~/.ssh/id_ed25519, id_ecdsa, id_rsa that exists) and returns a
// Signer bound to it, along with the resolved key path.
func LoadSigner(keyPath string) (Signer, string, error) {
	resolved, err := resolveKeyPath(keyPath)
	if err != nil {
		return nil, "", err
	}

	raw, err := os.ReadFile(resolved)
	if err != nil {
		return nil, "", fmt.Errorf("signing: read key %q: %w", resolved, err)
	}
	signer, err := ssh.ParsePrivateKey(raw)
	if err != nil {
		return nil, "", fmt.Errorf("signing: parse key %q: %w", resolved, err)
	}

	pubB64 := base64.StdEncoding.EncodeToString(signer.PublicKey().Marshal())
	sign := func(payload []byte) (string, error) {
		sig, err := signer.Sign(rand.Reader, payload)
		if err != nil {
			return "", fmt.Errorf("signing: sign: %w", err)
		}
		sigB64 := base64.StdEncoding.EncodeToString(sig.Blob)
		return fmt.Sprintf("%s:%s:%s:%s", signaturePrefix, sig.Format, pubB64, sigB64), nil
	}
	return sign, resolved, nil
}

// Verify checks that encoded is a valid signature over payload, returning
// the signer's public key fingerprint on success.
func Verify(encoded string, payload []byte) (fingerprint string, err error) {
	parts := strings.SplitN(encoded, ":", 4)
	if len(parts) != 4 || parts[0] != signaturePrefix {
		return "", fmt.Errorf("signing: unrecognized signature format")
	}
	format, pubB64, sigB64 := parts[1], parts[2], parts[3]

	pubRaw, err := base64.StdEncoding.DecodeString(pubB64)
	if err != nil {
		return "", fmt.Errorf("signing: decode public key: %w", err)
	}
	pub, err := ssh.ParsePublicKey(pubRaw)
	if err != nil {
		return "", fmt.Errorf("signing: parse public key: %w", err)
	}

	sigBlob, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return "", fmt.Errorf("signing: decode signature: %w", err)
	}
	sig := &ssh.Signature{Format: format, Blob: sigBlob}
	if err := pub.Verify(payload, sig); err != nil {
		return "", fmt.Errorf("signing: verify: %w", err)
	}
	return ssh.FingerprintSHA256(pub), nil
}

func resolveKeyPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path != "" {
		return expandUserPath(path)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("signing: resolve home dir: %w", err)
	}
	for _, candidate := range []string{"id_ed25519", "id_ecdsa", "id_rsa"} {
		p := filepath.Join(home, ".ssh", candidate)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("signing: no default SSH private key found in ~/.ssh")
}

func expandUserPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("signing: resolve home dir: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}
	return filepath.Abs(path)
}
