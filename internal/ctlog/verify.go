package ctlog

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	ct "github.com/google/certificate-transparency-go"
	ctls "github.com/google/certificate-transparency-go/tls"
)

// VerifySTH checks an STH's tree_head_signature against publicKey,
// following §4.2: unpack the signature as hash_algo/sig_algo/sig_bytes,
// accept only SHA-256 with RSA-PKCS1v15 or ECDSA, and verify against the
// big-endian signed payload version||sig_type||timestamp||tree_size||root.
//
// The wire unpack uses the real TLS DigitallySigned codec from the CT Go
// ecosystem instead of a hand-rolled struct unpack; the signature
// primitives themselves are stdlib crypto/ecdsa and crypto/rsa, per
// spec.md §1's explicit carve-out for "an external crypto library".
func VerifySTH(sth *ct.SignedTreeHead, rawSig []byte, publicKey interface{}) error {
	var sig ctls.DigitallySigned
	if rest, err := ctls.Unmarshal(rawSig, &sig); err != nil {
		return fmt.Errorf("%w: unmarshaling tree_head_signature: %v", ErrSTHSignatureInvalid, err)
	} else if len(rest) != 0 {
		return fmt.Errorf("%w: %d trailing bytes after tree_head_signature", ErrSTHSignatureInvalid, len(rest))
	}

	if sig.Algorithm.Hash != ctls.SHA256 {
		return fmt.Errorf("%w: unsupported hash algorithm %v", ErrSTHSignatureInvalid, sig.Algorithm.Hash)
	}
	switch sig.Algorithm.Signature {
	case ctls.RSA, ctls.ECDSA:
	default:
		return fmt.Errorf("%w: unsupported signature algorithm %v", ErrSTHSignatureInvalid, sig.Algorithm.Signature)
	}

	signed := ct.SignedTreeHead{
		Version:        ct.V1,
		TreeSize:       sth.TreeSize,
		Timestamp:      sth.Timestamp,
		SHA256RootHash: sth.SHA256RootHash,
	}
	payload, err := ct.SerializeSTHSignatureInput(signed)
	if err != nil {
		return fmt.Errorf("%w: serializing signature input: %v", ErrSTHSignatureInvalid, err)
	}
	digest := sha256.Sum256(payload)

	switch key := publicKey.(type) {
	case *ecdsa.PublicKey:
		if sig.Algorithm.Signature != ctls.ECDSA {
			return fmt.Errorf("%w: ECDSA key but signature algorithm %v", ErrSTHSignatureInvalid, sig.Algorithm.Signature)
		}
		if !ecdsa.VerifyASN1(key, digest[:], sig.Signature) {
			return fmt.Errorf("%w: ecdsa verification failed", ErrSTHSignatureInvalid)
		}
	case *rsa.PublicKey:
		if sig.Algorithm.Signature != ctls.RSA {
			return fmt.Errorf("%w: RSA key but signature algorithm %v", ErrSTHSignatureInvalid, sig.Algorithm.Signature)
		}
		if err := rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], sig.Signature); err != nil {
			return fmt.Errorf("%w: rsa verification failed: %v", ErrSTHSignatureInvalid, err)
		}
	default:
		return fmt.Errorf("%w: unsupported public key type %T", ErrSTHSignatureInvalid, publicKey)
	}

	sth.TreeHeadSignature = ct.DigitallySigned(sig)
	return nil
}

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
