// Package krypto seals small records, such as OAuth tokens, for storage at rest.
//
// NewAESGCM works with a raw 128, 192 or 256-bit key. NewPassphraseSealer
// accepts a human-chosen secret instead and derives a new key with argon2id
// for every record, storing the salt alongside the ciphertext:
//
//	sealer, err := krypto.NewPassphraseSealer(os.Getenv("TOKENSTORE_ENCRYPTION_KEY"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sealed, err := sealer.Seal(tokenJSON, []byte("account:alice"))
//	...
//	tokenJSON, err = sealer.Open(sealed, []byte("account:alice"))
//
// The additional data passed to Seal must be passed unchanged to Open, which
// prevents a sealed record from being replayed under another key.
package krypto
