package codec

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for algorithm migration.
const (
	DomainJournal = "shopstate/journal/v1"
	DomainLedger  = "shopstate/ledger/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash returns the domain-separated SHA-256 of v's canonical JSON.
func Hash(domain string, v any) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", domain, err)
	}
	return hashWithDomain(domain, data), nil
}

// JournalEntryID computes the content-addressed ID of a journal entry.
// The session is included so identical commands in different sessions
// never collide.
func JournalEntryID(session, command string, args []byte, seq int64) string {
	obj := map[string]any{
		"session": session,
		"command": command,
		"args":    string(args),
		"seq":     seq,
	}
	data, err := Marshal(obj)
	if err != nil {
		// Only strings and an int64: canonical marshal cannot fail.
		panic(fmt.Sprintf("journal entry id: %v", err))
	}
	return hashWithDomain(DomainJournal, data)
}
