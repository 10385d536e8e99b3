package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/quantum-shield/qsfs-go/pkg/trust"
)

// trustFile is the on-disk JSON persistence format for a trust store.
// pkg/trust deliberately leaves persistence out of scope (it only defines
// the membership-query interface); this is the CLI's own format.
type trustFile struct {
	// Signers maps signer id (lowercase hex of SHA-256(public_key)) to the
	// pinned ML-DSA-87 public key, hex-encoded. An empty value means the
	// signer id is trusted without a pinned key.
	Signers map[string]string `json:"signers"`
}

func newTrustFile() *trustFile {
	return &trustFile{Signers: make(map[string]string)}
}

func loadTrustFile(path string) (*trustFile, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return newTrustFile(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read trust store %s: %w", path, err)
	}
	tf := newTrustFile()
	if err := json.Unmarshal(data, tf); err != nil {
		return nil, fmt.Errorf("parse trust store %s: %w", path, err)
	}
	if tf.Signers == nil {
		tf.Signers = make(map[string]string)
	}
	return tf, nil
}

func (tf *trustFile) save(path string) error {
	data, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return fmt.Errorf("encode trust store: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write trust store %s: %w", path, err)
	}
	return nil
}

// toStore converts the JSON-backed trust file into an in-memory KeyedStore
// for use with signer.Verify.
func (tf *trustFile) toStore() *trust.MapStore {
	store := trust.NewMapStore()
	for id, pubHex := range tf.Signers {
		if pubHex == "" {
			store.Add(id)
			continue
		}
		pub, err := hex.DecodeString(pubHex)
		if err != nil {
			store.Add(id)
			continue
		}
		store.AddWithKey(id, pub)
	}
	return store
}

func (tf *trustFile) sortedIDs() []string {
	ids := make([]string, 0, len(tf.Signers))
	for id := range tf.Signers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
