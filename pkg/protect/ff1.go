// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package protect

import (
	"crypto/sha256"
	"strings"
	"sync"

	"github.com/capitalone/fpe/ff1"
	"gitlab.com/tozd/go/errors"
)

// 🗺️ formatAlphabets maps format tags to the FF1 numeral alphabet used for
// that format. FF1 numerals are base-N digits, so every alphabet is a prefix
// of "0123456789abcdefghijklmnopqrstuvwxyz".
var formatAlphabets = map[string]string{
	"digits": "0123456789",
	"hex":    "0123456789abcdef",
	"alnum":  "0123456789abcdefghijklmnopqrstuvwxyz",
}

// ff1MinLen is the shortest input FF1 accepts. Values with fewer alphabet
// characters pass through unchanged.
const ff1MinLen = 2

// 🏭 FF1Builder builds FF1 format-preserving encryption engines keyed from
// the job credentials. It is the in-tree implementation of the Builder
// capability; jobs targeting an external protection service supply their own.
type FF1Builder struct {
	creds Credentials
}

// NewFF1Builder validates the credentials and returns a builder.
func NewFF1Builder(creds Credentials) (*FF1Builder, error) {
	if creds.Identity == "" {
		return nil, errors.Errorf("%w: identity is required", ErrProtectorInit)
	}
	if creds.SharedSecret == "" {
		return nil, errors.Errorf("%w: shared secret is required", ErrProtectorInit)
	}
	return &FF1Builder{creds: creds}, nil
}

// 🔨 Build constructs the engine for one format tag. The AES key is derived
// from the shared secret, identity and format, so distinct formats never
// share a key.
func (b *FF1Builder) Build(format string) (Protector, error) {
	alphabet, ok := formatAlphabets[format]
	if !ok {
		return nil, errors.Errorf("unknown protection format %q", format)
	}

	key := sha256.Sum256([]byte(b.creds.SharedSecret + "\x00" + b.creds.Identity + "\x00" + format))

	cipher, err := ff1.NewCipher(len(alphabet), len(b.creds.PolicyURL), key[:], []byte(b.creds.PolicyURL))
	if err != nil {
		return nil, errors.Errorf("building ff1 cipher: %w", err)
	}

	return &ff1Protector{alphabet: alphabet, cipher: cipher}, nil
}

// 🔐 ff1Protector protects values with FF1 while preserving their shape:
// characters outside the format alphabet (dashes, spaces, dots) stay in
// place and only the alphabet characters are encrypted.
type ff1Protector struct {
	alphabet string

	// ff1.Cipher reuses an internal CBC block mode across calls, so
	// encryption must be serialized.
	mu     sync.Mutex
	cipher ff1.Cipher
}

func (p *ff1Protector) Protect(plaintext string) (string, error) {
	lowered := strings.ToLower(plaintext)

	var core strings.Builder
	for _, r := range lowered {
		if strings.ContainsRune(p.alphabet, r) {
			core.WriteRune(r)
		}
	}
	if core.Len() < ff1MinLen {
		return plaintext, nil
	}

	p.mu.Lock()
	encrypted, err := p.cipher.Encrypt(core.String())
	p.mu.Unlock()
	if err != nil {
		return "", errors.Errorf("ff1 encrypt: %w", err)
	}

	var out strings.Builder
	out.Grow(len(plaintext))
	next := 0
	for _, r := range lowered {
		if strings.ContainsRune(p.alphabet, r) {
			out.WriteByte(encrypted[next])
			next++
		} else {
			out.WriteRune(r)
		}
	}
	return out.String(), nil
}
