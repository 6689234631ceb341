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

package source

import (
	"compress/gzip"
	"io"
	"os"
	"path"
	"strings"

	"github.com/DataDog/zstd"
	"github.com/ProtonMail/go-crypto/openpgp"
	"gitlab.com/tozd/go/errors"
)

// 🔧 DecodeOptions configures the decode chain applied between the raw
// source stream and the CSV parser.
type DecodeOptions struct {
	// Keyring holds the private keys used to decrypt .pgp/.gpg inputs.
	// When nil, encrypted inputs fail instead of passing through garbled.
	Keyring openpgp.EntityList
}

// 🔓 Decode wraps rc with decompression and decryption readers according to
// the file name's extensions, outermost first: "report.csv.gz.pgp" is
// decrypted, then gunzipped. It returns the decoded stream and the name with
// the consumed extensions stripped. Closing the returned stream closes rc.
func Decode(rc io.ReadCloser, name string, opts DecodeOptions) (io.ReadCloser, string, error) {
	out := &decodedStream{Reader: rc, closers: []io.Closer{rc}}

	for {
		switch strings.ToLower(path.Ext(name)) {
		case ".gz":
			gr, err := gzip.NewReader(out.Reader)
			if err != nil {
				out.Close()
				return nil, "", errors.Errorf("opening gzip stream for %q: %w", name, err)
			}
			out.push(gr)
		case ".zst":
			out.push(zstd.NewReader(out.Reader))
		case ".pgp", ".gpg":
			if opts.Keyring == nil {
				out.Close()
				return nil, "", errors.Errorf("encrypted input %q: no keyring configured", name)
			}
			md, err := openpgp.ReadMessage(out.Reader, opts.Keyring, nil, nil)
			if err != nil {
				out.Close()
				return nil, "", errors.Errorf("decrypting %q: %w", name, err)
			}
			out.Reader = md.UnverifiedBody
		default:
			return out, name, nil
		}
		name = strings.TrimSuffix(name, path.Ext(name))
	}
}

// 📝 DecodedName strips the extensions the decode chain consumes, yielding
// the name the decoded object is stored under.
func DecodedName(name string) string {
	for {
		switch strings.ToLower(path.Ext(name)) {
		case ".gz", ".zst", ".pgp", ".gpg":
			name = strings.TrimSuffix(name, path.Ext(name))
		default:
			return name
		}
	}
}

// 🔑 LoadKeyring reads an OpenPGP keyring file, armored or binary, and
// unlocks any passphrase-protected private keys.
func LoadKeyring(keyringPath, passphrase string) (openpgp.EntityList, error) {
	f, err := os.Open(keyringPath)
	if err != nil {
		return nil, errors.Errorf("opening keyring %q: %w", keyringPath, err)
	}
	defer f.Close()

	entities, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		if _, serr := f.Seek(0, io.SeekStart); serr != nil {
			return nil, errors.Errorf("rewinding keyring %q: %w", keyringPath, serr)
		}
		entities, err = openpgp.ReadKeyRing(f)
		if err != nil {
			return nil, errors.Errorf("reading keyring %q: %w", keyringPath, err)
		}
	}

	if passphrase != "" {
		for _, entity := range entities {
			if entity.PrivateKey != nil && entity.PrivateKey.Encrypted {
				if err := entity.PrivateKey.Decrypt([]byte(passphrase)); err != nil {
					return nil, errors.Errorf("unlocking private key: %w", err)
				}
			}
			for _, sub := range entity.Subkeys {
				if sub.PrivateKey != nil && sub.PrivateKey.Encrypted {
					if err := sub.PrivateKey.Decrypt([]byte(passphrase)); err != nil {
						return nil, errors.Errorf("unlocking subkey: %w", err)
					}
				}
			}
		}
	}

	return entities, nil
}

// decodedStream layers decode readers over the raw stream and closes them in
// reverse order.
type decodedStream struct {
	io.Reader
	closers []io.Closer
}

func (s *decodedStream) push(rc io.ReadCloser) {
	s.Reader = rc
	s.closers = append(s.closers, rc)
}

func (s *decodedStream) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
