package meta

import (
	"encoding/base64"
	"encoding/binary"

	"github.com/scality/droplet-go/dpl/dict"
)

// UsermdHeader is the single header SRWS packs all user metadata into,
// per spec.md §4.7.
const UsermdHeader = "x-scal-usermd"

// EncodeUsermd base64-encodes the n-tinydb framing of md: a flat sequence
// of <flag:1><keylen:u32be><key><valuelen:u32be><value> records, per
// spec.md §4.7 "n-tinydb encoding". The flag byte is always 0 on encode —
// the original libdroplet leaves its meaning unspecified, this module
// treats it as reserved.
func EncodeUsermd(md *dict.Dict) string {
	var raw []byte
	if md != nil {
		md.Range(func(key, value string) {
			raw = append(raw, encodeRecord(key, value)...)
		})
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func encodeRecord(key, value string) []byte {
	rec := make([]byte, 0, 1+4+len(key)+4+len(value))
	rec = append(rec, 0) // flag, reserved
	rec = appendU32BE(rec, uint32(len(key)))
	rec = append(rec, key...)
	rec = appendU32BE(rec, uint32(len(value)))
	rec = append(rec, value...)
	return rec
}

func appendU32BE(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

// DecodeUsermd base64-decodes and iterates the n-tinydb framing, stopping
// at the first truncated record per spec.md §4.7. A malformed base64
// payload yields an empty dict rather than an error — usermd decoding is
// best-effort on the read path, mirroring ExtractSystem.
func DecodeUsermd(encoded string) *dict.Dict {
	out := dict.New()
	if encoded == "" {
		return out
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return out
	}
	off := 0
	for {
		key, value, n, ok := decodeRecord(raw[off:])
		if !ok {
			break
		}
		out.Set(key, value)
		off += n
	}
	return out
}

// decodeRecord parses one record from buf, returning the number of bytes
// consumed. ok is false if buf doesn't hold a complete record (truncated).
func decodeRecord(buf []byte) (key, value string, n int, ok bool) {
	const headerLen = 1 + 4
	if len(buf) < headerLen {
		return "", "", 0, false
	}
	keyLen := binary.BigEndian.Uint32(buf[1:5])
	pos := headerLen
	if uint64(pos)+uint64(keyLen) > uint64(len(buf)) {
		return "", "", 0, false
	}
	key = string(buf[pos : pos+int(keyLen)])
	pos += int(keyLen)

	if len(buf) < pos+4 {
		return "", "", 0, false
	}
	valueLen := binary.BigEndian.Uint32(buf[pos : pos+4])
	pos += 4
	if uint64(pos)+uint64(valueLen) > uint64(len(buf)) {
		return "", "", 0, false
	}
	value = string(buf[pos : pos+int(valueLen)])
	pos += int(valueLen)

	return key, value, pos, true
}
