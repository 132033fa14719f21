package tabfmt

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/zintix-labs/qprep/errs"
	"github.com/zintix-labs/qprep/sdk/alias"
	"github.com/zintix-labs/qprep/sdk/prep"
	"github.com/zintix-labs/qprep/spec"
)

// Magic marks a compiled-table frame. The trailing digit is the format
// version; bump it on any incompatible change to TableDump or the frame
// layout.
const Magic = "QPT1"

// TableDump is the durable form of a compiled sampler.
//
// Alt/Keep/Mu/Size are authoritative: decoding rebuilds the sampler from
// them and re-runs the full invariant checks. DistID/Name/Epsilon are
// provenance only. Fingerprint, when present, must match the rebuilt
// sampler.
type TableDump struct {
	DistID      spec.DistID `json:"dist_id"`
	Name        string      `json:"name"`
	Size        int         `json:"size"`
	Mu          int         `json:"mu"`
	Epsilon     float64     `json:"epsilon"`
	Alt         []int       `json:"alt"`
	Keep        []uint64    `json:"keep"`
	Fingerprint string      `json:"fingerprint"`
}

// FromSampler captures a compiled sampler into its durable form.
func FromSampler(id spec.DistID, name string, epsilon float64, smp *prep.Sampler) *TableDump {
	return &TableDump{
		DistID:      id,
		Name:        name,
		Size:        smp.Size(),
		Mu:          smp.Mu(),
		Epsilon:     epsilon,
		Alt:         smp.Alt(),
		Keep:        smp.Keep(),
		Fingerprint: fmt.Sprintf("%016x", smp.Fingerprint()),
	}
}

// ToSampler rebuilds the sampler and re-validates every table invariant.
// A non-empty Fingerprint must match the rebuilt sampler bit for bit.
func (d *TableDump) ToSampler() (*prep.Sampler, error) {
	smp, err := prep.FromTable(&alias.Table{
		Alt:  d.Alt,
		Keep: d.Keep,
		Mu:   d.Mu,
		Size: d.Size,
	})
	if err != nil {
		return nil, errs.Wrap(err, "table dump rejected")
	}
	if d.Fingerprint != "" {
		got := fmt.Sprintf("%016x", smp.Fingerprint())
		if got != d.Fingerprint {
			return nil, errs.Warnf("table dump fingerprint mismatch: stored %s, rebuilt %s", d.Fingerprint, got)
		}
	}
	return smp, nil
}

// EncodeTable builds a QPT1 frame:
//
//	frame := magic || uvarint(len(compressed)) || zstd(json(dump))
func EncodeTable(d *TableDump) ([]byte, error) {
	if d == nil {
		return nil, errs.NewWarn("nil table dump")
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, errs.Wrap(err, "marshal table dump failed")
	}

	var comp bytes.Buffer
	zw, err := zstd.NewWriter(&comp)
	if err != nil {
		return nil, errs.Wrap(err, "create zstd writer failed")
	}
	if _, err := zw.Write(raw); err != nil {
		zw.Close()
		return nil, errs.Wrap(err, "compress table dump failed")
	}
	if err := zw.Close(); err != nil {
		return nil, errs.Wrap(err, "close zstd writer failed")
	}

	var hdr [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(hdr[:], uint64(comp.Len()))

	out := make([]byte, 0, len(Magic)+n+comp.Len())
	out = append(out, Magic...)
	out = append(out, hdr[:n]...)
	out = append(out, comp.Bytes()...)
	return out, nil
}

// DecodeTable parses a QPT1 frame produced by EncodeTable.
//
// maxBytes caps the decompressed payload to keep untrusted input from
// ballooning; pass 0 to skip the cap for trusted local files.
func DecodeTable(frame []byte, maxBytes uint64) (*TableDump, error) {
	if len(frame) < len(Magic) || string(frame[:len(Magic)]) != Magic {
		return nil, errs.NewWarn("decode table failed: not a " + Magic + " frame")
	}
	body := frame[len(Magic):]

	n, size := binary.Uvarint(body)
	if size <= 0 {
		return nil, errs.NewWarn("decode table failed: invalid varint length")
	}
	if uint64(len(body)-size) < n {
		return nil, errs.NewWarn("decode table failed: truncated payload")
	}
	compressed := body[size : size+int(n)]

	zr, err := zstd.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, errs.Wrap(err, "create zstd reader failed")
	}
	defer zr.Close()

	var raw []byte
	if maxBytes > 0 {
		raw, err = io.ReadAll(io.LimitReader(zr, int64(maxBytes)+1))
		if err == nil && uint64(len(raw)) > maxBytes {
			return nil, errs.NewWarn("decode table failed: payload exceeds maxBytes")
		}
	} else {
		raw, err = io.ReadAll(zr)
	}
	if err != nil {
		return nil, errs.Wrap(err, "decompress table dump failed")
	}

	var dump TableDump
	if err := json.Unmarshal(raw, &dump); err != nil {
		return nil, errs.Wrap(err, "unmarshal table dump failed")
	}
	return &dump, nil
}

// EncodeTableText renders a frame as URL-safe text for JSON/HTTP transport.
func EncodeTableText(d *TableDump) (string, error) {
	frame, err := EncodeTable(d)
	if err != nil {
		return "", err
	}
	return EncodeBase64URL(frame), nil
}

// DecodeTableText is the counterpart of EncodeTableText.
func DecodeTableText(s string, maxBytes uint64) (*TableDump, error) {
	frame, err := DecodeBase64URL(s)
	if err != nil {
		return nil, err
	}
	return DecodeTable(frame, maxBytes)
}

// WriteTable writes a QPT1 frame into w. Useful for dumping compiled
// tables to disk or piping them through a binary channel.
func WriteTable(w io.Writer, d *TableDump) error {
	frame, err := EncodeTable(d)
	if err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return errs.Wrap(err, "write table frame failed")
	}
	return nil
}

// ReadTable reads one QPT1 frame from r.
func ReadTable(r io.Reader, maxBytes uint64) (*TableDump, error) {
	br := bufio.NewReader(r)

	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, errs.Wrap(err, "read table frame magic failed")
	}
	if string(magic) != Magic {
		return nil, errs.NewWarn("read table failed: not a " + Magic + " frame")
	}

	ln, err := binary.ReadUvarint(br)
	if err != nil {
		return nil, errs.Wrap(err, "read table frame header failed")
	}
	if maxBytes > 0 && ln > maxBytes {
		return nil, errs.NewWarn("read table failed: compressed payload exceeds maxBytes")
	}
	compressed := make([]byte, ln)
	if _, err := io.ReadFull(br, compressed); err != nil {
		return nil, errs.Wrap(err, "read table frame payload failed")
	}

	frame := make([]byte, 0, len(Magic)+binary.MaxVarintLen64+len(compressed))
	frame = append(frame, Magic...)
	var hdr [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(hdr[:], ln)
	frame = append(frame, hdr[:n]...)
	frame = append(frame, compressed...)
	return DecodeTable(frame, maxBytes)
}

func EncodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func DecodeBase64(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errs.Wrap(err, "decode base64 failed")
	}
	return b, err
}

func EncodeBase64URL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func DecodeBase64URL(s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, errs.Wrap(err, "decode base64url failed")
	}
	return b, err
}

func EncodeHex(b []byte) string {
	return hex.EncodeToString(b)
}

func DecodeHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errs.Wrap(err, "decode hex failed")
	}
	return b, err
}

// EncodeBlobFrame encodes raw bytes into a length-prefixed binary frame.
//
//	frame := uvarint(len(payload)) || payload
//
// Not JSON-friendly; use Base64/Base64URL for text transport.
func EncodeBlobFrame(payload []byte) []byte {
	var hdr [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(hdr[:], uint64(len(payload)))

	out := make([]byte, 0, n+len(payload))
	out = append(out, hdr[:n]...)
	out = append(out, payload...)
	return out
}

// DecodeBlobFrame decodes a length-prefixed binary frame produced by EncodeBlobFrame.
func DecodeBlobFrame(frame []byte) ([]byte, error) {
	n, size := binary.Uvarint(frame)
	if size <= 0 {
		return nil, errs.NewWarn("decode blob frame failed: invalid varint length")
	}
	if uint64(len(frame)-size) < n {
		return nil, errs.NewWarn("decode blob frame failed: truncated payload")
	}
	payload := frame[size : size+int(n)]
	// Return a copy to avoid retaining the entire frame backing array.
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}
