package tabfmt

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/zintix-labs/qprep/sdk/alias"
	"github.com/zintix-labs/qprep/sdk/prep"
)

func mustSampler(t *testing.T, probs []float64, eps float64) *prep.Sampler {
	t.Helper()
	smp, err := prep.FromLCUProbs(probs, eps)
	if err != nil {
		t.Fatalf("FromLCUProbs: %v", err)
	}
	return smp
}

// ---------------------------------------------------------------

// TestTableRoundTrip 檢查項目:
//  1. FromSampler -> Encode -> Decode -> ToSampler 後與原表等價
//  2. 中繼欄位 (id/name/epsilon) 原樣保留
//  3. frame 以 Magic 開頭
func TestTableRoundTrip(t *testing.T) {
	smp := mustSampler(t, []float64{0.5, 0.25, 0.25}, 0.2)
	dump := FromSampler("exact", "Exact", 0.2, smp)

	frame, err := EncodeTable(dump)
	if err != nil {
		t.Fatalf("EncodeTable: %v", err)
	}
	if !bytes.HasPrefix(frame, []byte(Magic)) {
		t.Fatalf("frame missing magic: %q", frame[:8])
	}

	got, err := DecodeTable(frame, 0)
	if err != nil {
		t.Fatalf("DecodeTable: %v", err)
	}
	if got.DistID != "exact" || got.Name != "Exact" || got.Epsilon != 0.2 {
		t.Fatalf("meta fields lost: %+v", got)
	}
	if got.Size != 3 || got.Mu != 2 {
		t.Fatalf("table fields lost: %+v", got)
	}

	back, err := got.ToSampler()
	if err != nil {
		t.Fatalf("ToSampler: %v", err)
	}
	if !back.Equal(smp) {
		t.Fatal("round-tripped sampler differs")
	}
	if back.Fingerprint() != smp.Fingerprint() {
		t.Fatal("fingerprint changed across round trip")
	}
}

// TestTableTextRoundTrip 檢查項目:
//  1. 文字傳輸往返等價
//  2. 輸出為 URL 安全字元
func TestTableTextRoundTrip(t *testing.T) {
	smp := mustSampler(t, []float64{0.7, 0.3}, 1e-4)
	dump := FromSampler("pair", "Pair", 1e-4, smp)

	text, err := EncodeTableText(dump)
	if err != nil {
		t.Fatalf("EncodeTableText: %v", err)
	}
	if strings.ContainsAny(text, "+/=") {
		t.Fatalf("text transport not URL safe: %q", text)
	}

	got, err := DecodeTableText(text, 0)
	if err != nil {
		t.Fatalf("DecodeTableText: %v", err)
	}
	back, err := got.ToSampler()
	if err != nil {
		t.Fatalf("ToSampler: %v", err)
	}
	if !back.Equal(smp) {
		t.Fatal("text round trip differs")
	}
}

// TestWriteReadTable 檢查項目:
//  1. 寫入 io.Writer 再讀回等價
//  2. maxBytes 擋壓縮 payload
func TestWriteReadTable(t *testing.T) {
	smp := mustSampler(t, []float64{0.5, 0.5}, 1e-5)
	dump := FromSampler("even", "Even", 1e-5, smp)

	var buf bytes.Buffer
	if err := WriteTable(&buf, dump); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}

	got, err := ReadTable(bytes.NewReader(buf.Bytes()), 0)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if got.DistID != "even" || got.Mu != 17 {
		t.Fatalf("read back: %+v", got)
	}

	if _, err := ReadTable(bytes.NewReader(buf.Bytes()), 4); err == nil {
		t.Fatal("tiny maxBytes should reject the compressed payload")
	}
}

// TestDecodeTableReject 檢查項目:
//  1. 錯 magic / 截斷 / 壞 payload 都要拒絕
//  2. 解壓後超過 maxBytes 要拒絕
func TestDecodeTableReject(t *testing.T) {
	smp := mustSampler(t, []float64{0.25, 0.25, 0.25, 0.25}, 1e-3)
	frame, err := EncodeTable(FromSampler("u4", "Uniform 4", 1e-3, smp))
	if err != nil {
		t.Fatalf("EncodeTable: %v", err)
	}

	bad := append([]byte("NOPE"), frame[4:]...)
	if _, err := DecodeTable(bad, 0); err == nil {
		t.Fatal("wrong magic should fail")
	}
	if _, err := DecodeTable(frame[:len(frame)-3], 0); err == nil {
		t.Fatal("truncated frame should fail")
	}
	if _, err := DecodeTable([]byte(Magic), 0); err == nil {
		t.Fatal("empty body should fail")
	}
	garbage := append([]byte(Magic), 0x05, 0xde, 0xad, 0xbe, 0xef, 0x00)
	if _, err := DecodeTable(garbage, 0); err == nil {
		t.Fatal("non-zstd payload should fail")
	}
	if _, err := DecodeTable(frame, 10); err == nil {
		t.Fatal("decompressed payload over maxBytes should fail")
	}
	if _, err := DecodeTable(frame, 1<<20); err != nil {
		t.Fatalf("generous maxBytes should pass: %v", err)
	}
}

// TestToSamplerIntegrity 檢查項目:
//  1. 指紋不符要拒絕, 空指紋跳過檢查
//  2. 壞表重建時要被既有驗證攔下
func TestToSamplerIntegrity(t *testing.T) {
	smp := mustSampler(t, []float64{0.5, 0.25, 0.25}, 0.2)
	dump := FromSampler("exact", "Exact", 0.2, smp)

	tampered := *dump
	tampered.Fingerprint = "0000000000000000"
	if _, err := tampered.ToSampler(); err == nil {
		t.Fatal("fingerprint mismatch should fail")
	}

	unsigned := *dump
	unsigned.Fingerprint = ""
	if _, err := unsigned.ToSampler(); err != nil {
		t.Fatalf("empty fingerprint should skip the check: %v", err)
	}

	broken := *dump
	broken.Keep = append([]uint64(nil), dump.Keep...)
	broken.Keep[0] = 1 << 10 // over the 2^mu bucket
	if _, err := broken.ToSampler(); !errors.Is(err, alias.ErrInvalidDistribution) {
		t.Fatalf("broken table: got %v, want ErrInvalidDistribution", err)
	}
}

// TestBlobFrame 檢查項目:
//  1. 往返等價且回傳新切片
//  2. 截斷要拒絕
func TestBlobFrame(t *testing.T) {
	payload := []byte("alias table bytes")
	frame := EncodeBlobFrame(payload)

	got, err := DecodeBlobFrame(frame)
	if err != nil {
		t.Fatalf("DecodeBlobFrame: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload differs: %q", got)
	}
	got[0] = 'X'
	if frame[1] == 'X' {
		t.Fatal("decode must copy the payload")
	}

	if _, err := DecodeBlobFrame(frame[:len(frame)-2]); err == nil {
		t.Fatal("truncated frame should fail")
	}
}
