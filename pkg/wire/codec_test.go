package wire

import (
    "bytes"
    "encoding/binary"
    "errors"
    "io"
    "testing"
)

func TestCodec_RequestRoundTrip(t *testing.T) {
    var buf bytes.Buffer
    enc := NewEncoder(&buf)
    dec := NewDecoder(&buf)

    in := []*Request{
        {Kind: ReqPing},
        {Kind: ReqJoin, NodeID: "node-7"},
        {Kind: ReqMessage, MID: 42, TypeID: "VoteRequest", Body: []byte(`{"term":3}`)},
    }
    for _, r := range in {
        if err := enc.WriteRequest(r); err != nil {
            t.Fatalf("write %s: %v", r.Kind, err)
        }
    }
    for _, want := range in {
        got, err := dec.ReadRequest()
        if err != nil { t.Fatalf("read %s: %v", want.Kind, err) }
        if got.Kind != want.Kind || got.NodeID != want.NodeID || got.MID != want.MID || got.TypeID != want.TypeID {
            t.Fatalf("frame mismatch: got %+v want %+v", got, want)
        }
        if !bytes.Equal(got.Body, want.Body) {
            t.Fatalf("body mismatch: got %q want %q", got.Body, want.Body)
        }
    }
}

func TestCodec_ResponseRoundTrip(t *testing.T) {
    var buf bytes.Buffer
    enc := NewEncoder(&buf)
    dec := NewDecoder(&buf)

    if err := enc.WriteResponse(&Response{Kind: RespResult, MID: 9, Body: []byte("ok")}); err != nil {
        t.Fatalf("write: %v", err)
    }
    got, err := dec.ReadResponse()
    if err != nil { t.Fatalf("read: %v", err) }
    if got.Kind != RespResult || got.MID != 9 || string(got.Body) != "ok" {
        t.Fatalf("unexpected response: %+v", got)
    }
}

func TestCodec_TruncatedFrame(t *testing.T) {
    var buf bytes.Buffer
    enc := NewEncoder(&buf)
    if err := enc.WriteRequest(&Request{Kind: ReqPing}); err != nil {
        t.Fatalf("write: %v", err)
    }
    // Drop the final byte of the payload.
    trunc := buf.Bytes()[:buf.Len()-1]
    dec := NewDecoder(bytes.NewReader(trunc))
    if _, err := dec.ReadRequest(); !errors.Is(err, io.ErrUnexpectedEOF) {
        t.Fatalf("expected unexpected EOF, got %v", err)
    }
}

func TestCodec_OversizedFrame(t *testing.T) {
    var hdr [4]byte
    binary.BigEndian.PutUint32(hdr[:], MaxFrameSize+1)
    dec := NewDecoder(bytes.NewReader(hdr[:]))
    if _, err := dec.ReadRequest(); !errors.Is(err, ErrFrameTooLarge) {
        t.Fatalf("expected ErrFrameTooLarge, got %v", err)
    }
}
