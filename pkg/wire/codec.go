package wire

import (
    "bufio"
    "encoding/binary"
    "encoding/json"
    "errors"
    "fmt"
    "io"
)

// The peer protocol is a stream of length-delimited JSON frames: a 4-byte
// big-endian length prefix followed by one encoded Request or Response.
// Requests flow from the remote peer to the listener, Responses flow back.

type RequestKind string

const (
    // ReqPing is a liveness probe; it refreshes the receiver's heartbeat.
    ReqPing RequestKind = "ping"
    // ReqJoin announces the peer's node identity on this connection.
    ReqJoin RequestKind = "join"
    // ReqMessage carries a consensus RPC envelope to be dispatched.
    ReqMessage RequestKind = "message"
)

type ResponseKind string

const (
    RespPing   ResponseKind = "ping"
    RespResult ResponseKind = "result"
)

// Request is the inbound frame union. Only the fields relevant to Kind are
// populated: NodeID for join, MID/TypeID/Body for message.
type Request struct {
    Kind   RequestKind `json:"kind"`
    NodeID string      `json:"node_id,omitempty"`
    MID    uint64      `json:"mid,omitempty"`
    TypeID string      `json:"type_id,omitempty"`
    Body   []byte      `json:"body,omitempty"`
}

// Response is the outbound frame union. Result echoes the correlation id of
// the message that triggered it; Body may be empty.
type Response struct {
    Kind ResponseKind `json:"kind"`
    MID  uint64       `json:"mid,omitempty"`
    Body []byte       `json:"body,omitempty"`
}

// MaxFrameSize bounds a single frame on the wire. Oversized frames indicate a
// corrupt stream or a misbehaving peer and fail the decode.
const MaxFrameSize = 16 << 20

var (
    ErrFrameTooLarge = errors.New("wire: frame exceeds maximum size")
    ErrEmptyFrame    = errors.New("wire: zero-length frame")
)

// Encoder writes frames to a single underlying writer. It is not safe for
// concurrent use; callers serialize writes (the session's write loop does).
type Encoder struct {
    w   *bufio.Writer
    buf [4]byte
}

func NewEncoder(w io.Writer) *Encoder { return &Encoder{w: bufio.NewWriter(w)} }

func (e *Encoder) WriteRequest(req *Request) error   { return e.writeFrame(req) }
func (e *Encoder) WriteResponse(resp *Response) error { return e.writeFrame(resp) }

func (e *Encoder) writeFrame(v any) error {
    b, err := json.Marshal(v)
    if err != nil { return fmt.Errorf("wire: encode frame: %w", err) }
    if len(b) > MaxFrameSize { return ErrFrameTooLarge }
    binary.BigEndian.PutUint32(e.buf[:], uint32(len(b)))
    if _, err := e.w.Write(e.buf[:]); err != nil { return err }
    if _, err := e.w.Write(b); err != nil { return err }
    return e.w.Flush()
}

// Decoder reads frames from a single underlying reader. Not safe for
// concurrent use.
type Decoder struct {
    r   *bufio.Reader
    buf [4]byte
}

func NewDecoder(r io.Reader) *Decoder { return &Decoder{r: bufio.NewReader(r)} }

func (d *Decoder) ReadRequest() (*Request, error) {
    b, err := d.readFrame()
    if err != nil { return nil, err }
    req := new(Request)
    if err := json.Unmarshal(b, req); err != nil {
        return nil, fmt.Errorf("wire: decode request: %w", err)
    }
    return req, nil
}

func (d *Decoder) ReadResponse() (*Response, error) {
    b, err := d.readFrame()
    if err != nil { return nil, err }
    resp := new(Response)
    if err := json.Unmarshal(b, resp); err != nil {
        return nil, fmt.Errorf("wire: decode response: %w", err)
    }
    return resp, nil
}

func (d *Decoder) readFrame() ([]byte, error) {
    if _, err := io.ReadFull(d.r, d.buf[:]); err != nil { return nil, err }
    n := binary.BigEndian.Uint32(d.buf[:])
    if n == 0 { return nil, ErrEmptyFrame }
    if n > MaxFrameSize { return nil, ErrFrameTooLarge }
    b := make([]byte, n)
    if _, err := io.ReadFull(d.r, b); err != nil { return nil, err }
    return b, nil
}
