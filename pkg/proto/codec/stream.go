package codec

import (
	"bufio"
	"crypto/cipher"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/kbidlack/proxhy-go/pkg/proto"
)

// ErrClosed is returned by operations on a Stream that has already closed,
// mirroring gate's ErrClosedConn sentinel.
var ErrClosed = errors.New("codec: stream is closed")

// maxPacketLength bounds the outer VarInt length against a malicious or
// corrupt peer; 1.8.9's largest legitimate packet (map chunk bulk) is well
// under 2MiB.
const maxPacketLength = 1 << 21

// byteReaderAdapter adapts an io.Reader to io.ByteReader one byte at a time,
// needed once the underlying reader is a cipher.StreamReader (which does not
// itself implement ByteReader). Grounded in dmitrymodder-minewire's
// byteReaderAdapter, which solves the identical problem for VarInt reads.
type byteReaderAdapter struct {
	r   io.Reader
	buf [1]byte
}

func (b *byteReaderAdapter) ReadByte() (byte, error) {
	_, err := io.ReadFull(b.r, b.buf[:])
	return b.buf[0], err
}

func (b *byteReaderAdapter) Read(p []byte) (int, error) { return b.r.Read(p) }

// Stream is a buffered duplex carrying codec state (key, compression
// threshold, pause/resume) over one TCP socket, per spec.md §3/§4.B.
type Stream interface {
	ReadPacket() (id int32, payload *proto.Buffer, err error)
	WritePacket(id int32, parts ...[]byte) error
	Write(payload []byte) error
	Drain() error
	Close() error
	Pause(discard bool)
	Unpause()
	SetCompressionThreshold(n int)
	CompressionThreshold() int
	EnableEncryption(secret []byte) error
	RemoteAddr() net.Addr
}

// pauseGate blocks waiters while paused, mirroring the asyncio.Event used by
// the original Stream: nil means "open" (not paused); a non-nil channel is
// closed by Unpause to release every blocked reader at once.
type pauseGate struct {
	mu sync.Mutex
	ch chan struct{}
}

func (g *pauseGate) pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ch == nil {
		g.ch = make(chan struct{})
	}
}

func (g *pauseGate) unpause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ch != nil {
		close(g.ch)
		g.ch = nil
	}
}

func (g *pauseGate) wait() {
	g.mu.Lock()
	ch := g.ch
	g.mu.Unlock()
	if ch != nil {
		<-ch
	}
}

// Conn is the concrete Stream implementation wrapping one net.Conn.
type Conn struct {
	conn net.Conn

	br *bufio.Reader
	bw *bufio.Writer

	reader     io.Reader
	byteReader *byteReaderAdapter
	writer     io.Writer

	mu                   sync.Mutex // guards compressionThreshold and closed
	compressionThreshold int
	closed               bool

	gate         pauseGate
	discardMu    sync.Mutex
	discardStop  chan struct{}
	discardDone  chan struct{}
}

// NewConn wraps conn for framed packet I/O. Compression starts disabled.
func NewConn(conn net.Conn) *Conn {
	br := bufio.NewReader(conn)
	bw := bufio.NewWriter(conn)
	c := &Conn{
		conn:                 conn,
		br:                   br,
		bw:                   bw,
		reader:               br,
		writer:               bw,
		compressionThreshold: proto.NoCompression,
	}
	c.byteReader = &byteReaderAdapter{r: c.reader}
	return c
}

func (c *Conn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// EnableEncryption installs AES-128/CFB8 on both directions atomically
// (from the caller's perspective: both reader and writer swap together
// before this returns), per spec.md §4.B.
func (c *Conn) EnableEncryption(secret []byte) error {
	dec, err := newAESCFB8(secret, true)
	if err != nil {
		return err
	}
	enc, err := newAESCFB8(secret, false)
	if err != nil {
		return err
	}
	c.reader = &cipher.StreamReader{S: dec, R: c.reader}
	c.byteReader = &byteReaderAdapter{r: c.reader}
	c.writer = &cipher.StreamWriter{S: enc, W: c.writer}
	return nil
}

func (c *Conn) SetCompressionThreshold(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.compressionThreshold = n
}

func (c *Conn) CompressionThreshold() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.compressionThreshold
}

// ReadPacket blocks at two suspension points: the VarInt length read, then
// the exactly-that-many-bytes read, matching spec.md §4.D steps 1-2. It
// never assumes a packet boundary until length bytes have been decrypted.
func (c *Conn) ReadPacket() (int32, *proto.Buffer, error) {
	c.gate.wait()

	length, err := proto.ReadVarInt(c.byteReader)
	if err != nil {
		return 0, nil, err
	}
	if length < 0 || length > maxPacketLength {
		return 0, nil, proto.ErrMalformed
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(c.reader, data); err != nil {
		return 0, nil, err
	}

	threshold := c.CompressionThreshold()
	body, err := proto.DecompressBody(data, threshold)
	if err != nil {
		return 0, nil, err
	}

	buf := proto.NewBuffer(body)
	id, err := proto.UnpackVarInt(buf)
	if err != nil {
		return 0, nil, err
	}
	return id, buf, nil
}

// WritePacket composes frame = VarInt(id)+concat(parts) and writes it
// through Write, applying the compression header rule from spec.md §4.B.
func (c *Conn) WritePacket(id int32, parts ...[]byte) error {
	return c.Write(proto.BuildPacket(id, parts...))
}

// Write sends an already-assembled id+fields payload (used for verbatim
// pass-through of unhandled packets, per spec.md §4.C).
func (c *Conn) Write(payload []byte) error {
	c.mu.Lock()
	closed := c.closed
	threshold := c.compressionThreshold
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	framed, err := proto.CompressBody(payload, threshold)
	if err != nil {
		return err
	}
	full := proto.FrameWithLength(framed)
	if _, err := c.writer.Write(full); err != nil {
		return err
	}
	return c.bw.Flush()
}

// Drain flushes the buffered writer. Write already flushes after every
// packet, so once a Write has returned Drain has nothing left to send.
func (c *Conn) Drain() error {
	return c.bw.Flush()
}

func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.closed = true
	c.mu.Unlock()

	c.gate.unpause() // release any hanging readers
	c.stopDiscard()
	return c.conn.Close()
}

// Pause blocks pending reads until Unpause is called. If discard is true, a
// background goroutine drains and drops incoming bytes in the meantime
// (used when reconnect semantics require swallowing stale input).
func (c *Conn) Pause(discard bool) {
	c.gate.pause()
	c.stopDiscard()
	if discard {
		c.startDiscard()
	}
}

func (c *Conn) Unpause() {
	c.stopDiscard()
	c.gate.unpause()
}

func (c *Conn) startDiscard() {
	c.discardMu.Lock()
	defer c.discardMu.Unlock()
	stop := make(chan struct{})
	done := make(chan struct{})
	c.discardStop = stop
	c.discardDone = done
	go func() {
		defer close(done)
		buf := make([]byte, 1024)
		for {
			select {
			case <-stop:
				return
			default:
			}
			_ = c.conn.SetReadDeadline(deadlineShort())
			_, err := c.conn.Read(buf)
			if err != nil {
				var ne net.Error
				if errors.As(err, &ne) && ne.Timeout() {
					continue
				}
				return
			}
		}
	}()
}

func deadlineShort() time.Time {
	return time.Now().Add(100 * time.Millisecond)
}

func (c *Conn) stopDiscard() {
	c.discardMu.Lock()
	defer c.discardMu.Unlock()
	if c.discardStop != nil {
		close(c.discardStop)
		<-c.discardDone
		c.discardStop = nil
		c.discardDone = nil
	}
}
