/*Package comm provides an embeddable remote-device type for communication
with lab hardware over TCP or serial lines.

Most usages of this package boil down to:
	1.  embed RemoteDevice in a type that represents your hardware.
	2.  set Tx and Rx if the device does not terminate lines with a
	    carriage return (the default).
	3.  write methods on top of Send, Recv and SendRecv that speak the
	    device's protocol.

A minimal example for a reader that responds to "RD?" with a value:

	type MyReader struct {
		comm.RemoteDevice
	}

	func (mr *MyReader) Read() (string, error) {
		if err := mr.Open(); err != nil {
			return "", err
		}
		defer mr.Close()
		resp, err := mr.SendRecv([]byte("RD?"))
		if err != nil {
			return "", err
		}
		return string(resp), nil
	}
*/
package comm

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/tarm/serial"
)

var (
	// ErrNoSerialConf is generated when Serial is nil and the device is
	// addressed as a serial port.
	ErrNoSerialConf = errors.New("comm: serial device without a serial config")

	// ErrNotConnected is generated when Conn is nil and Send or Recv is
	// called.
	ErrNotConnected = errors.New("comm: conn is nil, not connected to remote")

	// ErrTerminatorNotFound is generated when the termination byte is not
	// found in a response.
	ErrTerminatorNotFound = errors.New("comm: termination byte not found")
)

// SendRecver can send a command and receive its reply.
type SendRecver interface {
	Send([]byte) error
	Recv() ([]byte, error)
	SendRecv([]byte) ([]byte, error)
}

// A Communicator can Open, Send, Recv and Close.
type Communicator interface {
	io.Closer
	Open() error
	SendRecver
}

// RemoteDevice holds a connection to a piece of hardware addressed either
// over TCP (Addr is host:port) or a serial line (Serial is non-nil and Addr
// is ignored).  The zero terminators mean carriage return on both
// directions.
//
// RemoteDevice is not safe for concurrent use; one goroutine owns a device.
type RemoteDevice struct {
	Addr   string
	Serial *serial.Config
	Conn   io.ReadWriteCloser

	// Tx and Rx terminate outgoing and incoming messages.  Zero values
	// fall back to '\r'.
	Tx byte
	Rx byte
}

// NewRemoteDevice creates a device for a TCP remote.
func NewRemoteDevice(addr string) RemoteDevice {
	return RemoteDevice{Addr: addr}
}

// NewSerialDevice creates a device for a serial remote.
func NewSerialDevice(conf *serial.Config) RemoteDevice {
	return RemoteDevice{Serial: conf}
}

// Open the connection, setting the Conn variable.  Connection attempts back
// off exponentially; vendor control boxes tend to refuse a reconnect that
// follows a disconnect too closely.
func (rd *RemoteDevice) Open() error {
	wasTimeout := false
	op := func() error {
		err := rd.open()
		if err != nil {
			errS := strings.ToLower(err.Error())
			if strings.Contains(errS, "refused") {
				return err
			}
			wasTimeout = true
			return nil
		}
		return nil
	}

	// backoff ceases on a timeout so we don't wait forever; check
	// wasTimeout separately
	err := backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     25 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      3 * time.Second,
		Clock:               backoff.SystemClock})
	if err == nil && !wasTimeout {
		return nil
	}
	if wasTimeout {
		return fmt.Errorf("comm: connection timeout to %s", rd.Addr)
	}
	return err
}

func (rd *RemoteDevice) open() error {
	var (
		conn io.ReadWriteCloser
		err  error
	)
	if rd.Serial != nil {
		conn, err = serial.OpenPort(rd.Serial)
	} else {
		if rd.Addr == "" {
			return ErrNoSerialConf
		}
		conn, err = TCPSetup(rd.Addr, 3*time.Second)
	}
	if err != nil {
		return err
	}
	rd.Conn = conn
	return nil
}

// Close the connection, nil-ing the Conn variable.
func (rd *RemoteDevice) Close() error {
	if rd.Conn == nil {
		return nil
	}
	err := rd.Conn.Close()
	if err == nil {
		rd.Conn = nil
	}
	return err
}

func (rd *RemoteDevice) txTerm() byte {
	if rd.Tx == 0 {
		return '\r'
	}
	return rd.Tx
}

func (rd *RemoteDevice) rxTerm() byte {
	if rd.Rx == 0 {
		return '\r'
	}
	return rd.Rx
}

// Send writes data to the remote, appending the Tx terminator.
func (rd *RemoteDevice) Send(b []byte) error {
	if rd.Conn == nil {
		return ErrNotConnected
	}
	b = append(b, rd.txTerm())
	_, err := rd.Conn.Write(b)
	return err
}

// Recv receives data from the remote and strips the Rx terminator.
func (rd *RemoteDevice) Recv() ([]byte, error) {
	if rd.Conn == nil {
		return nil, ErrNotConnected
	}
	term := rd.rxTerm()
	buf, err := bufio.NewReader(rd.Conn).ReadBytes(term)
	if err != nil {
		return []byte{}, err
	}
	if bytes.HasSuffix(buf, []byte{term}) {
		return buf[:len(buf)-1], nil
	}
	return buf, ErrTerminatorNotFound
}

// SendRecv sends a buffer, then returns the response.
func (rd *RemoteDevice) SendRecv(b []byte) ([]byte, error) {
	if err := rd.Send(b); err != nil {
		return []byte{}, err
	}
	return rd.Recv()
}

// TCPSetup opens a new TCP connection and sets a timeout on connect, read,
// and write.
func TCPSetup(addr string, timeout time.Duration) (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(timeout)
	conn.SetReadDeadline(deadline)
	conn.SetWriteDeadline(deadline)
	return conn, nil
}
