// Package barcode talks to the plate barcode scanner mounted next to the
// stage.  The scanner speaks a framed telegram protocol; each telegram is
// CRC-checked so a misread plate id can never slip into the session
// metadata silently.
package barcode

import (
	"encoding/binary"
	"fmt"

	"github.com/snksoft/crc"

	"github.com/aics-microscopy/goscope/comm"
)

const (
	// telStart is the start of telegram byte
	telStart = 0x02

	// telEnd is the end of telegram byte, doubling as the line terminator
	telEnd = 0x03

	// opTrigger requests a single scan
	opTrigger = 0x54

	// opResult carries a decoded barcode back
	opResult = 0x52

	// opError reports a failed scan
	opError = 0x45
)

var crcTable = crc.NewTable(crc.XMODEM)

// FrameError reports a telegram that does not follow the framing rules.
type FrameError struct {
	Reason string
}

func (e FrameError) Error() string {
	return "barcode: malformed telegram: " + e.Reason
}

// CRCError reports a telegram whose checksum does not match its payload.
type CRCError struct {
	Want uint16
	Got  uint16
}

func (e CRCError) Error() string {
	return fmt.Sprintf("barcode: CRC mismatch, computed %04X, telegram carries %04X", e.Want, e.Got)
}

// ScanError reports that the scanner saw no readable code.
type ScanError struct {
	Code byte
}

func (e ScanError) Error() string {
	return fmt.Sprintf("barcode: scan failed, scanner error code %02X", e.Code)
}

// Telegram is one message to or from the scanner before framing and CRC.
type Telegram struct {
	Op   byte
	Data []byte
}

// encodeTelegram frames a telegram as
// [START] [OP] [LEN] [0..255 data bytes] [CRC-hi] [CRC-lo];
// the end byte is the line terminator and appended by the transport.
func encodeTelegram(t Telegram) ([]byte, error) {
	if len(t.Data) > 255 {
		return nil, FrameError{Reason: fmt.Sprintf("%d data bytes exceed a single telegram", len(t.Data))}
	}
	body := make([]byte, 0, len(t.Data)+2)
	body = append(body, t.Op, byte(len(t.Data)))
	body = append(body, t.Data...)
	sum := uint16(crcTable.CalculateCRC(body))
	out := make([]byte, 0, len(body)+3)
	out = append(out, telStart)
	out = append(out, body...)
	out = binary.BigEndian.AppendUint16(out, sum)
	return out, nil
}

// decodeTelegram unframes a telegram with the end byte already stripped by
// the transport.
func decodeTelegram(b []byte) (Telegram, error) {
	if len(b) < 5 {
		return Telegram{}, FrameError{Reason: fmt.Sprintf("%d bytes is shorter than an empty telegram", len(b))}
	}
	if b[0] != telStart {
		return Telegram{}, FrameError{Reason: fmt.Sprintf("start byte %02X not found", telStart)}
	}
	body := b[1 : len(b)-2]
	got := binary.BigEndian.Uint16(b[len(b)-2:])
	want := uint16(crcTable.CalculateCRC(body))
	if want != got {
		return Telegram{}, CRCError{Want: want, Got: got}
	}
	if int(body[1]) != len(body)-2 {
		return Telegram{}, FrameError{Reason: fmt.Sprintf(
			"length byte %d does not match %d data bytes", body[1], len(body)-2)}
	}
	return Telegram{Op: body[0], Data: body[2:]}, nil
}

// Reader is a barcode scanner on a TCP or serial line.
type Reader struct {
	comm.RemoteDevice
}

// NewReader returns a reader for a scanner at a TCP address.
func NewReader(addr string) *Reader {
	rd := comm.NewRemoteDevice(addr)
	rd.Tx = telEnd
	rd.Rx = telEnd
	return &Reader{RemoteDevice: rd}
}

// ReadBarcode triggers a scan and returns the decoded plate id.
func (r *Reader) ReadBarcode() (string, error) {
	if r.Conn == nil {
		if err := r.Open(); err != nil {
			return "", err
		}
		defer r.Close()
	}
	cmd, err := encodeTelegram(Telegram{Op: opTrigger})
	if err != nil {
		return "", err
	}
	resp, err := r.SendRecv(cmd)
	if err != nil {
		return "", err
	}
	tel, err := decodeTelegram(resp)
	if err != nil {
		return "", err
	}
	switch tel.Op {
	case opResult:
		if len(tel.Data) == 0 {
			return "", ScanError{}
		}
		return string(tel.Data), nil
	case opError:
		var code byte
		if len(tel.Data) > 0 {
			code = tel.Data[0]
		}
		return "", ScanError{Code: code}
	}
	return "", FrameError{Reason: fmt.Sprintf("unexpected op %02X", tel.Op)}
}
