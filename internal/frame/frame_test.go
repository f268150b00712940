package frame

import (
	"errors"
	"math"
	"testing"

	"github.com/gorilla/websocket"
)

func TestDecode_QuarterPiVertical(t *testing.T) {
	p := Encode([HeaderSize]byte{}, Sample{VerticalRad: 0.7853981633974483, HorizontalRad: 0})

	got, err := Decode(p)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.VerticalRad != math.Pi/4 {
		t.Errorf("VerticalRad = %v, want %v", got.VerticalRad, math.Pi/4)
	}
	if got.HorizontalRad != 0 {
		t.Errorf("HorizontalRad = %v, want 0", got.HorizontalRad)
	}
}

func TestDecode_FixedOffsets(t *testing.T) {
	// Hand-built big-endian record: header is noise, 1.5 at 12, -2.25 at 20.
	p := []byte{
		0xde, 0xad, 0xbe, 0xef, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
		0x3f, 0xf8, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0xc0, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}

	got, err := Decode(p)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.VerticalRad != 1.5 || got.HorizontalRad != -2.25 {
		t.Errorf("Decode() = %+v, want {1.5 -2.25}", got)
	}
}

func TestDecode_Lengths(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{name: "empty", size: 0, wantErr: true},
		{name: "header only", size: HeaderSize, wantErr: true},
		{name: "one short", size: MinSize - 1, wantErr: true},
		{name: "exact", size: MinSize, wantErr: false},
		{name: "trailing bytes", size: 64, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(make([]byte, tt.size))
			if tt.wantErr {
				if !errors.Is(err, ErrShortPayload) {
					t.Fatalf("Decode(%d bytes) error = %v, want ErrShortPayload", tt.size, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode(%d bytes) error = %v, want nil", tt.size, err)
			}
		})
	}
}

func TestDecode_IgnoresTrailingBytes(t *testing.T) {
	p := Encode([HeaderSize]byte{}, Sample{VerticalRad: 0.1, HorizontalRad: 0.2})
	long := append(append([]byte{}, p...), 0xff, 0xff, 0xff, 0xff)

	a, _ := Decode(p)
	b, _ := Decode(long)
	if a != b {
		t.Errorf("trailing bytes changed result: %+v vs %+v", a, b)
	}
}

func TestDecode_Pure(t *testing.T) {
	p := Encode([HeaderSize]byte{9, 9, 9}, Sample{VerticalRad: -0.3, HorizontalRad: 0.6})

	first, err := Decode(p)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	second, err := Decode(p)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if first != second {
		t.Errorf("Decode() not repeatable: %+v then %+v", first, second)
	}
}

func TestFromWebsocket(t *testing.T) {
	if _, ok := FromWebsocket(websocket.TextMessage, []byte("ping")).(Text); !ok {
		t.Error("text frame not classified as Text")
	}
	if _, ok := FromWebsocket(websocket.BinaryMessage, []byte{1}).(Binary); !ok {
		t.Error("binary frame not classified as Binary")
	}
	u, ok := FromWebsocket(42, nil).(Unknown)
	if !ok {
		t.Fatal("opcode 42 not classified as Unknown")
	}
	if u.Opcode != 42 {
		t.Errorf("Opcode = %d, want 42", u.Opcode)
	}
}
