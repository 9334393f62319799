package net

import (
	"errors"
	"testing"
)

func TestParseMessage(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Message
		wantErr bool
	}{
		{
			name: "pointer",
			in:   `{"type":"pointer","phase":"move","x":10.5,"y":4,"pressure":0.7}`,
			want: Message{Type: MsgPointer, Phase: PhaseMove, X: 10.5, Y: 4, Pressure: 0.7},
		},
		{
			name: "command",
			in:   `{"type":"command","name":"switch_page","index":2}`,
			want: Message{Type: MsgCommand, Name: CmdSwitchPage, Index: 2},
		},
		{
			name: "key",
			in:   `{"type":"key","key":"z","down":true,"ctrl":true}`,
			want: Message{Type: MsgKey, Key: "z", Down: true, Ctrl: true},
		},
		{
			name: "toggle lock",
			in:   `{"type":"toggle_lock","id":"ob_1"}`,
			want: Message{Type: MsgToggleLock, ID: "ob_1"},
		},
		{
			name: "clear selection",
			in:   `{"type":"select"}`,
			want: Message{Type: MsgSelect},
		},
		{name: "delete without id", in: `{"type":"delete_object"}`, wantErr: true},
		{name: "bad phase", in: `{"type":"pointer","phase":"hover"}`, wantErr: true},
		{name: "unknown type", in: `{"type":"teleport"}`, wantErr: true},
		{name: "not json", in: `{`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMessage([]byte(tt.in))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseMessage() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseMessageUnknownType(t *testing.T) {
	_, err := ParseMessage([]byte(`{"type":"nope"}`))
	if !errors.Is(err, errUnknownMessage) {
		t.Fatalf("err = %v, want errUnknownMessage", err)
	}
}

func TestImageBytes(t *testing.T) {
	for _, data := range []string{"aGVsbG8=", "data:image/png;base64,aGVsbG8="} {
		got, err := Message{Type: MsgImage, Data: data}.ImageBytes()
		if err != nil {
			t.Fatalf("ImageBytes(%q): %v", data, err)
		}
		if string(got) != "hello" {
			t.Errorf("ImageBytes(%q) = %q, want hello", data, got)
		}
	}
	if _, err := (Message{Data: "data:image/png;base64,***"}).ImageBytes(); err == nil {
		t.Error("ImageBytes accepted invalid base64")
	}
}
