package meshv1

import (
	"bytes"
	"testing"
)

func TestCodec_MsgSend(t *testing.T) {
	c := Codec{}
	if c.Name() != "msgpack" {
		t.Errorf("Name() = %q, want msgpack", c.Name())
	}

	in := MsgSendRequest{
		Service: 7,
		Sender:  []int{1, 0},
		Target:  []int{3, 2},
		Message: Message{
			ID:   "01HZX",
			Op:   "echo",
			Args: []any{"hello", 42, []byte{1, 2}},
		},
	}

	b, err := c.Marshal(&in)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var out MsgSendRequest
	if err := c.Unmarshal(b, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if out.Service != 7 || out.Message.Op != "echo" || out.Message.ID != "01HZX" {
		t.Errorf("Unmarshal() = %+v", out)
	}
	if len(out.Target) != 2 || out.Target[0] != 3 || out.Target[1] != 2 {
		t.Errorf("Target = %v, want [3 2]", out.Target)
	}
	if len(out.Message.Args) != 3 {
		t.Fatalf("Args = %v, want 3 values", out.Message.Args)
	}
	if s, ok := out.Message.Args[0].(string); !ok || s != "hello" {
		t.Errorf("Args[0] = %#v, want \"hello\"", out.Message.Args[0])
	}
	if n, ok := out.Message.Args[1].(int64); !ok || n != 42 {
		t.Errorf("Args[1] = %#v, want int64(42)", out.Message.Args[1])
	}
	if p, ok := out.Message.Args[2].([]byte); !ok || !bytes.Equal(p, []byte{1, 2}) {
		t.Errorf("Args[2] = %#v, want []byte{1, 2}", out.Message.Args[2])
	}
}

func TestCodec_UnmarshalGarbage(t *testing.T) {
	var out MsgSendRequest
	if err := (Codec{}).Unmarshal([]byte{0xc1}, &out); err == nil {
		t.Error("Unmarshal() of reserved byte succeeded")
	}
}
