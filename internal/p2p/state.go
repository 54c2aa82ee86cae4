package p2p

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/yndnr/meshp2p-go/internal/core/domain"
)

// Record is one exported (level, position, participant) triple.
type Record struct {
	Level       int
	Pos         int
	Participant bool
}

// State is the exported form of a ParticipantMap: the exporter's address
// and its records.
//
// The binary form is protobuf wire format:
//
//	message State  { repeated uint64 me = 1 [packed]; repeated Record records = 2; }
//	message Record { uint64 level = 1; uint64 pos = 2; bool participant = 3; }
type State struct {
	Me      domain.Address
	Records []Record
}

const (
	stateMeField      protowire.Number = 1
	stateRecordsField protowire.Number = 2

	recordLevelField       protowire.Number = 1
	recordPosField         protowire.Number = 2
	recordParticipantField protowire.Number = 3
)

// MarshalBinary implements encoding.BinaryMarshaler.
func (s State) MarshalBinary() ([]byte, error) {
	var b []byte

	if len(s.Me) > 0 {
		var packed []byte
		for _, c := range s.Me {
			if c < 0 {
				return nil, fmt.Errorf("state: negative coordinate %d", c)
			}
			packed = protowire.AppendVarint(packed, uint64(c))
		}
		b = protowire.AppendTag(b, stateMeField, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}

	for _, r := range s.Records {
		if r.Level < 0 || r.Pos < 0 {
			return nil, fmt.Errorf("state: negative record %d/%d", r.Level, r.Pos)
		}
		var rb []byte
		rb = protowire.AppendTag(rb, recordLevelField, protowire.VarintType)
		rb = protowire.AppendVarint(rb, uint64(r.Level))
		rb = protowire.AppendTag(rb, recordPosField, protowire.VarintType)
		rb = protowire.AppendVarint(rb, uint64(r.Pos))
		if r.Participant {
			rb = protowire.AppendTag(rb, recordParticipantField, protowire.VarintType)
			rb = protowire.AppendVarint(rb, protowire.EncodeBool(true))
		}
		b = protowire.AppendTag(b, stateRecordsField, protowire.BytesType)
		b = protowire.AppendBytes(b, rb)
	}

	return b, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. Unknown fields
// are skipped.
func (s *State) UnmarshalBinary(b []byte) error {
	var st State
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return corrupt(protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == stateMeField && typ == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return corrupt(protowire.ParseError(n))
			}
			b = b[n:]
			for len(packed) > 0 {
				v, m := protowire.ConsumeVarint(packed)
				if m < 0 {
					return corrupt(protowire.ParseError(m))
				}
				packed = packed[m:]
				st.Me = append(st.Me, int(v))
			}

		case num == stateRecordsField && typ == protowire.BytesType:
			rb, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return corrupt(protowire.ParseError(n))
			}
			b = b[n:]
			r, err := unmarshalRecord(rb)
			if err != nil {
				return err
			}
			st.Records = append(st.Records, r)

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return corrupt(protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	*s = st
	return nil
}

func unmarshalRecord(b []byte) (Record, error) {
	var r Record
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Record{}, corrupt(protowire.ParseError(n))
		}
		b = b[n:]

		if typ != protowire.VarintType {
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Record{}, corrupt(protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}

		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return Record{}, corrupt(protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case recordLevelField:
			r.Level = int(v)
		case recordPosField:
			r.Pos = int(v)
		case recordParticipantField:
			r.Participant = protowire.DecodeBool(v)
		}
	}
	return r, nil
}

func corrupt(err error) error {
	return domain.ErrCorruptState.WithCause(err)
}
