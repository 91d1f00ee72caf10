package store

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v4"
)

func tsToBytes(ts time.Time) []byte {
	buf := make([]byte, 8)
	d := ts.UnixNano()
	binary.BigEndian.PutUint64(buf, uint64(d))
	return buf
}

func idToBytes(id uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, id)
	return buf
}

func bytesToID(buf []byte) uint64 {
	if len(buf) != 8 {
		panic(len(buf))
	}
	return binary.BigEndian.Uint64(buf)
}

func msgpackMarshalPanic(val interface{}) []byte {
	b, err := msgpack.Marshal(val)
	if err != nil {
		panic(fmt.Errorf("msgpackMarshalPanic(%v) => %v", val, err))
	}
	return b
}

func msgpackUnmarshal(b []byte, val interface{}) error {
	return msgpack.Unmarshal(b, val)
}
