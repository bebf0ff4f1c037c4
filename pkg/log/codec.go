package log

import (
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Device names, SSIDs and service records arrive from the supplicant as
// raw octets, so decoding accepts strings that are not valid UTF-8.
// Timestamps carry tag 0 so generic CBOR tools render them as dates.
var (
	eventEncMode = must(cbor.EncOptions{
		Sort:          cbor.SortCoreDeterministic,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
		TimeTag:       cbor.EncTagRequired,
	}.EncMode())

	eventDecMode = must(cbor.DecOptions{
		UTF8:            cbor.UTF8DecodeInvalid,
		DupMapKey:       cbor.DupMapKeyQuiet,
		IndefLength:     cbor.IndefLengthAllowed,
		MaxNestedLevels: 16,
	}.DecMode())
)

func must[M any](mode M, err error) M {
	if err != nil {
		panic("log: cbor mode: " + err.Error())
	}
	return mode
}

// EncodeEvent encodes an Event to CBOR.
func EncodeEvent(event Event) ([]byte, error) {
	return eventEncMode.Marshal(event)
}

// DecodeEvent decodes one CBOR-encoded Event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	err := eventDecMode.Unmarshal(data, &event)
	return event, err
}

// NewEncoder returns a streaming event encoder writing to w.
func NewEncoder(w io.Writer) *cbor.Encoder { return eventEncMode.NewEncoder(w) }

// NewDecoder returns a streaming event decoder reading from r.
func NewDecoder(r io.Reader) *cbor.Decoder { return eventDecMode.NewDecoder(r) }
