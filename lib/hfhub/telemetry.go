package hfhub

import (
	"europarl-collector/lib/restyutil"
	"europarl-collector/lib/telemetry"
)

var tracer = telemetry.Tracer("collector.lib.hfhub")

var restyInstrumentOutput restyutil.InstrumentOutput

// SetRestyInstrumentOutput records http transcripts for every hub client
// created after it is set.
func SetRestyInstrumentOutput(output restyutil.InstrumentOutput) {
	restyInstrumentOutput = output
}
