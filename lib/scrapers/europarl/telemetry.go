package europarl

import (
	"europarl-collector/lib/restyutil"
	"europarl-collector/lib/telemetry"
)

var tracer = telemetry.Tracer("collector.lib.scrapers.europarl")
var restyInstrumentOutput restyutil.InstrumentOutput

// SetRestyInstrumentOutput enables request transcript dumps for clients
// constructed after the call. meant for verbose debugging runs.
func SetRestyInstrumentOutput(out restyutil.InstrumentOutput) {
	restyInstrumentOutput = out
}
