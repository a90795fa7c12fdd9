package telemetry

import (
	"math"

	log "github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/curbz/rtl-navigator/internal/navigator"
)

// LogSink writes status snapshots to the log when no broker is configured.
// Notices are already logged by the navigator.
type LogSink struct {
	printer *message.Printer
}

func NewLogSink() *LogSink {
	return &LogSink{printer: message.NewPrinter(language.English)}
}

func (s *LogSink) PublishStatus(st *navigator.Status) {
	log.WithField("session", st.Session).Info(s.statusLine(st))
}

func (s *LogSink) statusLine(st *navigator.Status) string {
	line := s.printer.Sprintf("%s/%s at %.5f, %.5f, %d m",
		st.Mode, st.RTLPhase, st.Position.Lat, st.Position.Lon, int(math.Round(st.Position.Alt)))
	if st.Home.Valid {
		line += s.printer.Sprintf(", %d m to home", int(math.Round(st.DistanceToHome)))
	}
	if st.Landed {
		line += ", on ground"
	}
	return line
}

// Fanout hands every snapshot to each sink in turn.
type Fanout []navigator.Telemetry

func (f Fanout) PublishStatus(st *navigator.Status) {
	for _, sink := range f {
		sink.PublishStatus(st)
	}
}
