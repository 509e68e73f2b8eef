package relay

import (
	"github.com/ka2n/cmsrelay/log"
)

// LogObserver logs every outcome
type LogObserver struct{}

func (LogObserver) Started(total int) {
	log.Info("Relaying files", "total", total)
}

func (LogObserver) Finished(r Result) {
	switch r.Status {
	case StatusSuccess:
		log.Info("Relayed file", "url", r.URL, "file", r.FileName, "size", r.Size, "attempts", r.Attempts)
	case StatusSkipped:
		log.Warn("Skipped file", "url", r.URL, "reason", r.Reason)
	default:
		log.Error("Failed to relay file", "url", r.URL, "reason", r.Reason, "attempts", r.Attempts)
	}
}

// Observers fans notifications out to each observer in order
type Observers []Observer

func (o Observers) Started(total int) {
	for _, obs := range o {
		obs.Started(total)
	}
}

func (o Observers) Finished(r Result) {
	for _, obs := range o {
		obs.Finished(r)
	}
}
